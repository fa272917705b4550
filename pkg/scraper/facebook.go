package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

const (
	facebookGraphURL = "https://graph.facebook.com/v18.0"
	facebookSource   = "Facebook SUNAT"
)

// facebookPost is one entry of the Graph API posts response
type facebookPost struct {
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
}

// facebookResponse is the Graph API posts envelope
type facebookResponse struct {
	Data []facebookPost `json:"data"`
}

// Facebook scrapes the SUNAT page posts via the Graph API
type Facebook struct {
	client      *http.Client
	graphURL    string
	pageID      string
	accessToken string
}

// NewFacebook creates the social media scraper. The access token comes from
// configuration; an empty token makes every run fail rather than silently
// produce nothing.
func NewFacebook(client *http.Client, pageID, accessToken string) *Facebook {
	return &Facebook{client: client, graphURL: facebookGraphURL, pageID: pageID, accessToken: accessToken}
}

// Name returns the source identifier
func (f *Facebook) Name() string { return facebookSource }

// FetchAndParse retrieves recent page posts. A response without the
// top-level data array signals an API contract change and fails the run.
func (f *Facebook) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	if f.accessToken == "" {
		return nil, fmt.Errorf("facebook access token is not configured")
	}

	query := url.Values{}
	query.Set("fields", "message,created_time,permalink_url")
	query.Set("limit", "10")
	query.Set("access_token", f.accessToken)
	requestURL := fmt.Sprintf("%s/%s/posts?%s", f.graphURL, url.PathEscape(f.pageID), query.Encode())

	body, _, err := fetch(ctx, f.client, requestURL, "application/json")
	if err != nil {
		return nil, err
	}

	var resp facebookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data array in graph response", ErrFormat)
	}

	var items []domain.Candidate
	for _, post := range resp.Data {
		if post.Message == "" {
			continue
		}
		createdTime, err := parseGraphTime(post.CreatedTime)
		if err != nil {
			continue
		}
		items = append(items, domain.Candidate{
			Title:        extractTitle(post.Message),
			Content:      post.Message,
			Source:       facebookSource,
			SourceURL:    post.PermalinkURL,
			Category:     domain.CategoryRedesSociales,
			OriginalDate: createdTime,
		})
	}
	return items, nil
}

// parseGraphTime parses the Graph API timestamp, e.g. 2026-01-15T10:30:00+0000
func parseGraphTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrDateParse
}

// extractTitle takes the first line of a post, truncated to 100 runes
func extractTitle(message string) string {
	firstLine := strings.TrimSpace(strings.SplitN(message, "\n", 2)[0])
	runes := []rune(firstLine)
	if len(runes) > 100 {
		return string(runes[:97]) + "..."
	}
	return firstLine
}
