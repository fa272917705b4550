package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

const (
	laRepublicaURL    = "https://larepublica.pe/api/search/articles?search=sunat&limit=30&page=1&order_by=update_date"
	laRepublicaBase   = "https://larepublica.pe"
	laRepublicaSource = "NOTICIAS la republica"
)

// laRepublicaArticle is one search result entry
type laRepublicaArticle struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Slug  string `json:"slug"`
	Data  struct {
		Teaser string `json:"teaser"`
	} `json:"data"`
}

// laRepublicaResponse is the search API envelope
type laRepublicaResponse struct {
	Articles *struct {
		Data []laRepublicaArticle `json:"data"`
	} `json:"articles"`
}

// LaRepublica scrapes the La República search API for SUNAT coverage
type LaRepublica struct {
	client *http.Client
	url    string
	base   string
}

// NewLaRepublica creates the news outlet JSON API scraper
func NewLaRepublica(client *http.Client) *LaRepublica {
	return &LaRepublica{client: client, url: laRepublicaURL, base: laRepublicaBase}
}

// Name returns the source identifier
func (l *LaRepublica) Name() string { return laRepublicaSource }

// FetchAndParse queries the search API. A missing articles.data field
// signals an API contract change and fails the whole run. Articles without
// a parseable date are dropped.
func (l *LaRepublica) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	body, _, err := fetch(ctx, l.client, l.url, "application/json")
	if err != nil {
		return nil, err
	}

	var resp laRepublicaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if resp.Articles == nil || resp.Articles.Data == nil {
		return nil, fmt.Errorf("%w: missing articles.data in search response", ErrFormat)
	}

	var items []domain.Candidate
	for _, article := range resp.Articles.Data {
		if article.Title == "" || article.Date == "" {
			continue
		}
		originalDate, err := parseISODate(article.Date)
		if err != nil {
			continue
		}

		content := article.Data.Teaser
		if content == "" {
			content = article.Title
		}

		sourceURL := ""
		if article.Slug != "" {
			sourceURL = l.base + "/" + strings.TrimPrefix(article.Slug, "/")
		}

		items = append(items, domain.Candidate{
			Title:        article.Title,
			Content:      content,
			Source:       laRepublicaSource,
			SourceURL:    sourceURL,
			Category:     domain.CategoryNoticias,
			OriginalDate: originalDate,
		})
	}
	return items, nil
}
