package scraper

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nmitic/sunat-noticia/pkg/domain"
	"github.com/nmitic/sunat-noticia/pkg/htmlutil"
)

const (
	gestionURL    = "https://gestion.pe/buscar/sunat/todas/descendiente/?query=sunat"
	gestionBase   = "https://gestion.pe"
	gestionSource = "NOTICIAS gestion"
)

var (
	// the trailing space after "story-item" keeps sub-elements like
	// story-item__bottom from starting a new chunk
	gestionChunkRe    = regexp.MustCompile(`(?i)<div[^>]*class="story-item\s`)
	gestionTitleRe    = regexp.MustCompile(`(?is)<h2[^>]*class="[^"]*story-item__content-title[^"]*"[^>]*>\s*<a[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	gestionSubtitleRe = regexp.MustCompile(`(?is)<p[^>]*class="[^"]*story-item__subtitle[^"]*"[^>]*>(.*?)</p>`)
	gestionDateRe     = regexp.MustCompile(`(?is)<span[^>]*class="[^"]*story-item__date-time[^"]*"[^>]*>(.*?)</span>`)
)

// Gestion scrapes the Gestión search results page for SUNAT coverage.
// Search dates are often relative ("hace 2 horas"); when no absolute
// dd/mm/yyyy date is present the item keeps the scrape time as its date.
type Gestion struct {
	client *http.Client
	url    string
	base   string
	now    func() time.Time
}

// NewGestion creates the news outlet HTML search scraper
func NewGestion(client *http.Client) *Gestion {
	return &Gestion{client: client, url: gestionURL, base: gestionBase, now: time.Now}
}

// Name returns the source identifier
func (g *Gestion) Name() string { return gestionSource }

// FetchAndParse retrieves the search page and parses its story blocks.
// A block missing the title anchor is skipped.
func (g *Gestion) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	body, _, err := fetch(ctx, g.client, g.url, "text/html")
	if err != nil {
		return nil, err
	}

	var items []domain.Candidate
	chunks := gestionChunkRe.Split(string(body), -1)
	for _, block := range chunks[1:] { // first chunk precedes the first story
		if item, ok := g.parseStoryBlock(block); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// parseStoryBlock extracts one candidate from a story-item fragment
func (g *Gestion) parseStoryBlock(block string) (domain.Candidate, bool) {
	titleMatch := gestionTitleRe.FindStringSubmatch(block)
	if titleMatch == nil {
		return domain.Candidate{}, false
	}

	rawURL := strings.TrimSpace(titleMatch[1])
	title := htmlutil.StripTags(titleMatch[2])
	if title == "" {
		return domain.Candidate{}, false
	}

	sourceURL := rawURL
	if !strings.HasPrefix(rawURL, "http") {
		sourceURL = g.base + "/" + strings.TrimPrefix(rawURL, "/")
	}

	content := title
	if subtitleMatch := gestionSubtitleRe.FindStringSubmatch(block); subtitleMatch != nil {
		if subtitle := htmlutil.StripTags(subtitleMatch[1]); subtitle != "" {
			content = subtitle
		}
	}

	// relative dates fall back to the scrape time; see the date-grammar
	// notes in DESIGN.md
	originalDate := g.now()
	if dateMatch := gestionDateRe.FindStringSubmatch(block); dateMatch != nil {
		if t, err := parseSlashDate(htmlutil.StripTags(dateMatch[1])); err == nil {
			originalDate = t
		}
	}

	return domain.Candidate{
		Title:        title,
		Content:      content,
		Source:       gestionSource,
		SourceURL:    sourceURL,
		Category:     domain.CategoryNoticias,
		OriginalDate: originalDate,
	}, true
}
