package scraper

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

const (
	institucionURL    = "https://www.gob.pe/institucion/sunat/noticias"
	institucionBase   = "https://www.gob.pe"
	institucionSource = "SUNAT institucion"
)

// Extractor pulls the full article text from a detail page URL
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Institucion scrapes the gob.pe institutional news listing. It is a
// two-stage source: the listing provides title, URL and date, then each
// article page is fetched separately for the full body. The portal serves
// well-formed HTML, so this parser uses a DOM walk instead of the raw-text
// matching the legacy SUNAT pages require.
type Institucion struct {
	client    *http.Client
	extractor Extractor
	url       string
	base      string
}

// NewInstitucion creates the institutional news scraper
func NewInstitucion(client *http.Client, extractor Extractor) *Institucion {
	return &Institucion{client: client, extractor: extractor, url: institucionURL, base: institucionBase}
}

// Name returns the source identifier
func (n *Institucion) Name() string { return institucionSource }

// FetchAndParse retrieves the listing and then each article body. A failed
// article fetch skips that single item without aborting the batch.
func (n *Institucion) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	body, _, err := fetch(ctx, n.client, n.url, "text/html")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var items []domain.Candidate
	doc.Find("li.item").Each(func(_ int, sel *goquery.Selection) {
		if item, ok := n.parseListItem(ctx, sel); ok {
			items = append(items, item)
		}
	})
	return items, nil
}

// parseListItem extracts metadata from one listing entry and fetches the
// article body for it
func (n *Institucion) parseListItem(ctx context.Context, sel *goquery.Selection) (domain.Candidate, bool) {
	link := sel.Find("a").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return domain.Candidate{}, false
	}

	title := strings.TrimSpace(sel.Find("h3").First().Text())
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if title == "" {
		return domain.Candidate{}, false
	}

	originalDate, err := n.parseItemDate(sel)
	if err != nil {
		return domain.Candidate{}, false
	}

	articleURL := resolveURL(n.base+"/", href)

	content, err := n.extractor.Extract(ctx, articleURL)
	if err != nil {
		lgr.Printf("[WARN] %s: can't extract article %s: %v", institucionSource, articleURL, err)
		return domain.Candidate{}, false
	}
	if content == "" {
		content = title
	}

	return domain.Candidate{
		Title:        title,
		Content:      content,
		Source:       institucionSource,
		SourceURL:    articleURL,
		Category:     domain.CategoryOficial,
		OriginalDate: originalDate,
	}, true
}

// parseItemDate reads the publication date from a <time> element, preferring
// the machine-readable datetime attribute over the rendered dd/mm/yyyy text
func (n *Institucion) parseItemDate(sel *goquery.Selection) (time.Time, error) {
	timeEl := sel.Find("time").First()
	if dt, ok := timeEl.Attr("datetime"); ok {
		if t, err := parseISODate(dt); err == nil {
			return t, nil
		}
	}
	return parseSlashDate(strings.TrimSpace(timeEl.Text()))
}

// parseISODate parses the ISO YYYY-MM-DD HH:mm:ss grammar, with and without
// the time part
func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrDateParse
}
