package scraper

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nmitic/sunat-noticia/pkg/domain"
	"github.com/nmitic/sunat-noticia/pkg/htmlutil"
)

const (
	salaPrensaURL     = "https://www.sunat.gob.pe/salaprensa/lima/index.html"
	salaPrensaBaseDir = "https://www.sunat.gob.pe/salaprensa/lima/"
	salaPrensaSource  = "SUNAT sala de prensa"
)

var (
	// the press-room table never closes its <tr> tags, so rows are
	// recovered by splitting at open-tag boundaries instead of matching
	// well-formed pairs
	salaRowSplitRe = regexp.MustCompile(`(?i)<tr[\s>]`)
	colspanRe      = regexp.MustCompile(`(?i)colspan\s*=`)
	salaAnchorRe   = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	salaDateRe     = regexp.MustCompile(`(\d{1,2})\s*([A-Za-z]{3})`)
	salaYearRe     = regexp.MustCompile(`(20\d{2})`)
)

// spanishMonths maps 3-letter Spanish month abbreviations to month numbers.
// September appears both as "set" and "sep" in the source.
var spanishMonths = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "set": time.September,
	"sep": time.September, "oct": time.October, "nov": time.November,
	"dic": time.December,
}

// SalaPrensa scrapes the SUNAT press-room index. Row dates carry only day
// and month abbreviation; the year comes from a path segment of the note URL.
type SalaPrensa struct {
	client  *http.Client
	url     string
	baseDir string
}

// NewSalaPrensa creates the press-room scraper
func NewSalaPrensa(client *http.Client) *SalaPrensa {
	return &SalaPrensa{client: client, url: salaPrensaURL, baseDir: salaPrensaBaseDir}
}

// Name returns the source identifier
func (s *SalaPrensa) Name() string { return salaPrensaSource }

// FetchAndParse retrieves the press-room index and parses its rows.
// Header/separator rows (marked with a colspan attribute) are excluded;
// malformed rows are skipped.
func (s *SalaPrensa) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	body, contentType, err := fetch(ctx, s.client, s.url, "text/html")
	if err != nil {
		return nil, err
	}

	html := decodeCharset(body, contentType)

	var items []domain.Candidate
	chunks := salaRowSplitRe.Split(html, -1)
	for _, chunk := range chunks[1:] { // first chunk precedes the first row
		if colspanRe.MatchString(chunk) {
			continue
		}
		if item, ok := s.parseRow(chunk); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// parseRow extracts one press note: the anchor holds the note URL and the
// "d mmm" date, the rest of the row is the note title.
func (s *SalaPrensa) parseRow(row string) (domain.Candidate, bool) {
	anchor := salaAnchorRe.FindStringSubmatchIndex(row)
	if anchor == nil {
		return domain.Candidate{}, false
	}
	href := row[anchor[2]:anchor[3]]
	anchorText := htmlutil.StripTags(row[anchor[4]:anchor[5]])

	originalDate, err := s.parseDate(anchorText, href)
	if err != nil {
		return domain.Candidate{}, false
	}

	title := htmlutil.StripTags(row[anchor[1]:])
	if title == "" {
		return domain.Candidate{}, false
	}

	return domain.Candidate{
		Title:        title,
		Content:      title,
		Source:       salaPrensaSource,
		SourceURL:    resolveURL(s.baseDir, href),
		Category:     domain.CategoryOficial,
		OriginalDate: originalDate,
	}, true
}

// parseDate combines "d mmm" from the anchor text with a year taken from
// the note URL path
func (s *SalaPrensa) parseDate(text, href string) (time.Time, error) {
	dateMatch := salaDateRe.FindStringSubmatch(text)
	if dateMatch == nil {
		return time.Time{}, ErrDateParse
	}
	day, err := strconv.Atoi(dateMatch[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrDateParse
	}
	month, ok := spanishMonths[strings.ToLower(dateMatch[2])]
	if !ok {
		return time.Time{}, ErrDateParse
	}

	yearMatch := salaYearRe.FindStringSubmatch(href)
	if yearMatch == nil {
		return time.Time{}, ErrDateParse
	}
	year, _ := strconv.Atoi(yearMatch[1])

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// resolveURL joins a possibly relative href with the source base directory
func resolveURL(baseDir, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseDir + strings.TrimPrefix(href, "/")
}
