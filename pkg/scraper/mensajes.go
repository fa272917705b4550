package scraper

import (
	"context"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/nmitic/sunat-noticia/pkg/domain"
	"github.com/nmitic/sunat-noticia/pkg/htmlutil"
)

const (
	mensajesURL     = "https://www.sunat.gob.pe/mensajes/mensajes-SUNAT.html"
	mensajesBaseDir = "https://www.sunat.gob.pe/mensajes/"
	mensajesSource  = "SUNAT mensajes"
)

var (
	mensajesRowRe     = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	mensajesTdRe      = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	mensajesTdSplitRe = regexp.MustCompile(`(?i)</td>`)
	mensajesTdOpenRe  = regexp.MustCompile(`(?is)<td[^>]*>(.*)`)
	anchorTextRe      = regexp.MustCompile(`(?i)>([^<]+)</a>`)
	hrefRe            = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
	plusLinkRe        = regexp.MustCompile(`(?i)<a[^>]*>\+</a>`)
)

// Mensajes scrapes the official SUNAT communiqués table. The page is served
// as ISO-8859-1 and its markup is irregular, so parsing is pattern matching
// over raw text rather than a DOM walk.
type Mensajes struct {
	client  *http.Client
	url     string
	baseDir string
}

// NewMensajes creates the official communiqués scraper
func NewMensajes(client *http.Client) *Mensajes {
	return &Mensajes{client: client, url: mensajesURL, baseDir: mensajesBaseDir}
}

// Name returns the source identifier
func (m *Mensajes) Name() string { return mensajesSource }

// FetchAndParse retrieves the communiqués page and parses its table rows.
// Rows missing the expected date-link or content cell are skipped, not fatal.
func (m *Mensajes) FetchAndParse(ctx context.Context) ([]domain.Candidate, error) {
	body, contentType, err := fetch(ctx, m.client, m.url, "text/html")
	if err != nil {
		return nil, err
	}

	html := decodeCharset(body, contentType)

	var items []domain.Candidate
	for _, match := range mensajesRowRe.FindAllStringSubmatch(html, -1) {
		if item, ok := m.parseRow(match[1]); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// parseRow extracts one candidate from a table row: first cell holds the
// date link, second cell the message text with a trailing "+" anchor.
func (m *Mensajes) parseRow(row string) (domain.Candidate, bool) {
	firstTd := mensajesTdRe.FindStringSubmatch(row)
	if firstTd == nil {
		return domain.Candidate{}, false
	}
	dateLink := firstTd[1]

	dateMatch := anchorTextRe.FindStringSubmatch(dateLink)
	if dateMatch == nil {
		return domain.Candidate{}, false
	}
	dateStr := strings.TrimSpace(dateMatch[1])

	hrefMatch := hrefRe.FindStringSubmatch(dateLink)
	if hrefMatch == nil {
		return domain.Candidate{}, false
	}

	tds := mensajesTdSplitRe.Split(row, -1)
	if len(tds) < 2 {
		return domain.Candidate{}, false
	}
	contentMatch := mensajesTdOpenRe.FindStringSubmatch(tds[1])
	if contentMatch == nil {
		return domain.Candidate{}, false
	}

	content := plusLinkRe.ReplaceAllString(strings.TrimSpace(contentMatch[1]), "")
	content = htmlutil.StripTags(content)

	originalDate, err := parseSlashDate(dateStr)
	if err != nil {
		return domain.Candidate{}, false
	}

	return domain.Candidate{
		Title:        "COMUNICADO",
		Content:      content,
		Source:       mensajesSource,
		SourceURL:    m.baseDir + hrefMatch[1],
		Category:     domain.CategoryOficial,
		OriginalDate: originalDate,
	}, true
}

var slashDateRe = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`)

// parseSlashDate parses the dd/mm/yyyy grammar used by the official tables
func parseSlashDate(s string) (time.Time, error) {
	match := slashDateRe.FindString(s)
	if match == "" {
		return time.Time{}, ErrDateParse
	}
	t, err := time.Parse("2/1/2006", match)
	if err != nil {
		return time.Time{}, ErrDateParse
	}
	return t, nil
}

// decodeCharset converts raw response bytes to a string honoring the
// Content-Type charset. SUNAT serves legacy ISO-8859-1 despite modern
// clients assuming UTF-8, so Latin-1 is both the declared-charset branch
// and the fallback.
func decodeCharset(body []byte, contentType string) string {
	charset := "iso-8859-1"
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs, ok := params["charset"]; ok {
			charset = strings.ToLower(strings.Trim(cs, `"'`))
		}
	}

	switch charset {
	case "utf-8", "utf8":
		return string(body)
	default:
		// ISO-8859-1 maps each byte directly to the same code point
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return string(body)
		}
		return string(decoded)
	}
}
