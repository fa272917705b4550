package content

import (
	"math/rand"
	"net/http"
)

// acceptLanguages lists Accept-Language values sent to the news portals,
// Spanish-first since every source is Peruvian
var acceptLanguages = []string{
	"es-PE,es;q=0.9",
	"es-PE,es;q=0.9,en;q=0.8",
	"es-ES,es;q=0.9,en;q=0.8",
	"es-419,es;q=0.9",
	"es,en-US;q=0.8,en;q=0.7",
}

// addBrowserHeaders adds common browser headers so the portals don't treat
// the extractor as a bare bot
func addBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
}
