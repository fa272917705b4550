package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "SUNAT-Noticias/1.0"

// NewHTTPClient returns an HTTP client with pooling settings shared by all
// scrapers
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// fetch retrieves raw bytes from a URL. A transport failure or non-2xx
// status yields a *FetchError. The response Content-Type is returned so
// callers can handle legacy charsets.
func fetch(ctx context.Context, client *http.Client, url, accept string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: err}
	}

	return body, resp.Header.Get("Content-Type"), nil
}
