package scraper

import (
	"errors"
	"fmt"
)

// ErrFormat indicates the source response does not match the expected
// structural contract. Depending on the source this is fatal for the whole
// run (JSON APIs) or handled per-fragment (irregular HTML tables).
var ErrFormat = errors.New("unexpected source format")

// ErrDateParse indicates a literal date string matched none of the known
// grammars for the source
var ErrDateParse = errors.New("unparseable date")

// FetchError indicates the network/HTTP call to a source did not succeed
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }
