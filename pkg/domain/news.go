// Package domain contains the core types shared across scrapers, storage and the HTTP layer.
package domain

import "time"

// Category identifies the origin class of a news item
type Category string

// known categories, values match what moderation and the public feed expect
const (
	CategoryOficial       Category = "OFICIAL"
	CategoryRedesSociales Category = "REDES_SOCIALES"
	CategoryNoticias      Category = "NOTICIAS"
)

// Valid reports whether the category is one of the known values
func (c Category) Valid() bool {
	switch c {
	case CategoryOficial, CategoryRedesSociales, CategoryNoticias:
		return true
	}
	return false
}

// Flag is an editorial tag assigned during moderation
type Flag string

// editorial flags
const (
	FlagImportante    Flag = "IMPORTANTE"
	FlagActualizacion Flag = "ACTUALIZACION"
	FlagUrgente       Flag = "URGENTE"
	FlagCaidaSistema  Flag = "CAIDA_SISTEMA"
	FlagSalaPrensa    Flag = "SALA_PRENSA"
)

// Valid reports whether the flag is one of the known values
func (f Flag) Valid() bool {
	switch f {
	case FlagImportante, FlagActualizacion, FlagUrgente, FlagCaidaSistema, FlagSalaPrensa:
		return true
	}
	return false
}

// Candidate is a parsed, not-yet-deduplicated news item produced by a scraper source
type Candidate struct {
	Title        string
	Content      string
	Source       string
	SourceURL    string
	Category     Category
	OriginalDate time.Time
}

// NewsItem is a persisted news record. Uniqueness is defined by
// (Title, Source, OriginalDate); a candidate matching an existing record
// on all three is a duplicate.
type NewsItem struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Source       string     `json:"source"`
	SourceURL    string     `json:"sourceUrl"`
	Category     Category   `json:"category"`
	Flags        []Flag     `json:"flags"`
	Published    bool       `json:"published"`
	OriginalDate time.Time  `json:"originalDate"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	ScrapedAt    time.Time  `json:"scrapedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// HasFlag reports whether the item carries the given flag
func (n *NewsItem) HasFlag(flag Flag) bool {
	for _, f := range n.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
