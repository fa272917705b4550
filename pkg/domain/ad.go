package domain

import (
	"encoding/json"
	"time"
)

// Ad is a sponsored item interleaved into the public feed. It mirrors the
// NewsItem shape so clients render it with the same card, with Sponsored
// set as the discriminator. Ads are loaded once per process and never
// persisted.
type Ad struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"sourceUrl"`
	Category     Category  `json:"category"`
	Flags        []Flag    `json:"flags"`
	OriginalDate time.Time `json:"originalDate"`
	Sponsored    bool      `json:"sponsored"`
}

// FeedEntry is one element of a composed feed page: either a news item or
// an injected ad, exactly one of the two set.
type FeedEntry struct {
	News *NewsItem
	Ad   *Ad
}

// IsAd reports whether the entry is a sponsored item
func (e FeedEntry) IsAd() bool { return e.Ad != nil }

// MarshalJSON flattens the entry to whichever member is set, so a feed page
// serializes as one mixed array
func (e FeedEntry) MarshalJSON() ([]byte, error) {
	if e.Ad != nil {
		return json.Marshal(e.Ad)
	}
	return json.Marshal(e.News)
}
