// Package ads provides the sponsored-content pool and the injector that
// mixes ads into pages of published news.
package ads

import "github.com/nmitic/sunat-noticia/pkg/domain"

// Pool is the fixed set of ads loaded at startup. It is read-only after
// creation and safe for concurrent use without locking.
type Pool struct {
	ads []domain.Ad
}

// NewPool creates a pool from the configured ads
func NewPool(ads []domain.Ad) *Pool {
	res := &Pool{ads: make([]domain.Ad, len(ads))}
	copy(res.ads, ads)
	return res
}

// GetByIndex returns the ad at the given rotation index, wrapping with
// modulo so callers can keep a monotonically increasing counter.
func (p *Pool) GetByIndex(i int) domain.Ad {
	return p.ads[i%len(p.ads)]
}

// Count returns the number of ads in the pool
func (p *Pool) Count() int { return len(p.ads) }

// All returns a copy of the pool contents
func (p *Pool) All() []domain.Ad {
	res := make([]domain.Ad, len(p.ads))
	copy(res, p.ads)
	return res
}
