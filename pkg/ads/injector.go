package ads

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// Config controls ad placement. AdsPerWindow must not exceed half the
// window size, otherwise the non-adjacency guarantee can't be met.
type Config struct {
	Enabled      bool `yaml:"enabled"`
	WindowSize   int  `yaml:"window_size"`
	AdsPerWindow int  `yaml:"ads_per_window"`
}

// Validate checks the placement constraints. Called once at configuration
// load, never at injection time.
func (c Config) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("ads window_size must be at least 2, got %d", c.WindowSize)
	}
	if c.AdsPerWindow < 0 {
		return fmt.Errorf("ads_per_window must be non-negative, got %d", c.AdsPerWindow)
	}
	if c.AdsPerWindow > c.WindowSize/2 {
		return fmt.Errorf("ads_per_window (%d) must not exceed window_size/2 (%d), ads would be adjacent",
			c.AdsPerWindow, c.WindowSize/2)
	}
	return nil
}

// Injector places ads from a pool into a feed page at random non-adjacent
// positions within consecutive windows
type Injector struct {
	pool    *Pool
	cfg     Config
	shuffle func(n int, swap func(i, j int))
}

// InjectorOption customizes an Injector
type InjectorOption func(*Injector)

// WithShuffle overrides the position shuffler, used in tests for
// deterministic placement
func WithShuffle(shuffle func(n int, swap func(i, j int))) InjectorOption {
	return func(inj *Injector) { inj.shuffle = shuffle }
}

// NewInjector creates an injector over the given pool. The config is
// assumed validated.
func NewInjector(pool *Pool, cfg Config, opts ...InjectorOption) *Injector {
	inj := &Injector{pool: pool, cfg: cfg, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(inj)
	}
	return inj
}

// Inject mixes ads into items and returns the combined sequence plus the
// number of ads placed. Items are split into consecutive windows of
// WindowSize (the last may be shorter); a window gets ads only when it ends
// past startFrom and holds at least two items. Within a window,
// min(AdsPerWindow, len/2) positions are picked at random so that no two
// are adjacent, and one ad is inserted before each picked item. Ads rotate
// through the pool round-robin; each injected copy gets a unique id suffix
// so repeated ads within one response stay uniquely keyed.
func (inj *Injector) Inject(items []domain.FeedEntry, startFrom int) ([]domain.FeedEntry, int) {
	if !inj.cfg.Enabled || inj.pool.Count() == 0 || len(items) == 0 {
		return items, 0
	}

	result := make([]domain.FeedEntry, 0, len(items)+inj.cfg.AdsPerWindow*(len(items)/inj.cfg.WindowSize+1))
	injected, rotation := 0, 0

	for start := 0; start < len(items); start += inj.cfg.WindowSize {
		end := min(start+inj.cfg.WindowSize, len(items))
		window := items[start:end]

		if end <= startFrom || len(window) < 2 {
			result = append(result, window...)
			continue
		}

		k := min(inj.cfg.AdsPerWindow, len(window)/2)
		positions := inj.pickPositions(len(window), k)

		next := 0
		for i, entry := range window {
			if next < len(positions) && positions[next] == i {
				ad := inj.pool.GetByIndex(rotation)
				ad.ID = fmt.Sprintf("%s-%d", ad.ID, injected)
				ad.Sponsored = true
				result = append(result, domain.FeedEntry{Ad: &ad})
				injected++
				rotation++
				next++
			}
			result = append(result, entry)
		}
	}

	return result, injected
}

// pickPositions selects count positions in [0, windowLen) so that no two
// are adjacent: shuffle all candidates, greedily accept ones that don't
// neighbor an accepted position, then sort ascending for in-order insertion.
// A single greedy pass can settle on a maximal set smaller than count for
// dense configs, so it retries; count <= windowLen/2 guarantees a full set
// exists, and the every-other fallback covers the pathological case.
func (inj *Injector) pickPositions(windowLen, count int) []int {
	if count == 0 {
		return nil
	}

	avail := make([]int, windowLen)
	for i := range avail {
		avail[i] = i
	}

	for attempt := 0; attempt < 10; attempt++ {
		inj.shuffle(len(avail), func(i, j int) { avail[i], avail[j] = avail[j], avail[i] })

		picked := make([]int, 0, count)
		for _, pos := range avail {
			if len(picked) >= count {
				break
			}
			adjacent := false
			for _, p := range picked {
				if pos-p == 1 || p-pos == 1 {
					adjacent = true
					break
				}
			}
			if !adjacent {
				picked = append(picked, pos)
			}
		}

		if len(picked) == count {
			sort.Ints(picked)
			return picked
		}
	}

	picked := make([]int, 0, count)
	for pos := 0; len(picked) < count && pos < windowLen; pos += 2 {
		picked = append(picked, pos)
	}
	return picked
}
