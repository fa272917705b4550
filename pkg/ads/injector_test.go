package ads

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

func testPool() *Pool {
	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewPool([]domain.Ad{
		{ID: "ad-dabog", Title: "Dabog", Source: "Dabog", Category: domain.CategoryNoticias, OriginalDate: date},
		{ID: "ad-perunio", Title: "Perunio", Source: "Perunio", Category: domain.CategoryNoticias, OriginalDate: date},
	})
}

func newsEntries(n int) []domain.FeedEntry {
	entries := make([]domain.FeedEntry, n)
	for i := range entries {
		entries[i] = domain.FeedEntry{News: &domain.NewsItem{
			ID:           int64(i + 1),
			Title:        "noticia " + strconv.Itoa(i+1),
			Source:       "SUNAT",
			OriginalDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Hour),
		}}
	}
	return entries
}

func countAds(entries []domain.FeedEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsAd() {
			n++
		}
	}
	return n
}

func TestConfig_Validate(t *testing.T) {
	tbl := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1}, true},
		{"max density", Config{Enabled: true, WindowSize: 10, AdsPerWindow: 5}, true},
		{"zero ads", Config{Enabled: true, WindowSize: 10, AdsPerWindow: 0}, true},
		{"window too small", Config{Enabled: true, WindowSize: 1, AdsPerWindow: 0}, false},
		{"negative ads", Config{Enabled: true, WindowSize: 10, AdsPerWindow: -1}, false},
		{"too dense", Config{Enabled: true, WindowSize: 10, AdsPerWindow: 6}, false},
		{"odd window rounds down", Config{Enabled: true, WindowSize: 5, AdsPerWindow: 3}, false},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestInjector_Inject_NoOp(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		inj := NewInjector(testPool(), Config{Enabled: false, WindowSize: 10, AdsPerWindow: 1})
		items := newsEntries(10)
		out, n := inj.Inject(items, 0)
		assert.Equal(t, 0, n)
		assert.Equal(t, items, out)
	})

	t.Run("empty pool", func(t *testing.T) {
		inj := NewInjector(NewPool(nil), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
		items := newsEntries(10)
		out, n := inj.Inject(items, 0)
		assert.Equal(t, 0, n)
		assert.Equal(t, items, out)
	})

	t.Run("empty items", func(t *testing.T) {
		inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
		out, n := inj.Inject(nil, 0)
		assert.Equal(t, 0, n)
		assert.Empty(t, out)
	})

	t.Run("single item window passes through", func(t *testing.T) {
		inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
		out, n := inj.Inject(newsEntries(1), 0)
		assert.Equal(t, 0, n)
		assert.Len(t, out, 1)
	})
}

func TestInjector_Inject_SingleFullWindow(t *testing.T) {
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
	out, n := inj.Inject(newsEntries(10), 0)

	assert.Equal(t, 1, n)
	require.Len(t, out, 11)
	assert.Equal(t, 1, countAds(out))
	assertNoAdjacentAds(t, out)
}

func TestInjector_Inject_ShortWindow(t *testing.T) {
	// 3 items, window 10: still eligible, k = min(1, 3/2) = 1
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
	out, n := inj.Inject(newsEntries(3), 0)

	assert.Equal(t, 1, n)
	require.Len(t, out, 4)
	assert.Equal(t, 1, countAds(out))
}

func TestInjector_Inject_StartFromSkipsEarlyWindows(t *testing.T) {
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 1})
	out, n := inj.Inject(newsEntries(20), 10)

	assert.Equal(t, 1, n, "only the second window is eligible")
	require.Len(t, out, 21)
	for i := 0; i < 10; i++ {
		assert.False(t, out[i].IsAd(), "entry %d before start_from must be news", i)
	}
}

func TestInjector_Inject_NonAdjacencyProperty(t *testing.T) {
	// densest valid config, repeated with the real shuffler
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 10, AdsPerWindow: 5})
	for i := 0; i < 200; i++ {
		out, n := inj.Inject(newsEntries(30), 0)
		require.Equal(t, 15, n, "each full window takes exactly min(adsPerWindow, len/2) ads")
		require.Len(t, out, 45)
		assertNoAdjacentAds(t, out)
		require.Equal(t, 30, len(out)-countAds(out), "no news item dropped")
	}
}

func TestInjector_Inject_RoundRobinAndUniqueIDs(t *testing.T) {
	// identity shuffle keeps candidate order, the greedy pass then accepts
	// positions 0, 2, 4, ...
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 4, AdsPerWindow: 2},
		WithShuffle(func(int, func(i, j int)) {}))
	out, n := inj.Inject(newsEntries(8), 0)

	require.Equal(t, 4, n)
	var ads []domain.Ad
	for _, e := range out {
		if e.IsAd() {
			ads = append(ads, *e.Ad)
		}
	}
	require.Len(t, ads, 4)
	assert.Equal(t, "ad-dabog-0", ads[0].ID)
	assert.Equal(t, "ad-perunio-1", ads[1].ID)
	assert.Equal(t, "ad-dabog-2", ads[2].ID, "pool rotation wraps with modulo")
	assert.Equal(t, "ad-perunio-3", ads[3].ID)
	for _, ad := range ads {
		assert.True(t, ad.Sponsored)
	}
}

func TestInjector_Inject_PreservesNewsOrder(t *testing.T) {
	inj := NewInjector(testPool(), Config{Enabled: true, WindowSize: 5, AdsPerWindow: 2})
	out, _ := inj.Inject(newsEntries(23), 0)

	var ids []int64
	for _, e := range out {
		if !e.IsAd() {
			ids = append(ids, e.News.ID)
		}
	}
	require.Len(t, ids, 23)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

func TestPool_GetByIndex(t *testing.T) {
	pool := testPool()
	assert.Equal(t, 2, pool.Count())
	assert.Equal(t, "ad-dabog", pool.GetByIndex(0).ID)
	assert.Equal(t, "ad-perunio", pool.GetByIndex(1).ID)
	assert.Equal(t, "ad-dabog", pool.GetByIndex(2).ID)
	assert.Equal(t, "ad-perunio", pool.GetByIndex(5).ID)
}

func assertNoAdjacentAds(t *testing.T, entries []domain.FeedEntry) {
	t.Helper()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].IsAd() && entries[i].IsAd() {
			t.Fatalf("adjacent ads at positions %d and %d: %s", i-1, i, fmt.Sprint(entries[i-1].Ad.ID, entries[i].Ad.ID))
		}
	}
}
