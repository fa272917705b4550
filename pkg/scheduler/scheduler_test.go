package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmitic/sunat-noticia/pkg/scraper"
)

// runnerMock implements Runner, counting executions
type runnerMock struct {
	cfg   scraper.Config
	res   scraper.Result
	calls int64
}

func (r *runnerMock) Config() scraper.Config { return r.cfg }
func (r *runnerMock) Execute(context.Context) scraper.Result {
	atomic.AddInt64(&r.calls, 1)
	return r.res
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := New([]Runner{
		&runnerMock{cfg: scraper.Config{Name: "mensajes"}},
		&runnerMock{cfg: scraper.Config{Name: "mensajes"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New([]Runner{
		&runnerMock{cfg: scraper.Config{Name: "mensajes", Schedule: "@every 1h", Enabled: true}},
		&runnerMock{cfg: scraper.Config{Name: "facebook", Schedule: "@every 1h", Enabled: false}},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	s.Stop()
	s.Stop() // idempotent

	// can start again after stop
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestScheduler_Start_Concurrent(t *testing.T) {
	s, err := New([]Runner{
		&runnerMock{cfg: scraper.Config{Name: "mensajes", Schedule: "@every 1h", Enabled: true}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Start(context.Background()))
		}()
	}
	wg.Wait()
	s.Stop()
}

// panickyRunner implements Runner and always panics
type panickyRunner struct {
	cfg   scraper.Config
	calls int64
}

func (r *panickyRunner) Config() scraper.Config { return r.cfg }
func (r *panickyRunner) Execute(context.Context) scraper.Result {
	atomic.AddInt64(&r.calls, 1)
	panic("runner explotó")
}

func TestScheduler_PanickingJobDoesNotStopEngine(t *testing.T) {
	bad := &panickyRunner{cfg: scraper.Config{Name: "roto", Schedule: "@every 10ms", Enabled: true}}
	s, err := New([]Runner{bad})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// engine keeps firing past the first panic
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&bad.calls) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_Start_BadSchedule(t *testing.T) {
	s, err := New([]Runner{
		&runnerMock{cfg: scraper.Config{Name: "mensajes", Schedule: "not a cron expr", Enabled: true}},
	})
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mensajes")
}

func TestScheduler_RunManually(t *testing.T) {
	enabled := &runnerMock{
		cfg: scraper.Config{Name: "mensajes", Schedule: "@every 1h", Enabled: true},
		res: scraper.Result{Success: true, Count: 3},
	}
	disabled := &runnerMock{
		cfg: scraper.Config{Name: "facebook", Schedule: "@every 1h", Enabled: false},
		res: scraper.Result{Success: true, Count: 1},
	}
	s, err := New([]Runner{enabled, disabled})
	require.NoError(t, err)

	t.Run("known name", func(t *testing.T) {
		res, err := s.RunManually(context.Background(), "mensajes")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.Count)
		assert.Equal(t, int64(1), atomic.LoadInt64(&enabled.calls))
	})

	t.Run("disabled runner still triggerable", func(t *testing.T) {
		res, err := s.RunManually(context.Background(), "facebook")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(1), atomic.LoadInt64(&disabled.calls))
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := s.RunManually(context.Background(), "no-such-scraper")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScraperNotFound)
	})

	t.Run("works without start", func(t *testing.T) {
		res, err := s.RunManually(context.Background(), "mensajes")
		require.NoError(t, err)
		assert.True(t, res.Success)
	})
}

func TestScheduler_List(t *testing.T) {
	s, err := New([]Runner{
		&runnerMock{cfg: scraper.Config{Name: "mensajes", Schedule: "0 * * * *", Enabled: true}},
		&runnerMock{cfg: scraper.Config{Name: "facebook", Schedule: "30 * * * *", Enabled: false}},
	})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "mensajes", list[0].Name, "registration order preserved")
	assert.Equal(t, "facebook", list[1].Name)
	assert.False(t, list[1].Enabled)
}
