// Package scheduler arms cron entries for the registered scrapers and
// exposes manual triggering by name.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/nmitic/sunat-noticia/pkg/scraper"
)

// ErrScraperNotFound is returned by RunManually for an unknown name
var ErrScraperNotFound = errors.New("scraper not found")

// Runner is one registered scraper execution unit
type Runner interface {
	Config() scraper.Config
	Execute(ctx context.Context) scraper.Result
}

// cronLogger routes cron engine messages into lgr
type cronLogger struct{}

func (cronLogger) Printf(format string, args ...interface{}) {
	lgr.Printf("[WARN] cron: "+format, args...)
}

type state int

const (
	stateIdle state = iota
	stateRunning
)

// Scheduler holds the scraper registry and drives scheduled runs through a
// cron engine. The registry is read-only after construction; only the
// start/stop state is guarded.
type Scheduler struct {
	runners map[string]Runner
	order   []string

	mu     sync.Mutex
	state  state
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New creates a scheduler over the given runners. Names must be unique.
func New(runners []Runner) (*Scheduler, error) {
	s := &Scheduler{runners: make(map[string]Runner, len(runners))}
	for _, r := range runners {
		name := r.Config().Name
		if _, ok := s.runners[name]; ok {
			return nil, fmt.Errorf("duplicate scraper name %q", name)
		}
		s.runners[name] = r
		s.order = append(s.order, name)
	}
	return s, nil
}

// Start arms a cron entry for every enabled runner and starts the engine.
// Calling Start on a running scheduler is a no-op, concurrent callers
// resolve through the mutex. Scheduled runs are canceled when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRunning {
		lgr.Printf("[DEBUG] scheduler already running, start ignored")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	// a panicking job must not kill the process; runners also recover on
	// their own, this covers anything outside their boundary
	engine := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(cronLogger{}))))

	armed := 0
	for _, name := range s.order {
		r := s.runners[name]
		cfg := r.Config()
		if !cfg.Enabled {
			lgr.Printf("[INFO] scraper %s disabled, not scheduled", cfg.Name)
			continue
		}
		runner := r // capture for the closure
		if _, err := engine.AddFunc(cfg.Schedule, func() { runner.Execute(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("schedule %q for scraper %s: %w", cfg.Schedule, cfg.Name, err)
		}
		lgr.Printf("[INFO] scraper %s scheduled with %q", cfg.Name, cfg.Schedule)
		armed++
	}

	engine.Start()
	s.cron, s.cancel, s.state = engine, cancel, stateRunning
	lgr.Printf("[INFO] scheduler started, %d of %d scrapers armed", armed, len(s.order))
	return nil
}

// Stop halts the cron engine and cancels in-flight runs. Safe to call on a
// stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cancel()
	s.cron, s.cancel, s.state = nil, nil, stateIdle
	lgr.Printf("[INFO] scheduler stopped")
}

// RunManually executes the named scraper synchronously, regardless of its
// enabled flag or the scheduler state
func (s *Scheduler) RunManually(ctx context.Context, name string) (scraper.Result, error) {
	r, ok := s.runners[name]
	if !ok {
		return scraper.Result{}, fmt.Errorf("%q: %w", name, ErrScraperNotFound)
	}
	lgr.Printf("[INFO] manual run of scraper %s", name)
	return r.Execute(ctx), nil
}

// List returns the registered scraper configs in registration order
func (s *Scheduler) List() []scraper.Config {
	res := make([]scraper.Config, 0, len(s.order))
	for _, name := range s.order {
		res = append(res, s.runners[name].Config())
	}
	return res
}
