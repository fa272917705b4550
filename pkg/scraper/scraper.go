// Package scraper contains the source parsers that pull SUNAT-related
// content from external sites and the runner that persists their results
// with deduplication and run logging.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// Source is a single external content origin. Implementations fetch raw
// bytes and parse them into zero or more normalized candidates.
type Source interface {
	Name() string
	FetchAndParse(ctx context.Context) ([]domain.Candidate, error)
}

// Config identifies a configured scraper in the registry
type Config struct {
	Name     string
	Schedule string // cron expression
	Enabled  bool
}

// Result is the outcome of one runner execution, safe to return to HTTP
// callers as-is
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Store is the persistence port consumed by the runner
type Store interface {
	FindDuplicate(ctx context.Context, title, source string, originalDate time.Time) (*domain.NewsItem, error)
	Insert(ctx context.Context, c domain.Candidate) (*domain.NewsItem, error)
	InsertRun(ctx context.Context, scraperName string, startedAt time.Time) (int64, error)
	CompleteRun(ctx context.Context, runID int64, status domain.RunStatus, itemsScraped int, errMsg string) error
}

// Hook runs before a scrape; PostHook runs after a successful scrape with
// the parsed candidates
type (
	Hook     func(ctx context.Context) error
	PostHook func(ctx context.Context, items []domain.Candidate) error
)

// Runner wraps a Source with run logging, deduplicated persistence and
// optional lifecycle hooks. Errors never escape Execute; the scheduler only
// ever sees a Result.
type Runner struct {
	source Source
	cfg    Config
	store  Store
	before Hook
	after  PostHook
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithBeforeHook sets a hook invoked before the scrape
func WithBeforeHook(h Hook) RunnerOption {
	return func(r *Runner) { r.before = h }
}

// WithAfterHook sets a hook invoked after a successful scrape
func WithAfterHook(h PostHook) RunnerOption {
	return func(r *Runner) { r.after = h }
}

// NewRunner creates a runner for the given source
func NewRunner(source Source, cfg Config, store Store, opts ...RunnerOption) *Runner {
	r := &Runner{source: source, cfg: cfg, store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the runner configuration
func (r *Runner) Config() Config { return r.cfg }

// Execute performs one run: log start, scrape, persist with dedup, finalize
// the log entry exactly once with SUCCESS or FAILURE.
func (r *Runner) Execute(ctx context.Context) Result {
	runID, err := r.store.InsertRun(ctx, r.cfg.Name, time.Now())
	if err != nil {
		lgr.Printf("[ERROR] scraper %s: can't create run log entry: %v", r.cfg.Name, err)
		return Result{Success: false, Count: 0, Error: err.Error()}
	}

	items, err := r.run(ctx)
	if err != nil {
		if logErr := r.store.CompleteRun(ctx, runID, domain.RunFailure, 0, err.Error()); logErr != nil {
			lgr.Printf("[ERROR] scraper %s: can't finalize run log: %v", r.cfg.Name, logErr)
		}
		lgr.Printf("[WARN] scraper %s failed: %v", r.cfg.Name, err)
		return Result{Success: false, Count: 0, Error: err.Error()}
	}

	if logErr := r.store.CompleteRun(ctx, runID, domain.RunSuccess, len(items), ""); logErr != nil {
		lgr.Printf("[ERROR] scraper %s: can't finalize run log: %v", r.cfg.Name, logErr)
	}
	lgr.Printf("[INFO] scraper %s scraped %d items", r.cfg.Name, len(items))
	return Result{Success: true, Count: len(items)}
}

// run executes hooks, scrape and persistence; any error is terminal for the
// run. Panics in sources or hooks are turned into errors so a bad scraper
// can't take down the scheduler and the run log row is still finalized.
func (r *Runner) run(ctx context.Context) (items []domain.Candidate, err error) {
	defer func() {
		if p := recover(); p != nil {
			items, err = nil, fmt.Errorf("scraper %s panicked: %v", r.cfg.Name, p)
		}
	}()

	if r.before != nil {
		if err := r.before(ctx); err != nil {
			return nil, err
		}
	}

	items, err = r.source.FetchAndParse(ctx)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := r.save(ctx, items); err != nil {
			return nil, err
		}
	}

	if r.after != nil {
		if err := r.after(ctx, items); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// save persists candidates, skipping ones already present by
// (title, source, originalDate). The store additionally enforces the same
// key with a unique constraint, so a concurrent run of the same scraper
// can't produce duplicate rows.
func (r *Runner) save(ctx context.Context, items []domain.Candidate) error {
	for _, item := range items {
		existing, err := r.store.FindDuplicate(ctx, item.Title, item.Source, item.OriginalDate)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := r.store.Insert(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
