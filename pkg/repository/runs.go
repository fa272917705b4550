package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// RunRepository handles the scraper run-history log
type RunRepository struct {
	db *sqlx.DB
}

// runSQL represents a scraper run for SQL operations
type runSQL struct {
	ID           int64      `db:"id"`
	ScraperName  string     `db:"scraper_name"`
	Status       string     `db:"status"`
	ItemsScraped int        `db:"items_scraped"`
	ErrorMessage string     `db:"error_message"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// NewRunRepository creates a new run repository
func NewRunRepository(database *sqlx.DB) *RunRepository {
	return &RunRepository{db: database}
}

// InsertRun opens a run-log row in IN_PROGRESS state and returns its id
func (r *RunRepository) InsertRun(ctx context.Context, scraperName string, startedAt time.Time) (int64, error) {
	var id int64
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		query := "INSERT INTO scraper_runs (scraper_name, status, started_at) VALUES (?, ?, ?)"
		res, err := r.db.ExecContext(ctx, query, scraperName, string(domain.RunInProgress), startedAt.UTC())
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("insert run: %w", err)}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CompleteRun finalizes a run-log row with a terminal status
func (r *RunRepository) CompleteRun(ctx context.Context, runID int64, status domain.RunStatus, itemsScraped int, errMsg string) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			UPDATE scraper_runs
			SET status = ?, items_scraped = ?, error_message = ?, completed_at = datetime('now')
			WHERE id = ?
		`
		_, err := r.db.ExecContext(ctx, query, string(status), itemsScraped, errMsg, runID)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("complete run: %w", err)}
		}
		return nil
	})
}

// ListRuns returns recent runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.ScraperRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runSQL
	query := "SELECT * FROM scraper_runs ORDER BY started_at DESC, id DESC LIMIT ?"
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]domain.ScraperRun, len(rows))
	for i, row := range rows {
		runs[i] = domain.ScraperRun{
			ID:           row.ID,
			ScraperName:  row.ScraperName,
			Status:       domain.RunStatus(row.Status),
			ItemsScraped: row.ItemsScraped,
			ErrorMessage: row.ErrorMessage,
			StartedAt:    row.StartedAt,
			CompletedAt:  row.CompletedAt,
		}
	}
	return runs, nil
}
