package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// ErrNotFound is returned when a news item doesn't exist
var ErrNotFound = errors.New("news item not found")

// NewsRepository handles news-related database operations
type NewsRepository struct {
	db *sqlx.DB
}

// newsSQL represents a news item for SQL operations
type newsSQL struct {
	ID           int64      `db:"id"`
	Title        string     `db:"title"`
	Content      string     `db:"content"`
	Source       string     `db:"source"`
	SourceURL    string     `db:"source_url"`
	Category     string     `db:"category"`
	Flags        flagsSQL   `db:"flags"`
	Published    bool       `db:"published"`
	OriginalDate time.Time  `db:"original_date"`
	PublishedAt  *time.Time `db:"published_at"`
	ScrapedAt    time.Time  `db:"scraped_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// flagsSQL is a JSON array of flag strings for SQL operations
type flagsSQL []domain.Flag

// Value implements driver.Valuer for database storage
func (f flagsSQL) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for database retrieval
func (f *flagsSQL) Scan(value interface{}) error {
	if value == nil {
		*f = flagsSQL{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return json.Unmarshal([]byte("[]"), f)
	}

	return json.Unmarshal(data, f)
}

// Filter describes the published-feed query. Flags are OR-ed with each
// other and AND-ed with category; Cursor is an exclusive upper bound on
// original_date.
type Filter struct {
	Category domain.Category
	Flags    []domain.Flag
	Cursor   *time.Time
	Limit    int
}

// NewNewsRepository creates a new news repository
func NewNewsRepository(database *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: database}
}

// Insert stores a candidate as an unpublished news item. The dedup key
// (title, source, original_date) is enforced with OR IGNORE, so a racing
// duplicate insert is a no-op; either way the persisted row is returned.
func (r *NewsRepository) Insert(ctx context.Context, c domain.Candidate) (*domain.NewsItem, error) {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		query := `
			INSERT OR IGNORE INTO news (title, content, source, source_url, category, original_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := r.db.ExecContext(ctx, query,
			c.Title, c.Content, c.Source, c.SourceURL, string(c.Category), c.OriginalDate.UTC())
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("insert news: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindDuplicate(ctx, c.Title, c.Source, c.OriginalDate)
}

// FindDuplicate looks up a news item by the dedup key, nil when absent
func (r *NewsRepository) FindDuplicate(ctx context.Context, title, source string, originalDate time.Time) (*domain.NewsItem, error) {
	var row newsSQL
	query := "SELECT * FROM news WHERE title = ? AND source = ? AND original_date = ?"
	err := r.db.GetContext(ctx, &row, query, title, source, originalDate.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return r.toDomain(&row), nil
}

// GetByID retrieves a news item by id, ErrNotFound when absent
func (r *NewsRepository) GetByID(ctx context.Context, id int64) (*domain.NewsItem, error) {
	var row newsSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM news WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get news item: %w", err)
	}
	return r.toDomain(&row), nil
}

// ListPublished returns a page of published items, most recent
// original_date first
func (r *NewsRepository) ListPublished(ctx context.Context, filter Filter) ([]domain.NewsItem, error) {
	query := "SELECT * FROM news WHERE published = 1"
	args := []interface{}{}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}

	if len(filter.Flags) > 0 {
		in, inArgs, err := sqlx.In("SELECT 1 FROM json_each(news.flags) WHERE json_each.value IN (?)", filter.Flags)
		if err != nil {
			return nil, fmt.Errorf("build flags clause: %w", err)
		}
		query += " AND EXISTS (" + in + ")"
		args = append(args, inArgs...)
	}

	if filter.Cursor != nil {
		query += " AND original_date < ?"
		args = append(args, filter.Cursor.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY original_date DESC LIMIT ?"
	args = append(args, limit)

	var rows []newsSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	items := make([]domain.NewsItem, len(rows))
	for i := range rows {
		items[i] = *r.toDomain(&rows[i])
	}
	return items, nil
}

// ListUnpublished returns the moderation queue, most recent first
func (r *NewsRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []newsSQL
	query := "SELECT * FROM news WHERE published = 0 ORDER BY original_date DESC LIMIT ?"
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list unpublished: %w", err)
	}

	items := make([]domain.NewsItem, len(rows))
	for i := range rows {
		items[i] = *r.toDomain(&rows[i])
	}
	return items, nil
}

// SetPublished flips the published state and replaces the flag set.
// Publishing stamps published_at once, unpublishing clears it.
func (r *NewsRepository) SetPublished(ctx context.Context, id int64, published bool, flags []domain.Flag) (*domain.NewsItem, error) {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		query := `
			UPDATE news
			SET published = ?,
			    flags = ?,
			    published_at = CASE WHEN ? THEN COALESCE(published_at, datetime('now')) ELSE NULL END
			WHERE id = ?
		`
		res, err := r.db.ExecContext(ctx, query, published, flagsSQL(flags), published, id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("set published: %w", err)}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("rows affected: %w", err)}
		}
		if affected == 0 {
			return &criticalError{err: ErrNotFound}
		}
		return nil
	})
	if err != nil {
		var crit *criticalError
		if errors.As(err, &crit) && errors.Is(crit.err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a news item, ErrNotFound when absent
func (r *NewsRepository) Delete(ctx context.Context, id int64) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		res, err := r.db.ExecContext(ctx, "DELETE FROM news WHERE id = ?", id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("delete news item: %w", err)}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("rows affected: %w", err)}
		}
		if affected == 0 {
			return &criticalError{err: ErrNotFound}
		}
		return nil
	})
}

// DeleteBatch removes the given ids, returning how many rows were deleted.
// Missing ids are not an error.
func (r *NewsRepository) DeleteBatch(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("DELETE FROM news WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("build delete batch: %w", err)
	}

	var deleted int64
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err = retrier.Do(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("delete batch: %w", err)}
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("rows affected: %w", err)}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// toDomain converts a SQL row to the domain type
func (r *NewsRepository) toDomain(row *newsSQL) *domain.NewsItem {
	return &domain.NewsItem{
		ID:           row.ID,
		Title:        row.Title,
		Content:      row.Content,
		Source:       row.Source,
		SourceURL:    row.SourceURL,
		Category:     domain.Category(row.Category),
		Flags:        row.Flags,
		Published:    row.Published,
		OriginalDate: row.OriginalDate,
		PublishedAt:  row.PublishedAt,
		ScrapedAt:    row.ScrapedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
