package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/storepilot/storepilot/pkg/models"
)

// Tracker records and queries analysis usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// Summary returns usage aggregated per task since a given time.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
	// Recent returns the newest records first.
	Recent(ctx context.Context, limit int) ([]models.UsageRecord, error)
	// TotalTokens returns the tokens spent since a given time, for one task
	// or for all tasks when task is empty.
	TotalTokens(ctx context.Context, task string, since time.Time) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	task TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	prompt_chars INTEGER NOT NULL DEFAULT 0,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cache_hit INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_task_time ON usage_records(task, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record. A zero CreatedAt is set to now.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (request_id, task, fingerprint, provider, model, prompt_chars,
		   prompt_tokens, completion_tokens, total_tokens, cache_hit, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Task, rec.Fingerprint, rec.Provider, rec.Model, rec.PromptChars,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CacheHit, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, request_id, task, fingerprint, provider, model, prompt_chars,
		   prompt_tokens, completion_tokens, total_tokens, cache_hit, created_at
		 FROM usage_records ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Task, &r.Fingerprint, &r.Provider, &r.Model, &r.PromptChars,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.CacheHit, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalTokens returns the tokens spent since a given time. An empty task counts all tasks.
func (t *SQLiteTracker) TotalTokens(ctx context.Context, task string, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(total_tokens), 0) FROM usage_records WHERE created_at >= ?`
	args := []any{since.UTC()}
	if task != "" {
		query += ` AND task = ?`
		args = append(args, task)
	}
	var total int64
	err := t.db.QueryRowContext(ctx, query, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// Summary returns usage grouped by task. A zero since includes everything.
func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	query := `SELECT task, COUNT(*), SUM(cache_hit), SUM(prompt_chars), SUM(total_tokens)
		 FROM usage_records`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY task ORDER BY task`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Task, &s.Calls, &s.CacheHits, &s.PromptChars, &s.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
