package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/models"
)

// Store is a fingerprint-keyed result store backed by SQLite.
type Store struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	result TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// One connection keeps writes strictly serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves the stored result for fp.
func (s *Store) Get(ctx context.Context, fp cache.Fingerprint) (models.AnalysisResult, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM cache_entries WHERE fingerprint = ?`, string(fp),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var res models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil || res == nil {
		return nil, false, fmt.Errorf("%w: fingerprint %s", cache.ErrCorrupt, fp)
	}
	return res, true, nil
}

// Put stores a result, replacing any row for the same fingerprint.
func (s *Store) Put(ctx context.Context, fp cache.Fingerprint, result models.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (fingerprint, result, created_at) VALUES (?, ?, ?)`,
		string(fp), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Entries lists stored entries, newest first.
func (s *Store) Entries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, result, created_at FROM cache_entries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		var raw string
		if err := rows.Scan(&e.Fingerprint, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		// Corrupt rows are listed without a result.
		_ = json.Unmarshal([]byte(raw), &e.Result)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Clear removes all cache entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
