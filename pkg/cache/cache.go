package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/models"
)

var (
	// ErrIO wraps any storage-layer failure. It is never turned into a miss.
	ErrIO = errors.New("cache io error")
	// ErrCorrupt marks a stored entry that exists but cannot be decoded.
	// Cache.Get treats it as a miss; the next Put overwrites the entry.
	ErrCorrupt = errors.New("cache entry corrupt")
	// ErrInvalidFingerprint is returned for keys not produced by NewFingerprint.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	// ErrNotListable is returned by Entries when the store cannot enumerate.
	ErrNotListable = errors.New("cache backend cannot list entries")
)

// Store persists analysis results keyed by fingerprint.
// Get returns (nil, false, nil) on a miss and an error wrapping ErrCorrupt
// when the stored representation fails to parse.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (models.AnalysisResult, bool, error)
	Put(ctx context.Context, fp Fingerprint, result models.AnalysisResult) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int64, error)
	Close() error
}

// Lister is implemented by stores that can enumerate their entries.
type Lister interface {
	Entries(ctx context.Context, limit int) ([]models.CacheEntry, error)
}

// Cache is a content-addressed result cache over a Store.
// There is no expiry: entries live until Clear.
type Cache struct {
	store   Store
	backend string
	log     *zap.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	corrupt atomic.Int64
}

// New creates a Cache over store. backend names the store in stats and logs.
func New(store Store, backend string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, backend: backend, log: logger.Named("cache")}
}

// Get returns the result stored for fp, if any.
func (c *Cache) Get(ctx context.Context, fp Fingerprint) (models.AnalysisResult, bool, error) {
	res, ok, err := c.store.Get(ctx, fp)
	switch {
	case errors.Is(err, ErrCorrupt):
		c.corrupt.Add(1)
		c.misses.Add(1)
		c.log.Warn("corrupt cache entry treated as miss", zap.String("fingerprint", fp.String()), zap.Error(err))
		return nil, false, nil
	case err != nil:
		return nil, false, ioError("get", err)
	case !ok:
		c.misses.Add(1)
		c.log.Debug("cache miss", zap.String("fingerprint", fp.String()))
		return nil, false, nil
	}
	c.hits.Add(1)
	c.log.Debug("cache hit", zap.String("fingerprint", fp.String()))
	return res, true, nil
}

// Put stores result under fp, replacing any previous entry for the same fingerprint.
func (c *Cache) Put(ctx context.Context, fp Fingerprint, result models.AnalysisResult) error {
	if err := c.store.Put(ctx, fp, result); err != nil {
		return ioError("put", err)
	}
	return nil
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return ioError("clear", err)
	}
	c.log.Info("cache cleared", zap.String("backend", c.backend))
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	n, err := c.store.Len(ctx)
	if err != nil {
		return models.CacheStats{}, ioError("stats", err)
	}
	return models.CacheStats{
		Backend: c.backend,
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Corrupt: c.corrupt.Load(),
	}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Entries lists up to limit stored entries, newest first.
func (c *Cache) Entries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	l, ok := c.store.(Lister)
	if !ok {
		return nil, fmt.Errorf("%s: %w", c.backend, ErrNotListable)
	}
	entries, err := l.Entries(ctx, limit)
	if errors.Is(err, ErrNotListable) {
		return nil, fmt.Errorf("%s: %w", c.backend, err)
	}
	if err != nil {
		return nil, ioError("list", err)
	}
	return entries, nil
}

func ioError(op string, err error) error {
	if errors.Is(err, ErrIO) {
		return fmt.Errorf("cache %s: %w", op, err)
	}
	return fmt.Errorf("cache %s: %w: %w", op, ErrIO, err)
}
