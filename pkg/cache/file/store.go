// Package file stores analysis results as one pretty-printed JSON file per
// fingerprint, so entries can be inspected and removed by hand.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/models"
)

const ext = ".json"

// lockStripes bounds the number of mutexes; fingerprints share a stripe by hash.
const lockStripes = 256

// Store keeps entries under dir as <fingerprint>.json.
type Store struct {
	dir   string
	locks [lockStripes]sync.Mutex
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds fp.
func (s *Store) Path(fp cache.Fingerprint) string {
	return filepath.Join(s.dir, string(fp)+ext)
}

// lock serializes writers and readers of a single fingerprint.
func (s *Store) lock(fp cache.Fingerprint) func() {
	l := &s.locks[stripe(fp)]
	l.Lock()
	return l.Unlock
}

func stripe(fp cache.Fingerprint) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fp))
	return h.Sum32() % lockStripes
}

// Get reads the entry for fp.
func (s *Store) Get(_ context.Context, fp cache.Fingerprint) (models.AnalysisResult, bool, error) {
	if !fp.Valid() {
		return nil, false, fmt.Errorf("%w: %q", cache.ErrInvalidFingerprint, fp)
	}
	unlock := s.lock(fp)
	defer unlock()

	data, err := os.ReadFile(s.Path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	var res models.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil || res == nil {
		return nil, false, fmt.Errorf("%w: %s", cache.ErrCorrupt, s.Path(fp))
	}
	return res, true, nil
}

// Put writes the entry for fp atomically: readers see the old file or the new one.
func (s *Store) Put(_ context.Context, fp cache.Fingerprint, result models.AnalysisResult) error {
	if !fp.Valid() {
		return fmt.Errorf("%w: %q", cache.ErrInvalidFingerprint, fp)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	unlock := s.lock(fp)
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, "."+string(fp)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(fp)); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every fingerprint file. Other files in the directory are left alone.
func (s *Store) Clear(_ context.Context) error {
	names, err := s.entries()
	if err != nil {
		return err
	}
	for _, name := range names {
		fp := cache.Fingerprint(strings.TrimSuffix(name, ext))
		unlock := s.lock(fp)
		err := os.Remove(filepath.Join(s.dir, name))
		unlock()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	return nil
}

// Len counts fingerprint files.
func (s *Store) Len(_ context.Context) (int64, error) {
	names, err := s.entries()
	if err != nil {
		return 0, err
	}
	return int64(len(names)), nil
}

// Entries lists up to limit entries by modification time, newest first.
// Corrupt files are listed without a result.
func (s *Store) Entries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	names, err := s.entries()
	if err != nil {
		return nil, err
	}
	out := make([]models.CacheEntry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		fp := cache.Fingerprint(strings.TrimSuffix(name, ext))
		res, _, _ := s.Get(ctx, fp)
		out = append(out, models.CacheEntry{Fingerprint: fp.String(), Result: res, CreatedAt: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op; files need no teardown.
func (s *Store) Close() error { return nil }

func (s *Store) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		if cache.Fingerprint(strings.TrimSuffix(e.Name(), ext)).Valid() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
