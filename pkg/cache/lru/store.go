// Package lru bounds the number of results kept in memory in front of a
// persistent store. Eviction drops only the memory copy; the backing store
// keeps every entry, so a hit always equals the last Put for that fingerprint.
package lru

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/models"
)

// item holds the encoded result so callers never share a map with the cache.
type item struct {
	fp   cache.Fingerprint
	data []byte
}

// Store is a least-recently-used memory layer over a backing cache.Store.
type Store struct {
	next     cache.Store
	capacity int

	// writeMu orders writes so memory follows the backing store's last write.
	writeMu sync.Mutex

	mu      sync.Mutex
	order   *list.List
	items   map[cache.Fingerprint]*list.Element
	version uint64 // bumped on every write; a fill that raced one is dropped
}

// New wraps next with an LRU of at most capacity entries.
func New(next cache.Store, capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		next:     next,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cache.Fingerprint]*list.Element),
	}
}

// Get serves from memory when possible and fills memory from the backing store otherwise.
func (s *Store) Get(ctx context.Context, fp cache.Fingerprint) (models.AnalysisResult, bool, error) {
	s.mu.Lock()
	if el, ok := s.items[fp]; ok {
		s.order.MoveToFront(el)
		data := el.Value.(*item).data
		s.mu.Unlock()
		res, err := decode(fp, data)
		return res, err == nil, err
	}
	seen := s.version
	s.mu.Unlock()

	res, ok, err := s.next.Get(ctx, fp)
	if err != nil || !ok {
		return res, ok, err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s: %w", fp, err)
	}

	s.mu.Lock()
	if s.version == seen {
		s.remember(fp, data)
	}
	s.mu.Unlock()
	return res, true, nil
}

// Put writes through to the backing store, then updates memory.
func (s *Store) Put(ctx context.Context, fp cache.Fingerprint, result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s: %w", fp, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = s.next.Put(ctx, fp, result)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	if err != nil {
		s.forget(fp)
		return err
	}
	s.remember(fp, data)
	return nil
}

// Clear empties memory and the backing store.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.next.Clear(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.order.Init()
	s.items = make(map[cache.Fingerprint]*list.Element)
	return err
}

// Len reports the backing store's size.
func (s *Store) Len(ctx context.Context) (int64, error) {
	return s.next.Len(ctx)
}

// Resident returns how many entries are held in memory.
func (s *Store) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Close closes the backing store.
func (s *Store) Close() error {
	return s.next.Close()
}

// remember and forget require s.mu.
func (s *Store) remember(fp cache.Fingerprint, data []byte) {
	if el, ok := s.items[fp]; ok {
		el.Value.(*item).data = data
		s.order.MoveToFront(el)
		return
	}
	s.items[fp] = s.order.PushFront(&item{fp: fp, data: data})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*item).fp)
	}
}

func (s *Store) forget(fp cache.Fingerprint) {
	if el, ok := s.items[fp]; ok {
		s.order.Remove(el)
		delete(s.items, fp)
	}
}

func decode(fp cache.Fingerprint, data []byte) (models.AnalysisResult, error) {
	var res models.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fp, err)
	}
	return res, nil
}

// Entries lists the backing store's entries when it supports listing.
func (s *Store) Entries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	l, ok := s.next.(cache.Lister)
	if !ok {
		return nil, cache.ErrNotListable
	}
	return l.Entries(ctx, limit)
}
