// Package redis stores analysis results in Redis, one key per fingerprint.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/models"
)

const scanBatch = 200

// Store keeps entries at <prefix><fingerprint> with no expiry.
type Store struct {
	client *goredis.Client
	prefix string
}

// New connects to the Redis instance at url and verifies it answers.
func New(ctx context.Context, url, prefix string) (*Store, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(fp cache.Fingerprint) string {
	return s.prefix + string(fp)
}

// Get reads the entry for fp.
func (s *Store) Get(ctx context.Context, fp cache.Fingerprint) (models.AnalysisResult, bool, error) {
	data, err := s.client.Get(ctx, s.key(fp)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var res models.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil || res == nil {
		return nil, false, fmt.Errorf("%w: key %s", cache.ErrCorrupt, s.key(fp))
	}
	return res, true, nil
}

// Put writes the entry for fp. SET is atomic per key.
func (s *Store) Put(ctx context.Context, fp cache.Fingerprint, result models.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(fp), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	return s.scan(ctx, func(keys []string) error {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	})
}

// Len counts keys under the prefix.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var n int64
	err := s.scan(ctx, func(keys []string) error {
		n += int64(len(keys))
		return nil
	})
	return n, err
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
