// Package cache stores the recommendations of a matching run in Redis, keyed
// by a digest of the validated input and matcher options, and collapses
// concurrent identical runs with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/matcher"
	pkgredis "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/redis"
)

const keyPrefix = "gap:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CountByPattern(ctx context.Context, pattern string) (int64, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache caches recommendation lists.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a ResultCache whose entries expire after ttl.
func New(backend Backend, ttl time.Duration) *ResultCache {
	return &ResultCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Key derives the cache key for a run. Matcher options are part of the key
// because they change the relevance scores.
func Key(pages []gap.ContentPage, queries []gap.Query, opts matcher.Options) (string, error) {
	payload := struct {
		Pages        []gap.ContentPage `json:"p"`
		Queries      []gap.Query       `json:"q"`
		CapRelevance bool              `json:"c"`
	}{pages, queries, opts.CapRelevance}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:16]), nil
}

// Get returns the cached recommendations for key.
func (c *ResultCache) Get(ctx context.Context, key string) ([]gap.Recommendation, bool) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var recs []gap.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key, "recommendations", len(recs))
	return recs, true
}

// Set stores recs under key. Failures are logged, not returned: the cache
// is an optimisation.
func (c *ResultCache) Set(ctx context.Context, key string, recs []gap.Recommendation) {
	data, err := json.Marshal(recs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or runs computeFn once,
// even when several callers ask for the same key concurrently.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() ([]gap.Recommendation, error),
) ([]gap.Recommendation, bool, error) {
	if recs, ok := c.Get(ctx, key); ok {
		return recs, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		recs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, recs)
		return recs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]gap.Recommendation), false, nil
}

// Invalidate drops every cached run.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

// Stats reports hit/miss counters since start and the current entry count.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// Stats returns the cache counters. Entries is -1 when Redis cannot be
// scanned.
func (c *ResultCache) Stats(ctx context.Context) Stats {
	entries, err := c.backend.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		c.logger.Warn("cache entry count failed", "error", err)
		entries = -1
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: entries}
}
