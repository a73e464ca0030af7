// Package cache stores computed layout snapshots and metric reports.
//
// Entries are opaque byte slices addressed by string keys. Keys are built by
// a [Keyer] from a content hash of the input graph plus every option that
// affects the result, so a changed graph or option never hits a stale entry.
//
// Backends:
//   - [FileCache]: one JSON file per entry, for CLI usage
//   - [RedisCache]: shared cache for served deployments
//   - [NewNullCache]: disables caching
//
// Wrap any backend with [Instrument] to report hits, misses, and writes to
// [observability.CacheHooks].
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/livegraph/pkg/observability"
)

// Cache is a key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored data and true, or false on a miss. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// instrumented reports cache traffic to hooks. The key type is the segment
// before the trailing hash, so scoped keys report the same type.
type instrumented struct {
	Cache
	hooks observability.CacheHooks
}

// Instrument wraps c so every Get and successful Set is reported to hooks.
// A nil hooks uses observability.Cache().
func Instrument(c Cache, hooks observability.CacheHooks) Cache {
	if hooks == nil {
		hooks = observability.Cache()
	}
	return &instrumented{Cache: c, hooks: hooks}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		c.hooks.OnCacheHit(ctx, keyType(key))
	} else {
		c.hooks.OnCacheMiss(ctx, keyType(key))
	}
	return data, ok, nil
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	c.hooks.OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

func keyType(key string) string {
	if i := strings.LastIndexByte(key, ':'); i > 0 {
		key = key[:i]
	}
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// NewNullCache returns a cache that stores nothing, so every Get misses.
func NewNullCache() Cache { return nullCache{} }

type nullCache struct{}

func (nullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nullCache) Delete(context.Context, string) error                     { return nil }
func (nullCache) Close() error                                             { return nil }
