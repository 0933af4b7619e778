// Package cache provides the in-memory result cache shared by the section
// pipeline. Entries live for a fixed TTL and are evicted lazily on access;
// concurrent misses for the same key collapse into a single load.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/marquee/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultTTL  = 10 * time.Minute
	defaultName = "default"
)

// Clock abstracts time so tests can drive expiry.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now) //nolint:gochecknoglobals // stateless default

// Loader produces the value for a missing key.
type Loader[V any] func(ctx context.Context) (V, error)

// entry is one cached value with its expiry.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Name       string `json:"name"`
	TTL        string `json:"ttl"`
	Entries    int    `json:"entries"`
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	Loads      int64  `json:"loads"`
	LoadErrors int64  `json:"load_errors"`
	Shared     int64  `json:"shared"`
	Evictions  int64  `json:"evictions"`
}

// Cache is a TTL cache with at most one in-flight load per key.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	clock Clock

	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	loads      atomic.Int64
	loadErrors atomic.Int64
	shared     atomic.Int64
	evictions  atomic.Int64
}

// New creates a cache for values of type V.
func New[V any](opts ...Option) *Cache[V] {
	cfg := settings{
		name:  defaultName,
		ttl:   defaultTTL,
		clock: SystemClock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		name:    cfg.name,
		ttl:     cfg.ttl,
		clock:   cfg.clock,
		entries: make(map[string]entry[V]),
	}
}

// Name returns the cache name used in metrics.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the lifetime applied to new entries.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns a live entry. An expired entry is removed and reported missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.hits.Add(1)
		metrics.RecordCacheHit(c.name)
	}
	return v, ok
}

// Set stores value under key with the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
}

// Delete drops key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
}

// Len returns the number of stored entries, expired ones included until
// they are next accessed.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrLoad returns the cached value for key, calling loader on a miss.
//
// Concurrent callers that miss on the same key share one loader call. The
// loader runs detached from the caller's cancellation so an abandoned caller
// does not fail the others; a caller whose ctx ends stops waiting and gets
// ctx.Err(). A loader error is returned to every waiter and nothing is stored.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, loader Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss(c.name)

	led := false
	ch := c.group.DoChan(key, func() (interface{}, error) {
		led = true
		// A flight that finished between our miss and this call already
		// stored the value.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		return c.load(context.WithoutCancel(ctx), key, loader)
	})

	var zero V
	select {
	case res := <-ch:
		if !led {
			c.shared.Add(1)
			metrics.RecordCacheShared(c.name)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, fmt.Errorf("cache %s: unexpected value type %T", c.name, res.Val)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Name:       c.name,
		TTL:        c.ttl.String(),
		Entries:    c.Len(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		LoadErrors: c.loadErrors.Load(),
		Shared:     c.shared.Load(),
		Evictions:  c.evictions.Load(),
	}
}

func (c *Cache[V]) load(ctx context.Context, key string, loader Loader[V]) (v V, err error) {
	c.loads.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache %s: loader panic for %q: %v", c.name, key, r)
		}
		if err != nil {
			c.loadErrors.Add(1)
		}
		metrics.RecordCacheLoad(c.name, err == nil)
	}()

	v, err = loader(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// lookup reads key without touching hit counters, evicting it if expired.
func (c *Cache[V]) lookup(key string) (V, bool) {
	var zero V
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.clock.Now().Before(e.expiresAt) {
		return e.value, true
	}

	c.mu.Lock()
	// Re-check under the write lock; a concurrent load may have refreshed it.
	if cur, still := c.entries[key]; still && !c.clock.Now().Before(cur.expiresAt) {
		delete(c.entries, key)
		c.evictions.Add(1)
		metrics.RecordCacheEviction(c.name)
	}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
	return zero, false
}
