// Package dedupe tracks which warm-up requests are currently pending so the
// same section is not queued twice while a prefetch for it is outstanding.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Default tracker configuration constants.
const (
	defaultMaxSize    = 1024
	defaultStaleAfter = 5 * time.Minute
)

// Tracker records pending request signatures.
type Tracker interface {
	// Claim marks key pending. It returns false if key was already pending.
	Claim(ctx context.Context, key string) bool

	// Release clears key once its work is finished or was never queued.
	Release(ctx context.Context, key string)

	// Pending reports whether key is currently claimed.
	Pending(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryTracker keeps claims in a map. A claim older than staleAfter is
// treated as released so a lost Release cannot block a section forever.
// When full, the oldest claim is dropped.
type inMemoryTracker struct {
	mu         sync.Mutex
	claims     map[string]time.Time
	maxSize    int
	staleAfter time.Duration
	now        func() time.Time
	size       atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize:    defaultMaxSize,
		staleAfter: defaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.claims = make(map[string]time.Time)
	return t
}

// Claim marks key pending unless a live claim exists.
func (t *inMemoryTracker) Claim(ctx context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if at, ok := t.claims[key]; ok && !t.stale(at, now) {
		return false
	}
	if _, ok := t.claims[key]; !ok && t.maxSize > 0 && len(t.claims) >= t.maxSize {
		t.evictOldest()
	}
	t.claims[key] = now
	t.size.Store(int64(len(t.claims)))
	return true
}

// Release clears key.
func (t *inMemoryTracker) Release(ctx context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.claims, key)
	t.size.Store(int64(len(t.claims)))
}

// Pending reports whether key has a live claim.
func (t *inMemoryTracker) Pending(ctx context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.claims[key]
	return ok && !t.stale(at, t.now())
}

// Size returns the number of recorded claims, stale ones included.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}

func (t *inMemoryTracker) stale(at, now time.Time) bool {
	return t.staleAfter > 0 && now.Sub(at) >= t.staleAfter
}

// evictOldest drops the earliest claim. Must be called with t.mu held.
func (t *inMemoryTracker) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, at := range t.claims {
		if first || at.Before(oldest) {
			oldestKey, oldest, first = k, at, false
		}
	}
	if !first {
		delete(t.claims, oldestKey)
	}
}
