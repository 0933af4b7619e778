package dedupe

import "time"

// Option applies a configuration option to the in-memory tracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the number of claims. Zero or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = maxSize
	}
}

// WithStaleAfter sets how long a claim lives without a Release.
// Zero or less keeps claims until released.
func WithStaleAfter(d time.Duration) Option {
	return func(t *inMemoryTracker) {
		t.staleAfter = d
	}
}

// WithNow replaces the clock.
func WithNow(now func() time.Time) Option {
	return func(t *inMemoryTracker) {
		if now != nil {
			t.now = now
		}
	}
}
