package cache

import "time"

// settings collects construction options; it is not generic so options can
// be shared across caches of different value types.
type settings struct {
	name  string
	ttl   time.Duration
	clock Clock
}

// Option applies a configuration option to a Cache.
type Option func(*settings)

// WithTTL sets the lifetime of stored entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithName sets the name reported in metrics and stats.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}
