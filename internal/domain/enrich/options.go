package enrich

import (
	"strings"
	"time"

	"github.com/okian/marquee/internal/adapters/cache"
	"github.com/okian/marquee/pkg/logger"
)

type options struct {
	region string
	ttl    time.Duration
	clock  cache.Clock
	log    logger.Logger
}

// Option applies a configuration option to an Enricher.
type Option func(*options)

// WithRegion sets the watch-provider region. Defaults to US.
func WithRegion(region string) Option {
	return func(o *options) {
		if r := strings.ToUpper(strings.TrimSpace(region)); r != "" {
			o.region = r
		}
	}
}

// WithTTL sets how long each lookup result is kept.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock sets the cache clock.
func WithClock(c cache.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
