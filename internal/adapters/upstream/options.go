package upstream

import (
	"net/http"
	"time"

	"github.com/okian/marquee/pkg/logger"
)

// Option applies a configuration option to a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = uint(n)
		}
	}
}

// WithRetryDelay sets the base backoff delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.rps = rps
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithSecretParams names query parameters that must be redacted from logs
// and errors.
func WithSecretParams(names ...string) Option {
	return func(c *Client) {
		c.secretParams = append(c.secretParams, names...)
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.breakerTimeout = d
		}
	}
}

// WithBreakerThreshold sets the consecutive failures that open the breaker.
func WithBreakerThreshold(n uint32) Option {
	return func(c *Client) {
		if n > 0 {
			c.breakerThreshold = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
