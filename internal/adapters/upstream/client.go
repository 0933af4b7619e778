// Package upstream is the shared outbound HTTP client for the catalog and
// ratings providers. Every call is a GET returning JSON; the client adds a
// per-attempt timeout, a rate limit, bounded retries with backoff and a
// circuit breaker, and maps failures onto the package error values.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout          = 8 * time.Second
	defaultRetries          = 2
	defaultRetryDelay       = 200 * time.Millisecond
	defaultBreakerTimeout   = 30 * time.Second
	defaultBreakerThreshold = 5
	maxBodyBytes            = 4 << 20
	redacted                = "REDACTED"
)

// Client performs GET+JSON requests against one provider.
type Client struct {
	provider string
	baseURL  string

	http             *http.Client
	timeout          time.Duration
	retries          uint
	retryDelay       time.Duration
	rps              float64
	headers          http.Header
	secretParams     []string
	breakerTimeout   time.Duration
	breakerThreshold uint32

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     logger.Logger
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", provider, baseURL)
	}

	c := &Client{
		provider:         provider,
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{},
		timeout:          defaultTimeout,
		retries:          defaultRetries,
		retryDelay:       defaultRetryDelay,
		headers:          make(http.Header),
		breakerTimeout:   defaultBreakerTimeout,
		breakerThreshold: defaultBreakerThreshold,
		log:              logger.Get().Named("upstream." + provider),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.rps > 0 {
		burst := int(c.rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(c.rps), burst)
	}
	c.breaker = c.newBreaker()
	metrics.SetCircuitBreakerState(provider, breakerStateValue(gobreaker.StateClosed))

	return c, nil
}

// Provider returns the provider name used in errors and metrics.
func (c *Client) Provider() string { return c.provider }

// BreakerState returns the circuit breaker state as text.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// GetJSON requests path with query and decodes the body into out.
//
// Transport failures, 429 and 5xx responses are retried; other statuses fail
// immediately with a *StatusError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	safe := c.redact(target)

	body, err := retry.DoWithData(
		func() ([]byte, error) { return c.attempt(ctx, target, safe) },
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			metrics.RecordUpstreamRetry(c.provider)
			c.log.Debug(ctx, "retrying upstream request",
				logger.String("url", safe),
				logger.Int("attempt", int(n)+1),
				logger.Error(err))
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeMalformed)
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, c.provider, safe, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, target, safe string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeRateLimited)
			return nil, fmt.Errorf("%w: %s rate limit: %w", ErrUnavailable, c.provider, err)
		}
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, target, safe)
	})
	metrics.RecordUpstreamLatency(c.provider, float64(time.Since(start).Milliseconds()))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeBreakerOpen)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.provider, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, target, safe string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request %s: %w", c.provider, safe, err)
	}
	req.Header = c.headers.Clone()
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeTransport)
		// url.Error embeds the full URL, credentials included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %s GET %s: %w", ErrUnavailable, c.provider, safe, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug(ctx, "failed to close response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeStatus)
		return nil, &StatusError{Provider: c.provider, URL: safe, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeTransport)
		return nil, fmt.Errorf("%w: %s read %s: %w", ErrUnavailable, c.provider, safe, err)
	}
	metrics.RecordUpstreamRequest(c.provider, metrics.OutcomeOK)
	return body, nil
}

func (c *Client) redact(target string) string {
	if len(c.secretParams) == 0 {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return c.baseURL
	}
	q := u.Query()
	for _, name := range c.secretParams {
		if q.Has(name) {
			q.Set(name, redacted)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return errors.Is(err, ErrUnavailable)
}
