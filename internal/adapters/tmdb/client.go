// Package tmdb is the catalog client: category listings, the genre list and
// the per-movie video and watch-provider lookups.
package tmdb

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/marquee/internal/adapters/upstream"
	"github.com/okian/marquee/pkg/logger"
)

// Provider is the name used for this upstream in logs and metrics.
const Provider = "tmdb"

// DefaultBaseURL is the public v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Default request constants.
const (
	defaultLanguage = "en-US"
	defaultSortBy   = "popularity.desc"
	firstPage       = "1"
	apiKeyParam     = "api_key"
)

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("tmdb: api key is required")

// Client talks to the catalog API.
type Client struct {
	api      *upstream.Client
	apiKey   string
	bearer   bool
	language string
	region   string
	log      logger.Logger

	upstreamOpts []upstream.Option
}

// Option applies a configuration option to a Client.
type Option func(*Client)

// WithLanguage sets the response language. Defaults to en-US.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithRegion sets the region sent to the fixed feeds.
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = strings.ToUpper(strings.TrimSpace(region))
	}
}

// WithUpstreamOptions forwards options to the underlying HTTP client.
func WithUpstreamOptions(opts ...upstream.Option) Option {
	return func(c *Client) {
		c.upstreamOpts = append(c.upstreamOpts, opts...)
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

// New creates a catalog client. A key containing a dot is treated as a v4
// read access token and sent as a bearer header; anything else is a v3 key
// sent as the api_key query parameter.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		apiKey:   apiKey,
		bearer:   strings.Contains(apiKey, "."),
		language: defaultLanguage,
		log:      logger.Get().Named(Provider),
	}
	for _, opt := range opts {
		opt(c)
	}

	upOpts := append([]upstream.Option{
		upstream.WithSecretParams(apiKeyParam),
		upstream.WithLogger(c.log),
	}, c.upstreamOpts...)
	if c.bearer {
		upOpts = append(upOpts, upstream.WithHeader("Authorization", "Bearer "+apiKey))
	}

	api, err := upstream.New(Provider, baseURL, upOpts...)
	if err != nil {
		return nil, fmt.Errorf("tmdb: %w", err)
	}
	c.api = api
	return c, nil
}

// Upstream exposes the underlying HTTP client for stats.
func (c *Client) Upstream() *upstream.Client { return c.api }

// Region returns the configured region.
func (c *Client) Region() string { return c.region }

// params returns the credential and language parameters every call carries.
func (c *Client) params() url.Values {
	q := url.Values{}
	if !c.bearer {
		q.Set(apiKeyParam, c.apiKey)
	}
	q.Set("language", c.language)
	return q
}
