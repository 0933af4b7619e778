// Package omdb looks up critic ratings by title on the ratings provider.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/marquee/internal/adapters/upstream"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
)

// Provider is the name used for this upstream in logs and metrics.
const Provider = "omdb"

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://www.omdbapi.com"

const (
	apiKeyParam          = "apikey"
	rottenTomatoesSource = "Rotten Tomatoes"
)

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("omdb: api key is required")

type ratingEntry struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type titleResponse struct {
	Title      string        `json:"Title"`
	IMDbRating string        `json:"imdbRating"`
	Ratings    []ratingEntry `json:"Ratings"`
	Response   string        `json:"Response"`
	Error      string        `json:"Error"`
}

// Client talks to the ratings provider.
type Client struct {
	api    *upstream.Client
	apiKey string
	log    logger.Logger
}

// New creates a ratings client.
func New(baseURL, apiKey string, opts ...upstream.Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log := logger.Get().Named(Provider)
	opts = append([]upstream.Option{
		upstream.WithSecretParams(apiKeyParam),
		upstream.WithLogger(log),
	}, opts...)
	api, err := upstream.New(Provider, baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("omdb: %w", err)
	}
	return &Client{api: api, apiKey: apiKey, log: log}, nil
}

// Upstream exposes the underlying HTTP client for stats.
func (c *Client) Upstream() *upstream.Client { return c.api }

// Ratings looks up title. A title the provider does not know yields
// unavailable ratings and no error; transport and status failures are
// returned so the caller can decide not to cache them.
func (c *Client) Ratings(ctx context.Context, title string) (model.CriticRatings, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.UnavailableRatings(), nil
	}

	q := url.Values{}
	q.Set("t", title)
	q.Set(apiKeyParam, c.apiKey)

	var resp titleResponse
	if err := c.api.GetJSON(ctx, "/", q, &resp); err != nil {
		return model.UnavailableRatings(), fmt.Errorf("ratings %q: %w", title, err)
	}
	if strings.EqualFold(resp.Response, "False") {
		c.log.Debug(ctx, "title not found", logger.String("title", title), logger.String("reason", resp.Error))
		return model.UnavailableRatings(), nil
	}
	return resp.ratings(), nil
}

func (r titleResponse) ratings() model.CriticRatings {
	out := model.CriticRatings{
		IMDb:           model.OrUnavailable(r.IMDbRating),
		RottenTomatoes: model.Unavailable,
	}
	// The last Rotten Tomatoes entry wins.
	for _, e := range r.Ratings {
		if e.Source == rottenTomatoesSource {
			out.RottenTomatoes = model.OrUnavailable(e.Value)
		}
	}
	return out
}
