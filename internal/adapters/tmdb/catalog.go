package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// List returns the first page of category, narrowed by filter and truncated
// to limit. It never fails: any upstream problem yields an empty list.
func (c *Client) List(ctx context.Context, category model.Category, filter model.QueryFilter, limit int) []model.MovieSummary {
	if limit <= 0 {
		return []model.MovieSummary{}
	}

	movies, dropped, err := c.fetchList(ctx, category, filter)
	if err != nil {
		c.log.Warn(ctx, "catalog listing unavailable",
			logger.String("category", category.String()),
			logger.Error(err))
		metrics.RecordCatalogEmpty(category.String())
		return []model.MovieSummary{}
	}
	if dropped > 0 {
		c.log.Debug(ctx, "dropped malformed listing items",
			logger.String("category", category.String()),
			logger.Int("dropped", dropped))
	}
	if len(movies) == 0 {
		metrics.RecordCatalogEmpty(category.String())
	}
	if len(movies) > limit {
		movies = movies[:limit]
	}
	return movies
}

func (c *Client) fetchList(ctx context.Context, category model.Category, filter model.QueryFilter) ([]model.MovieSummary, int, error) {
	path, query := c.listRequest(category, filter)

	var resp listResponse
	if err := c.api.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", category, err)
	}

	movies := make([]model.MovieSummary, 0, len(resp.Results))
	dropped := 0
	for _, r := range resp.Results {
		s, ok := r.summary()
		if !ok {
			dropped++
			continue
		}
		movies = append(movies, s)
	}
	return movies, dropped, nil
}

// listRequest maps a category onto its endpoint. Only the discovery query
// accepts year and genre; the fixed feeds never receive them.
func (c *Client) listRequest(category model.Category, filter model.QueryFilter) (string, url.Values) {
	q := c.params()
	q.Set("page", firstPage)

	if filter.Language != "" {
		q.Set("with_original_language", filter.Language)
	}

	if category.SupportsFullFilter() {
		q.Set("sort_by", defaultSortBy)
		if filter.Year != nil {
			q.Set("primary_release_year", strconv.Itoa(*filter.Year))
		}
		if filter.GenreID != nil {
			q.Set("with_genres", strconv.Itoa(*filter.GenreID))
		}
		return "/discover/movie", q
	}

	if c.region != "" {
		q.Set("region", c.region)
	}
	return "/movie/" + category.String(), q
}
