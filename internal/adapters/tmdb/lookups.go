package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/marquee/internal/domain/model"
)

// Genres returns the catalog's movie genre list.
func (c *Client) Genres(ctx context.Context) ([]model.Genre, error) {
	var resp genreResponse
	if err := c.api.GetJSON(ctx, "/genre/movie/list", c.params(), &resp); err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	return resp.Genres, nil
}

// Videos returns a movie's videos in upstream order.
func (c *Client) Videos(ctx context.Context, id int64) ([]model.Video, error) {
	q := c.params()
	// Trailers are often only tagged in the original language.
	q.Del("language")

	var resp videoResponse
	if err := c.api.GetJSON(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", q, &resp); err != nil {
		return nil, fmt.Errorf("videos %d: %w", id, err)
	}
	return resp.Results, nil
}

// WatchProviders returns the watch-provider page link for region, or an
// empty string when the movie has no providers there.
func (c *Client) WatchProviders(ctx context.Context, id int64, region string) (string, error) {
	q := c.params()
	q.Del("language")

	var resp providerResponse
	if err := c.api.GetJSON(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/watch/providers", q, &resp); err != nil {
		return "", fmt.Errorf("watch providers %d: %w", id, err)
	}
	r, ok := resp.Results[strings.ToUpper(region)]
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(r.Link), nil
}
