// Package enrich performs the per-movie secondary lookups: trailer, critic
// ratings and watch-provider link. Each lookup is cached on its own and
// degrades to model.Unavailable on failure without affecting the others.
package enrich

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/okian/marquee/internal/adapters/cache"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Lookup names used in cache keys and metrics.
const (
	LookupTrailer   = "trailer"
	LookupRatings   = "ratings"
	LookupWatchLink = "watch_link"
)

const (
	trailerSite   = "YouTube"
	trailerType   = "Trailer"
	youtubeWatch  = "https://www.youtube.com/watch?v="
	defaultRegion = "US"
	defaultTTL    = 10 * time.Minute
)

// Catalog supplies the per-movie catalog lookups.
type Catalog interface {
	Videos(ctx context.Context, id int64) ([]model.Video, error)
	WatchProviders(ctx context.Context, id int64, region string) (string, error)
}

// RatingsSource looks up critic ratings by title.
type RatingsSource interface {
	Ratings(ctx context.Context, title string) (model.CriticRatings, error)
}

// Enricher runs the three lookups through their caches.
type Enricher struct {
	catalog Catalog
	ratings RatingsSource
	region  string
	log     logger.Logger

	trailers *cache.Cache[string]
	critics  *cache.Cache[model.CriticRatings]
	links    *cache.Cache[string]
}

// New creates an Enricher. A nil ratings source leaves ratings unavailable.
func New(catalog Catalog, ratings RatingsSource, opts ...Option) *Enricher {
	o := options{region: defaultRegion, ttl: defaultTTL, clock: cache.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("enrich")
	}
	newCache := func(name string) []cache.Option {
		return []cache.Option{cache.WithName(name), cache.WithTTL(o.ttl), cache.WithClock(o.clock)}
	}
	return &Enricher{
		catalog:  catalog,
		ratings:  ratings,
		region:   o.region,
		log:      o.log,
		trailers: cache.New[string](newCache(LookupTrailer)...),
		critics:  cache.New[model.CriticRatings](newCache(LookupRatings)...),
		links:    cache.New[string](newCache(LookupWatchLink)...),
	}
}

// Trailer returns the first YouTube trailer for id in catalog order.
func (e *Enricher) Trailer(ctx context.Context, id int64) string {
	url, err := e.trailers.GetOrLoad(ctx, LookupTrailer+"|"+strconv.FormatInt(id, 10), func(ctx context.Context) (string, error) {
		videos, err := e.catalog.Videos(ctx, id)
		if err != nil {
			return "", err
		}
		return firstTrailer(videos), nil
	})
	return e.settle(ctx, LookupTrailer, url, err, logger.Int64("movie_id", id))
}

// Ratings returns the IMDb and Rotten Tomatoes ratings for title.
func (e *Enricher) Ratings(ctx context.Context, title string) (imdb, rottenTomatoes string) {
	if e.ratings == nil || strings.TrimSpace(title) == "" {
		metrics.RecordEnrichment(LookupRatings, metrics.EnrichUnavailable)
		return model.Unavailable, model.Unavailable
	}
	key := LookupRatings + "|" + strings.ToLower(strings.TrimSpace(title))
	r, err := e.critics.GetOrLoad(ctx, key, func(ctx context.Context) (model.CriticRatings, error) {
		return e.ratings.Ratings(ctx, title)
	})
	if err != nil {
		e.log.Debug(ctx, "ratings lookup failed", logger.String("title", title), logger.Error(err))
		metrics.RecordEnrichment(LookupRatings, metrics.EnrichError)
		return model.Unavailable, model.Unavailable
	}
	imdb, rottenTomatoes = model.OrUnavailable(r.IMDb), model.OrUnavailable(r.RottenTomatoes)
	if imdb == model.Unavailable && rottenTomatoes == model.Unavailable {
		metrics.RecordEnrichment(LookupRatings, metrics.EnrichUnavailable)
	} else {
		metrics.RecordEnrichment(LookupRatings, metrics.EnrichFound)
	}
	return imdb, rottenTomatoes
}

// WatchLink returns the watch-provider page for id in the configured region.
func (e *Enricher) WatchLink(ctx context.Context, id int64) string {
	key := LookupWatchLink + "|" + e.region + "|" + strconv.FormatInt(id, 10)
	link, err := e.links.GetOrLoad(ctx, key, func(ctx context.Context) (string, error) {
		return e.catalog.WatchProviders(ctx, id, e.region)
	})
	return e.settle(ctx, LookupWatchLink, link, err, logger.Int64("movie_id", id))
}

// Enrich runs the three lookups for s concurrently.
func (e *Enricher) Enrich(ctx context.Context, s model.MovieSummary) model.EnrichmentRecord {
	var rec model.EnrichmentRecord
	var wg conc.WaitGroup
	wg.Go(func() { rec.TrailerURL = e.Trailer(ctx, s.ID) })
	wg.Go(func() { rec.IMDbRating, rec.RottenTomatoesRating = e.Ratings(ctx, s.Title) })
	wg.Go(func() { rec.WatchLink = e.WatchLink(ctx, s.ID) })
	wg.Wait()
	return rec.Normalize()
}

// Stats returns the counters of the three lookup caches.
func (e *Enricher) Stats() []cache.Stats {
	return []cache.Stats{e.trailers.Stats(), e.critics.Stats(), e.links.Stats()}
}

// settle maps a lookup result onto a value or the sentinel.
func (e *Enricher) settle(ctx context.Context, lookup, value string, err error, field logger.Field) string {
	if err != nil {
		e.log.Debug(ctx, "enrichment lookup failed",
			logger.String("lookup", lookup), field, logger.Error(err))
		metrics.RecordEnrichment(lookup, metrics.EnrichError)
		return model.Unavailable
	}
	value = model.OrUnavailable(value)
	if value == model.Unavailable {
		metrics.RecordEnrichment(lookup, metrics.EnrichUnavailable)
	} else {
		metrics.RecordEnrichment(lookup, metrics.EnrichFound)
	}
	return value
}

func firstTrailer(videos []model.Video) string {
	for _, v := range videos {
		if v.Site == trailerSite && v.Type == trailerType && strings.TrimSpace(v.Key) != "" {
			return youtubeWatch + v.Key
		}
	}
	return model.Unavailable
}
