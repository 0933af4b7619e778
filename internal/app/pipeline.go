package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/marquee/internal/adapters/cache"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultEnrichConcurrency = 8
	defaultMaxLimit          = 20
	defaultListingTTL        = 30 * time.Minute
	listingCacheName         = "listings"
)

// errEmptyListing keeps an empty catalog answer out of the listing cache so
// an outage is not pinned for the whole TTL.
var errEmptyListing = errors.New("empty listing")

// Catalog lists a category. It never fails; trouble yields an empty list.
type Catalog interface {
	List(ctx context.Context, category model.Category, filter model.QueryFilter, limit int) []model.MovieSummary
}

// GenreResolver maps a free-text genre name to a catalog id.
type GenreResolver interface {
	Resolve(ctx context.Context, name string) (int, bool)
}

// Enricher produces the secondary lookups for one movie.
type Enricher interface {
	Enrich(ctx context.Context, s model.MovieSummary) model.EnrichmentRecord
}

// Pipeline turns a section request into display-ready movies.
type Pipeline struct {
	catalog  Catalog
	genres   GenreResolver
	enricher Enricher
	listings *cache.Cache[[]model.MovieSummary]

	concurrency int
	maxLimit    int
	log         logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	concurrency int
	maxLimit    int
	listingTTL  time.Duration
	clock       cache.Clock
	log         logger.Logger
}

// WithEnrichConcurrency bounds concurrent per-item enrichment.
func WithEnrichConcurrency(n int) PipelineOption {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxLimit caps the number of items a section can return.
func WithMaxLimit(n int) PipelineOption {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithListingTTL sets how long a catalog listing is kept.
func WithListingTTL(ttl time.Duration) PipelineOption {
	return func(o *pipelineOptions) {
		if ttl > 0 {
			o.listingTTL = ttl
		}
	}
}

// WithClock sets the listing cache clock.
func WithClock(c cache.Clock) PipelineOption {
	return func(o *pipelineOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewPipeline wires the pipeline. genres and enricher may be nil, in which
// case genre names are ignored and every item gets the unavailable record.
func NewPipeline(catalog Catalog, genres GenreResolver, enricher Enricher, opts ...PipelineOption) *Pipeline {
	o := pipelineOptions{
		concurrency: defaultEnrichConcurrency,
		maxLimit:    defaultMaxLimit,
		listingTTL:  defaultListingTTL,
		clock:       cache.SystemClock,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("pipeline")
	}
	return &Pipeline{
		catalog:     catalog,
		genres:      genres,
		enricher:    enricher,
		listings:    cache.New[[]model.MovieSummary](cache.WithName(listingCacheName), cache.WithTTL(o.listingTTL), cache.WithClock(o.clock)),
		concurrency: o.concurrency,
		maxLimit:    o.maxLimit,
		log:         o.log,
	}
}

// MaxLimit returns the largest limit honoured.
func (p *Pipeline) MaxLimit() int { return p.maxLimit }

// FetchSection returns at most limit movies of category, in catalog order,
// each enriched. It never fails: upstream trouble shows up as fewer items or
// unavailable fields.
func (p *Pipeline) FetchSection(ctx context.Context, category model.Category, filter model.QueryFilter, limit int) []model.DisplayMovie {
	if limit <= 0 {
		return []model.DisplayMovie{}
	}
	if limit > p.maxLimit {
		limit = p.maxLimit
	}
	start := time.Now()

	filter = p.resolveGenre(ctx, filter)

	// Search has no upstream equivalent, so read the full page and narrow
	// it locally.
	fetchLimit := limit
	if filter.SearchText != "" {
		fetchLimit = p.maxLimit
	}

	summaries := p.listing(ctx, category, filter.Upstream(), fetchLimit)
	if filter.SearchText != "" {
		summaries = matchTitle(summaries, filter.SearchText)
	}
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	movies := p.enrich(ctx, summaries)

	metrics.RecordSectionFetch(category.String(), len(movies), float64(time.Since(start).Milliseconds()))
	p.log.Debug(ctx, "section fetched",
		logger.String("category", category.String()),
		logger.String("filter", filter.Signature()),
		logger.Int("limit", limit),
		logger.Int("items", len(movies)),
		logger.Duration("took", time.Since(start)))
	return movies
}

// CacheStats returns the counters of every cache the pipeline reaches.
func (p *Pipeline) CacheStats() []cache.Stats {
	stats := []cache.Stats{p.listings.Stats()}
	if s, ok := p.genres.(interface{ Stats() cache.Stats }); ok {
		stats = append(stats, s.Stats())
	}
	if s, ok := p.enricher.(interface{ Stats() []cache.Stats }); ok {
		stats = append(stats, s.Stats()...)
	}
	return stats
}

func (p *Pipeline) resolveGenre(ctx context.Context, filter model.QueryFilter) model.QueryFilter {
	if filter.GenreID != nil || strings.TrimSpace(filter.GenreName) == "" || p.genres == nil {
		return filter
	}
	id, ok := p.genres.Resolve(ctx, filter.GenreName)
	if !ok {
		p.log.Debug(ctx, "genre not resolved, listing without genre filter",
			logger.String("genre", filter.GenreName))
		return filter
	}
	return filter.WithGenreID(id)
}

func (p *Pipeline) listing(ctx context.Context, category model.Category, filter model.QueryFilter, limit int) []model.MovieSummary {
	key := listingKey(category, filter, limit)
	summaries, err := p.listings.GetOrLoad(ctx, key, func(ctx context.Context) ([]model.MovieSummary, error) {
		list := p.catalog.List(ctx, category, filter, limit)
		if len(list) == 0 {
			return nil, errEmptyListing
		}
		return list, nil
	})
	if err != nil {
		if !errors.Is(err, errEmptyListing) {
			p.log.Debug(ctx, "listing abandoned", logger.String("key", key), logger.Error(err))
		}
		return []model.MovieSummary{}
	}
	return summaries
}

// enrich runs the enricher over items with bounded concurrency. Results are
// written by index so output order is the input order.
func (p *Pipeline) enrich(ctx context.Context, items []model.MovieSummary) []model.DisplayMovie {
	out := make([]model.DisplayMovie, len(items))
	if p.enricher == nil {
		for i, s := range items {
			out[i] = model.NewDisplayMovie(s, model.UnavailableRecord())
		}
		return out
	}

	workers := pool.New().WithMaxGoroutines(p.concurrency)
	for i, s := range items {
		i, s := i, s
		workers.Go(func() {
			rec := model.UnavailableRecord()
			if ctx.Err() == nil {
				rec = p.enricher.Enrich(ctx, s)
			}
			out[i] = model.NewDisplayMovie(s, rec)
		})
	}
	workers.Wait()
	return out
}

func listingKey(category model.Category, filter model.QueryFilter, limit int) string {
	return "list|" + category.String() + "|" + filter.Signature() + "|" + strconv.Itoa(limit)
}

// matchTitle keeps movies whose title contains text, ignoring case.
func matchTitle(items []model.MovieSummary, text string) []model.MovieSummary {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return items
	}
	out := make([]model.MovieSummary, 0, len(items))
	for _, s := range items {
		if strings.Contains(strings.ToLower(s.Title), needle) {
			out = append(out, s)
		}
	}
	return out
}
