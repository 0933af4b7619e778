// Package genre resolves free-text genre names to catalog genre ids.
package genre

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/okian/marquee/internal/adapters/cache"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

const (
	defaultTTL = 24 * time.Hour
	cacheName  = "genres"
	indexKey   = "genre|movie|list"
)

// Source supplies the catalog genre list.
type Source interface {
	Genres(ctx context.Context) ([]model.Genre, error)
}

// index is the cached form of the genre list.
type index struct {
	byName map[string]int
	sorted []model.Genre
}

// Directory maps genre names to ids using a cached copy of the catalog list.
type Directory struct {
	source Source
	cache  *cache.Cache[*index]
	log    logger.Logger
}

// Option applies a configuration option to a Directory.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock cache.Clock
	log   logger.Logger
}

// WithTTL sets how long the genre list is kept.
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

// New creates a Directory backed by source.
func New(source Source, opts ...Option) *Directory {
	o := options{ttl: defaultTTL, clock: cache.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("genre")
	}
	return &Directory{
		source: source,
		cache:  cache.New[*index](cache.WithName(cacheName), cache.WithTTL(o.ttl), cache.WithClock(o.clock)),
		log:    o.log,
	}
}

// Resolve returns the id for name. Matching ignores case and surrounding
// space. Unknown names, and any failure to load the list, report false so the
// caller proceeds without a genre filter.
func (d *Directory) Resolve(ctx context.Context, name string) (int, bool) {
	key := normalize(name)
	if key == "" {
		return 0, false
	}
	idx, err := d.load(ctx)
	if err != nil {
		d.log.Warn(ctx, "genre list unavailable, ignoring genre filter",
			logger.String("genre", name), logger.Error(err))
		metrics.RecordGenreResolution(false)
		return 0, false
	}
	id, ok := idx.byName[key]
	metrics.RecordGenreResolution(ok)
	return id, ok
}

// List returns the genres sorted by name.
func (d *Directory) List(ctx context.Context) ([]model.Genre, error) {
	idx, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Genre, len(idx.sorted))
	copy(out, idx.sorted)
	return out, nil
}

// Stats returns the genre cache counters.
func (d *Directory) Stats() cache.Stats { return d.cache.Stats() }

func (d *Directory) load(ctx context.Context) (*index, error) {
	return d.cache.GetOrLoad(ctx, indexKey, func(ctx context.Context) (*index, error) {
		genres, err := d.source.Genres(ctx)
		if err != nil {
			return nil, err
		}
		return buildIndex(genres), nil
	})
}

func buildIndex(genres []model.Genre) *index {
	idx := &index{
		byName: make(map[string]int, len(genres)),
		sorted: make([]model.Genre, 0, len(genres)),
	}
	for _, g := range genres {
		key := normalize(g.Name)
		if key == "" {
			continue
		}
		if _, dup := idx.byName[key]; dup {
			continue
		}
		idx.byName[key] = g.ID
		idx.sorted = append(idx.sorted, g)
	}
	sort.Slice(idx.sorted, func(i, j int) bool {
		return strings.ToLower(idx.sorted[i].Name) < strings.ToLower(idx.sorted[j].Name)
	})
	return idx
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
