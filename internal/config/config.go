// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and the environment on top.
// - Every field carries a koanf key and, where it matters, a validate tag.
// - External errors are wrapped with ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFile, when set, also writes logs to a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// TMDBAPIKey is a v3 key or a v4 read access token.
	TMDBAPIKey string `koanf:"tmdb_api_key" validate:"required"`

	// OMDBAPIKey is optional; without it critic ratings are unavailable.
	OMDBAPIKey string `koanf:"omdb_api_key"`

	TMDBBaseURL string `koanf:"tmdb_base_url" validate:"required,url"`
	OMDBBaseURL string `koanf:"omdb_base_url" validate:"required,url"`

	// Region is the ISO 3166-1 country used for fixed feeds and watch links.
	Region string `koanf:"region" validate:"required,len=2,alpha"`

	UpstreamTimeoutMS int     `koanf:"upstream_timeout_ms" validate:"min=100,max=60000"`
	UpstreamRetries   int     `koanf:"upstream_retries" validate:"min=0,max=10"`
	UpstreamRPS       float64 `koanf:"upstream_rps" validate:"gte=0"` // 0 disables limiting

	// EnrichConcurrency bounds per-item enrichment fan-out.
	EnrichConcurrency int `koanf:"enrich_concurrency" validate:"min=1,max=64"`

	// MaxSectionLimit caps the limit a section request may ask for. The
	// catalog serves 20 items per page.
	MaxSectionLimit int `koanf:"max_section_limit" validate:"min=1,max=20"`

	GenreTTLS      int `koanf:"genre_ttl_s" validate:"min=1"`
	ListingTTLS    int `koanf:"listing_ttl_s" validate:"min=1"`
	EnrichmentTTLS int `koanf:"enrichment_ttl_s" validate:"min=1"`

	WarmupQueueSize int `koanf:"warmup_queue_size" validate:"min=1"`
	WarmupWorkers   int `koanf:"warmup_workers" validate:"min=1,max=64"`

	// WarmupSchedule is a cron spec; empty disables periodic refresh.
	WarmupSchedule string `koanf:"warmup_schedule"`

	// WarmupSections are category names prefetched at startup and on schedule.
	WarmupSections []string `koanf:"warmup_sections" validate:"dive,oneof=popular upcoming top_rated now_playing"`

	// WarmupLimit is the section size prefetched for each warm-up section.
	WarmupLimit int `koanf:"warmup_limit" validate:"min=1,max=20"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		TMDBBaseURL:       "https://api.themoviedb.org/3",
		OMDBBaseURL:       "https://www.omdbapi.com",
		Region:            "US",
		UpstreamTimeoutMS: 8000,
		UpstreamRetries:   2,
		UpstreamRPS:       20,
		EnrichConcurrency: 8,
		MaxSectionLimit:   20,
		GenreTTLS:         24 * 60 * 60,
		ListingTTLS:       30 * 60,
		EnrichmentTTLS:    10 * 60,
		WarmupQueueSize:   64,
		WarmupWorkers:     2,
		WarmupSchedule:    "@every 15m",
		WarmupSections:    []string{"popular", "upcoming", "now_playing", "top_rated"},
		WarmupLimit:       10,
	}
}

// UpstreamTimeout returns the per-request upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// GenreTTL returns how long the genre list is cached.
func (c *Config) GenreTTL() time.Duration { return time.Duration(c.GenreTTLS) * time.Second }

// ListingTTL returns how long catalog listings are cached.
func (c *Config) ListingTTL() time.Duration { return time.Duration(c.ListingTTLS) * time.Second }

// EnrichmentTTL returns how long enrichment lookups are cached.
func (c *Config) EnrichmentTTL() time.Duration {
	return time.Duration(c.EnrichmentTTLS) * time.Second
}
