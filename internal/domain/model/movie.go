// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Unavailable is the value every enrichment field takes when the upstream had
// nothing to offer. It mirrors the ratings provider's own convention.
const Unavailable = "N/A"

// PosterBaseURL is prepended to a catalog poster path.
const PosterBaseURL = "https://image.tmdb.org/t/p/w500"

// releaseDateLayout is the date format used by the catalog.
const releaseDateLayout = "2006-01-02"

// MovieSummary is one catalog listing item.
type MovieSummary struct {
	ID               int64      // catalog identifier, unique per catalog
	Title            string     // display title
	ReleaseDate      *time.Time // nil when the catalog omits or mangles it
	PosterPath       string     // relative path, empty when absent
	VoteAverage      float64    // 0-10
	OriginalLanguage string     // ISO 639-1 code
}

// ParseReleaseDate parses a catalog date, returning nil for empty or
// malformed input.
func ParseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(releaseDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// PosterURL returns the absolute poster URL or an empty string.
func (m MovieSummary) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	if !strings.HasPrefix(m.PosterPath, "/") {
		return PosterBaseURL + "/" + m.PosterPath
	}
	return PosterBaseURL + m.PosterPath
}

// ReleaseDateString formats the release date or returns Unavailable.
func (m MovieSummary) ReleaseDateString() string {
	if m.ReleaseDate == nil {
		return Unavailable
	}
	return m.ReleaseDate.Format(releaseDateLayout)
}

// Valid reports whether the summary carries the fields a DisplayMovie requires.
func (m MovieSummary) Valid() bool {
	return m.ID != 0 && strings.TrimSpace(m.Title) != ""
}

// EnrichmentRecord holds the secondary lookups for one movie. Every field is
// either a real value or Unavailable.
type EnrichmentRecord struct {
	TrailerURL           string
	IMDbRating           string
	RottenTomatoesRating string
	WatchLink            string
}

// UnavailableRecord returns a record with every field set to Unavailable.
func UnavailableRecord() EnrichmentRecord {
	return EnrichmentRecord{
		TrailerURL:           Unavailable,
		IMDbRating:           Unavailable,
		RottenTomatoesRating: Unavailable,
		WatchLink:            Unavailable,
	}
}

// Normalize replaces blank fields with Unavailable.
func (r EnrichmentRecord) Normalize() EnrichmentRecord {
	return EnrichmentRecord{
		TrailerURL:           OrUnavailable(r.TrailerURL),
		IMDbRating:           OrUnavailable(r.IMDbRating),
		RottenTomatoesRating: OrUnavailable(r.RottenTomatoesRating),
		WatchLink:            OrUnavailable(r.WatchLink),
	}
}

// OrUnavailable returns s, or Unavailable when s is blank.
func OrUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unavailable
	}
	return s
}

// DisplayMovie is the unit handed to the presentation layer.
type DisplayMovie struct {
	ID                   int64   `json:"id"`
	Title                string  `json:"title"`
	ReleaseDate          string  `json:"release_date"`
	PosterURL            string  `json:"poster_url"`
	VoteAverage          float64 `json:"vote_average"`
	OriginalLanguage     string  `json:"original_language"`
	TrailerURL           string  `json:"trailer_url"`
	IMDbRating           string  `json:"imdb_rating"`
	RottenTomatoesRating string  `json:"rotten_tomatoes_rating"`
	WatchLink            string  `json:"watch_link"`
}

// NewDisplayMovie merges a summary with its enrichment.
func NewDisplayMovie(s MovieSummary, r EnrichmentRecord) DisplayMovie {
	r = r.Normalize()
	return DisplayMovie{
		ID:                   s.ID,
		Title:                s.Title,
		ReleaseDate:          s.ReleaseDateString(),
		PosterURL:            s.PosterURL(),
		VoteAverage:          s.VoteAverage,
		OriginalLanguage:     s.OriginalLanguage,
		TrailerURL:           r.TrailerURL,
		IMDbRating:           r.IMDbRating,
		RottenTomatoesRating: r.RottenTomatoesRating,
		WatchLink:            r.WatchLink,
	}
}

// HasTrailer reports whether a trailer link was found.
func (d DisplayMovie) HasTrailer() bool {
	return d.TrailerURL != Unavailable
}

// Genre is one catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Video is one entry of a movie's video list, in catalog order.
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// CriticRatings holds the two critic ratings; each is a value or Unavailable.
type CriticRatings struct {
	IMDb           string
	RottenTomatoes string
}

// UnavailableRatings returns ratings with both fields Unavailable.
func UnavailableRatings() CriticRatings {
	return CriticRatings{IMDb: Unavailable, RottenTomatoes: Unavailable}
}
