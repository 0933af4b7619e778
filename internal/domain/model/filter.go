package model

import (
	"strconv"
	"strings"
)

// Category selects which catalog feed a section is built from.
type Category int

// Supported categories.
const (
	Popular Category = iota
	Upcoming
	TopRated
	NowPlaying
)

var categoryNames = [...]string{
	Popular:    "popular",
	Upcoming:   "upcoming",
	TopRated:   "top_rated",
	NowPlaying: "now_playing",
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Popular, Upcoming, NowPlaying, TopRated}
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// ParseCategory maps a name such as "top_rated" or "Top-Rated" to a Category.
func ParseCategory(s string) (Category, bool) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return Popular, false
}

// SupportsFullFilter reports whether the upstream feed accepts year and genre
// parameters. Only the discovery feed does.
func (c Category) SupportsFullFilter() bool {
	return c == Popular
}

// MarshalText renders the category name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// QueryFilter narrows a section. The zero value means no filtering.
type QueryFilter struct {
	Year       *int
	GenreID    *int
	GenreName  string // free text, resolved to GenreID by the pipeline
	Language   string
	SearchText string
}

// IntPtr is a helper for optional filter fields.
func IntPtr(v int) *int { return &v }

// WithGenreID returns a copy with the genre id set.
func (f QueryFilter) WithGenreID(id int) QueryFilter {
	f.GenreID = IntPtr(id)
	return f
}

// Upstream returns the part of the filter the catalog understands. Search
// text and the unresolved genre name are applied locally and dropped here.
func (f QueryFilter) Upstream() QueryFilter {
	return QueryFilter{
		Year:     f.Year,
		GenreID:  f.GenreID,
		Language: f.Language,
	}
}

// Signature renders every field deterministically. Distinct filters always
// yield distinct signatures.
func (f QueryFilter) Signature() string {
	var b strings.Builder
	b.WriteString("year=")
	if f.Year != nil {
		b.WriteString(strconv.Itoa(*f.Year))
	}
	b.WriteString(";genre=")
	if f.GenreID != nil {
		b.WriteString(strconv.Itoa(*f.GenreID))
	}
	b.WriteString(";genre_name=")
	b.WriteString(strconv.Quote(strings.ToLower(strings.TrimSpace(f.GenreName))))
	b.WriteString(";lang=")
	b.WriteString(strconv.Quote(f.Language))
	b.WriteString(";q=")
	b.WriteString(strconv.Quote(f.SearchText))
	return b.String()
}

// SectionRequest is one fetch of one section.
type SectionRequest struct {
	Category Category
	Filter   QueryFilter
	Limit    int
}

// Signature identifies the request for deduplication and caching.
func (r SectionRequest) Signature() string {
	return r.Category.String() + "|" + r.Filter.Signature() + "|limit=" + strconv.Itoa(r.Limit)
}

// WarmResult describes what happened to a warm-up request.
type WarmResult int

// Warm-up outcomes.
const (
	WarmQueued WarmResult = iota
	WarmDuplicate
)

// String returns the status word used in API responses.
func (r WarmResult) String() string {
	if r == WarmDuplicate {
		return "duplicate"
	}
	return "queued"
}
