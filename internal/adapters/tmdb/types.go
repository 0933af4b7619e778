package tmdb

import (
	"strings"

	"github.com/okian/marquee/internal/domain/model"
)

// movieResult is one entry of a listing page. Optional fields are pointers
// so an explicit null and an absent key decode the same way.
type movieResult struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	ReleaseDate      *string  `json:"release_date"`
	PosterPath       *string  `json:"poster_path"`
	VoteAverage      *float64 `json:"vote_average"`
	OriginalLanguage *string  `json:"original_language"`
}

type listResponse struct {
	Page         int           `json:"page"`
	Results      []movieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type genreResponse struct {
	Genres []model.Genre `json:"genres"`
}

type videoResponse struct {
	ID      int64         `json:"id"`
	Results []model.Video `json:"results"`
}

type providerRegion struct {
	Link string `json:"link"`
}

type providerResponse struct {
	ID      int64                     `json:"id"`
	Results map[string]providerRegion `json:"results"`
}

// summary converts a listing entry, substituting zero values for missing
// optional fields. ok is false when the entry has no id or title.
func (r movieResult) summary() (model.MovieSummary, bool) {
	s := model.MovieSummary{
		ID:    r.ID,
		Title: strings.TrimSpace(r.Title),
	}
	if r.ReleaseDate != nil {
		s.ReleaseDate = model.ParseReleaseDate(*r.ReleaseDate)
	}
	if r.PosterPath != nil {
		s.PosterPath = *r.PosterPath
	}
	if r.VoteAverage != nil {
		s.VoteAverage = *r.VoteAverage
	}
	if r.OriginalLanguage != nil {
		s.OriginalLanguage = *r.OriginalLanguage
	}
	return s, s.Valid()
}
