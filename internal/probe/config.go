// Package probe drives a running marquee server and checks the sections it
// returns for the guarantees the pipeline makes.
package probe

import "time"

// Config holds configuration for a probe run
type Config struct {
	BaseURL  string        // Base URL of the service
	Sections []string      // Categories to fetch
	Queries  []string      // Search texts checked against each unfiltered listing
	Limit    int           // Limit sent with unfiltered requests
	Workers  int           // Number of concurrent requests
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Log every movie
}

// Movie is one item of a section response.
type Movie struct {
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

// Section is the body of GET /sections/{category}.
type Section struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Movies   []Movie `json:"movies"`
}

// Report summarises a probe run.
type Report struct {
	Requests   int
	Movies     int
	Violations []string
	StartTime  time.Time
	Duration   time.Duration
}

// OK reports whether the run found no violations.
func (r *Report) OK() bool { return len(r.Violations) == 0 }
