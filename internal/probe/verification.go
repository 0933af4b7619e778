package probe

import (
	"fmt"
	"strings"
)

// unavailable is the sentinel for a missing enrichment field.
const unavailable = "N/A"

// verifySection checks a single response against its request limit.
func verifySection(name string, s Section, limit int) []string {
	var issues []string
	if limit > 0 && len(s.Movies) > limit {
		issues = append(issues, fmt.Sprintf("%s: %d movies exceed limit %d", name, len(s.Movies), limit))
	}
	if s.Count != len(s.Movies) {
		issues = append(issues, fmt.Sprintf("%s: count %d but %d movies", name, s.Count, len(s.Movies)))
	}
	seen := make(map[int64]struct{}, len(s.Movies))
	for i, m := range s.Movies {
		if m.ID == 0 || strings.TrimSpace(m.Title) == "" {
			issues = append(issues, fmt.Sprintf("%s[%d]: missing id or title", name, i))
		}
		if _, dup := seen[m.ID]; dup {
			issues = append(issues, fmt.Sprintf("%s[%d]: duplicate id %d", name, i, m.ID))
		}
		seen[m.ID] = struct{}{}
		for field, v := range map[string]string{
			"release_date":           m.ReleaseDate,
			"trailer_url":            m.TrailerURL,
			"imdb_rating":            m.IMDbRating,
			"rotten_tomatoes_rating": m.RottenTomatoesRating,
			"watch_link":             m.WatchLink,
		} {
			if strings.TrimSpace(v) == "" {
				issues = append(issues, fmt.Sprintf("%s[%d]: %s is blank, want a value or %s", name, i, field, unavailable))
			}
		}
	}
	return issues
}

// verifySearch checks that every search hit contains the query and that the
// hits appear in the same relative order as in the unfiltered listing.
func verifySearch(name, query string, full, filtered Section) []string {
	var issues []string
	needle := strings.ToLower(query)
	for i, m := range filtered.Movies {
		if !strings.Contains(strings.ToLower(m.Title), needle) {
			issues = append(issues, fmt.Sprintf("%s[%d]: %q does not contain %q", name, i, m.Title, query))
		}
	}
	if !isSubsequence(ids(filtered.Movies), ids(full.Movies)) {
		issues = append(issues, fmt.Sprintf("%s: results are not a subsequence of the unfiltered listing", name))
	}
	return issues
}

func ids(movies []Movie) []int64 {
	out := make([]int64, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

// isSubsequence reports whether sub appears in seq in order.
func isSubsequence(sub, seq []int64) bool {
	j := 0
	for _, v := range seq {
		if j < len(sub) && sub[j] == v {
			j++
		}
	}
	return j == len(sub)
}
