package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/marquee/internal/domain/model"
)

// defaultSectionLimit applies when a request names no limit.
const defaultSectionLimit = 10

// SectionDependencies defines the interface for section reads.
type SectionDependencies interface {
	FetchSection(ctx context.Context, req model.SectionRequest) []model.DisplayMovie
}

// SectionsHandler handles section requests.
type SectionsHandler struct {
	deps SectionDependencies
}

// NewSectionsHandler creates a new sections handler.
func NewSectionsHandler(deps SectionDependencies) *SectionsHandler {
	return &SectionsHandler{deps: deps}
}

// HandleGetSection handles GET /sections/{category} requests. Upstream
// trouble never surfaces as an error status; it shows up as fewer movies or
// unavailable fields.
func (h *SectionsHandler) HandleGetSection(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_section"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/sections/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	category, ok := model.ParseCategory(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_category", WrapKind(op, ErrNotFound, fmt.Errorf("category %q", name)))
		return
	}

	req, err := parseSectionQuery(category, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	movies := h.deps.FetchSection(r.Context(), req)
	writeJSON(w, http.StatusOK, sectionResponse{
		Category: category.String(),
		Count:    len(movies),
		Movies:   movies,
	})
}

// parseSectionQuery reads limit, year, genre, genre_id, language and q.
func parseSectionQuery(category model.Category, q url.Values) (model.SectionRequest, error) {
	req := model.SectionRequest{Category: category, Limit: defaultSectionLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("limit must be an integer")
		}
		req.Limit = n
	}
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("year must be an integer")
		}
		req.Filter.Year = model.IntPtr(n)
	}
	if v := q.Get("genre_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("genre_id must be an integer")
		}
		req.Filter.GenreID = model.IntPtr(n)
	}
	req.Filter.GenreName = strings.TrimSpace(q.Get("genre"))
	req.Filter.Language = strings.TrimSpace(q.Get("language"))
	req.Filter.SearchText = strings.TrimSpace(q.Get("q"))
	return req, nil
}
