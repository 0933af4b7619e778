package api

import (
	"context"
	"net/http"

	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
)

// GenreDependencies defines the interface for the genre list.
type GenreDependencies interface {
	Genres(ctx context.Context) ([]model.Genre, error)
}

// GenresHandler handles genre list requests.
type GenresHandler struct {
	deps GenreDependencies
	log  logger.Logger
}

// NewGenresHandler creates a new genres handler.
func NewGenresHandler(deps GenreDependencies) *GenresHandler {
	return &GenresHandler{deps: deps, log: logger.Get().Named("api")}
}

// HandleGetGenres handles GET /genres. An unreachable catalog yields an
// empty list.
func (h *GenresHandler) HandleGetGenres(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	genres, err := h.deps.Genres(r.Context())
	if err != nil {
		h.log.Warn(r.Context(), "genre list unavailable", logger.Error(err))
		genres = nil
	}
	if genres == nil {
		genres = []model.Genre{}
	}
	writeJSON(w, http.StatusOK, genres)
}
