// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SectionDependencies
	GenreDependencies
	WarmupDependencies
}

// Server wires HTTP routes for the section API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sectionsHandler *SectionsHandler
	genresHandler   *GenresHandler
	warmupHandler   *WarmupHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sectionsHandler: NewSectionsHandler(deps),
		genresHandler:   NewGenresHandler(deps),
		warmupHandler:   NewWarmupHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sections/", MetricsMiddleware(s.sectionsHandler.HandleGetSection, "sections"))
	mux.HandleFunc("/genres", MetricsMiddleware(s.genresHandler.HandleGetGenres, "genres"))
	mux.HandleFunc("/warmup", MetricsMiddleware(s.warmupHandler.HandlePostWarmup, "warmup"))
}

// sectionResponse is the body of GET /sections/{category}.
type sectionResponse struct {
	Category string               `json:"category"`
	Count    int                  `json:"count"`
	Movies   []model.DisplayMovie `json:"movies"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Section   string `json:"section"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Named("api").Debug(context.Background(), "response write failed", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
