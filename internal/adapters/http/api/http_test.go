package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/marquee/internal/adapters/http/api"
	"github.com/okian/marquee/internal/adapters/mq/queue"
	"github.com/okian/marquee/internal/domain/model"
)

// Mock implementations for testing
type mockDependencies struct {
	mu        sync.Mutex
	requests  []model.SectionRequest
	genres    []model.Genre
	genresErr error
	warmRes   model.WarmResult
	warmErr   error
	warmed    []model.SectionRequest
}

func (m *mockDependencies) FetchSection(_ context.Context, req model.SectionRequest) []model.DisplayMovie {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	n := req.Limit
	if n > 3 {
		n = 3
	}
	out := make([]model.DisplayMovie, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		out = append(out, model.NewDisplayMovie(
			model.MovieSummary{ID: int64(i), Title: fmt.Sprintf("Movie %d", i)},
			model.UnavailableRecord()))
	}
	return out
}

func (m *mockDependencies) Genres(context.Context) ([]model.Genre, error) {
	return m.genres, m.genresErr
}

func (m *mockDependencies) Warm(_ context.Context, req model.SectionRequest) (model.WarmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.warmErr == nil {
		m.warmed = append(m.warmed, req)
	}
	return m.warmRes, m.warmErr
}

func (m *mockDependencies) lastRequest() model.SectionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{genres: []model.Genre{{ID: 28, Name: "Action"}}}
		server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{}})
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then health endpoint should be accessible", func() {
				So(serve(mux, "GET", "/healthz", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				So(serve(mux, "GET", "/stats", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("And sections endpoint should be accessible", func() {
				So(serve(mux, "GET", "/sections/popular", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("And genres endpoint should be accessible", func() {
				So(serve(mux, "GET", "/genres", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("And warmup endpoint should be accessible", func() {
				So(serve(mux, "POST", "/warmup", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And unknown paths are not found", func() {
				So(serve(mux, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSectionsHandler_HandleGetSection(t *testing.T) {
	Convey("Given a sections handler", t, func() {
		deps := &mockDependencies{}
		handler := http.HandlerFunc(api.NewSectionsHandler(deps).HandleGetSection)

		Convey("When a known category is requested with every filter", func() {
			w := serve(handler, "GET", "/sections/top-rated?limit=2&year=2024&genre=Action&genre_id=28&language=en&q=%20spider%20", "")

			Convey("Then the request is parsed and the section returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Category string               `json:"category"`
					Count    int                  `json:"count"`
					Movies   []model.DisplayMovie `json:"movies"`
				}
				So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
				So(body.Category, ShouldEqual, "top_rated")
				So(body.Count, ShouldEqual, 2)
				So(body.Movies[0].TrailerURL, ShouldEqual, model.Unavailable)

				req := deps.lastRequest()
				So(req.Category, ShouldEqual, model.TopRated)
				So(req.Limit, ShouldEqual, 2)
				So(*req.Filter.Year, ShouldEqual, 2024)
				So(*req.Filter.GenreID, ShouldEqual, 28)
				So(req.Filter.GenreName, ShouldEqual, "Action")
				So(req.Filter.Language, ShouldEqual, "en")
				So(req.Filter.SearchText, ShouldEqual, "spider")
			})
		})

		Convey("When no limit is given", func() {
			w := serve(handler, "GET", "/sections/upcoming", "")

			Convey("Then the default limit is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRequest().Limit, ShouldEqual, 10)
			})
		})

		Convey("When limit is zero", func() {
			w := serve(handler, "GET", "/sections/popular?limit=0", "")

			Convey("Then an empty section is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"count":0`)
				So(w.Body.String(), ShouldContainSubstring, `"movies":[]`)
			})
		})

		Convey("When the category is unknown", func() {
			w := serve(handler, "GET", "/sections/trending", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "unknown_category")
				So(len(deps.requests), ShouldEqual, 0)
			})
		})

		Convey("When numbers are malformed", func() {
			for _, q := range []string{"limit=ten", "year=20x4", "genre_id=action"} {
				w := serve(handler, "GET", "/sections/popular?"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(len(deps.requests), ShouldEqual, 0)
		})

		Convey("When the method is not GET", func() {
			So(serve(handler, "POST", "/sections/popular", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGenresHandler_HandleGetGenres(t *testing.T) {
	Convey("Given a genres handler", t, func() {
		deps := &mockDependencies{genres: []model.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}}
		handler := http.HandlerFunc(api.NewGenresHandler(deps).HandleGetGenres)

		Convey("When the list is available", func() {
			w := serve(handler, "GET", "/genres", "")

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var genres []model.Genre
				So(json.NewDecoder(w.Body).Decode(&genres), ShouldBeNil)
				So(genres, ShouldResemble, deps.genres)
			})
		})

		Convey("When the catalog fails", func() {
			deps.genresErr = errors.New("catalog down")
			w := serve(handler, "GET", "/genres", "")

			Convey("Then an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})
	})
}

func TestWarmupHandler_HandlePostWarmup(t *testing.T) {
	Convey("Given a warm-up handler", t, func() {
		deps := &mockDependencies{}
		handler := http.HandlerFunc(api.NewWarmupHandler(deps).HandlePostWarmup)

		Convey("When a valid request is queued", func() {
			w := serve(handler, "POST", "/warmup", `{"category":"popular","limit":5,"genre":"Action","year":2024}`)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"queued"`)
				So(len(deps.warmed), ShouldEqual, 1)
				So(deps.warmed[0].Limit, ShouldEqual, 5)
				So(deps.warmed[0].Filter.GenreName, ShouldEqual, "Action")
			})
		})

		Convey("When the request is already pending", func() {
			deps.warmRes = model.WarmDuplicate
			w := serve(handler, "POST", "/warmup", `{"category":"upcoming"}`)

			Convey("Then it is acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(deps.warmed[0].Limit, ShouldEqual, 10)
			})
		})

		Convey("When the queue is full", func() {
			deps.warmErr = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := serve(handler, "POST", "/warmup", `{"category":"popular"}`)

			Convey("Then it pushes back", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})

		Convey("When the service cannot queue at all", func() {
			deps.warmErr = errors.New("service not started")
			w := serve(handler, "POST", "/warmup", `{"category":"popular"}`)

			Convey("Then it is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the request is invalid", func() {
			for _, body := range []string{
				`not json`,
				`{}`,
				`{"category":"trending"}`,
				`{"category":"popular","limit":0}`,
				`{"category":"popular","language":"english"}`,
			} {
				w := serve(handler, "POST", "/warmup", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(len(deps.warmed), ShouldEqual, 0)
		})

		Convey("When the method is not POST", func() {
			So(serve(handler, "GET", "/warmup", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestKindErrors(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("limit must be an integer")
		err := api.WrapKind("api.get_section", api.ErrBadRequest, cause)

		Convey("Then it matches both kind and cause", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, api.ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "api.get_section: bad request: limit must be an integer")
		})

		Convey("And a bare kind has no cause", func() {
			So(api.NewKind("op", api.ErrBackpressure).Error(), ShouldEqual, "op: backpressure")
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = api.RequestIDFromContext(r.Context())
		}))

		Convey("When no id is sent", func() {
			w := serve(h, "GET", "/", "")

			Convey("Then one is generated and echoed", func() {
				So(seen, ShouldNotBeEmpty)
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
			})
		})

		Convey("When an id is sent", func() {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is kept", func() {
				So(seen, ShouldEqual, "abc-123")
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"queueLength": 3,
				"workerCount": 2,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["queueLength"], ShouldEqual, 3)
				So(response["workerCount"], ShouldEqual, 2)
			})
		})
	})
}
