package tmdb_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/marquee/internal/adapters/tmdb"
	"github.com/okian/marquee/internal/adapters/upstream"
	"github.com/okian/marquee/internal/domain/model"
)

// catalogStub serves canned catalog responses and records every request.
type catalogStub struct {
	mu       sync.Mutex
	requests []*url.URL
	headers  []http.Header
	status   int
	body     map[string]string
}

func newCatalogStub() *catalogStub {
	return &catalogStub{status: http.StatusOK, body: map[string]string{}}
}

func (s *catalogStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := *r.URL
	s.requests = append(s.requests, &u)
	s.headers = append(s.headers, r.Header.Clone())
	status := s.status
	body, ok := s.body[r.URL.Path]
	s.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (s *catalogStub) last() (*url.URL, http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil, nil
	}
	return s.requests[len(s.requests)-1], s.headers[len(s.headers)-1]
}

func (s *catalogStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func listingJSON(n int) string {
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":%d,"title":"Movie %d","release_date":"2024-01-%02d","poster_path":"/p%d.jpg","vote_average":7.5,"original_language":"en"}`,
			i, i, i, i))
	}
	return `{"page":1,"results":[` + strings.Join(items, ",") + `],"total_pages":1,"total_results":` + fmt.Sprint(n) + `}`
}

func newTestClient(t *testing.T, baseURL, key string, opts ...tmdb.Option) *tmdb.Client {
	t.Helper()
	opts = append(opts, tmdb.WithUpstreamOptions(
		upstream.WithRetries(0),
		upstream.WithRetryDelay(time.Millisecond),
		upstream.WithTimeout(time.Second),
	))
	c, err := tmdb.New(baseURL, key, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_List(t *testing.T) {
	Convey("Given a catalog stub", t, func() {
		stub := newCatalogStub()
		stub.body["/discover/movie"] = listingJSON(15)
		stub.body["/movie/upcoming"] = listingJSON(20)
		stub.body["/movie/top_rated"] = listingJSON(3)
		srv := httptest.NewServer(stub)
		defer srv.Close()
		c := newTestClient(t, srv.URL, "v3key", tmdb.WithRegion("us"))

		filter := model.QueryFilter{Year: model.IntPtr(2024), GenreID: model.IntPtr(28), Language: "en"}

		Convey("When listing Popular with a full filter", func() {
			movies := c.List(context.Background(), model.Popular, filter, 10)
			u, _ := stub.last()
			q := u.Query()

			Convey("Then the discovery query carries every filter and the result is truncated", func() {
				So(len(movies), ShouldEqual, 10)
				So(movies[0].ID, ShouldEqual, 1)
				So(movies[9].ID, ShouldEqual, 10)
				So(movies[0].PosterURL(), ShouldEqual, model.PosterBaseURL+"/p1.jpg")
				So(u.Path, ShouldEqual, "/discover/movie")
				So(q.Get("api_key"), ShouldEqual, "v3key")
				So(q.Get("sort_by"), ShouldEqual, "popularity.desc")
				So(q.Get("page"), ShouldEqual, "1")
				So(q.Get("language"), ShouldEqual, "en-US")
				So(q.Get("primary_release_year"), ShouldEqual, "2024")
				So(q.Get("with_genres"), ShouldEqual, "28")
				So(q.Get("with_original_language"), ShouldEqual, "en")
			})
		})

		Convey("When listing Upcoming with the same filter", func() {
			movies := c.List(context.Background(), model.Upcoming, filter, 10)
			u, _ := stub.last()
			q := u.Query()

			Convey("Then genre and year are never transmitted", func() {
				So(len(movies), ShouldEqual, 10)
				So(u.Path, ShouldEqual, "/movie/upcoming")
				So(q.Has("with_genres"), ShouldBeFalse)
				So(q.Has("primary_release_year"), ShouldBeFalse)
				So(q.Has("sort_by"), ShouldBeFalse)
				So(q.Get("region"), ShouldEqual, "US")
			})
		})

		Convey("When every fixed feed is listed with a full filter", func() {
			for _, cat := range []model.Category{model.Upcoming, model.TopRated, model.NowPlaying} {
				_ = c.List(context.Background(), cat, filter, 5)
				u, _ := stub.last()
				So(u.Query().Has("with_genres"), ShouldBeFalse)
				So(u.Query().Has("primary_release_year"), ShouldBeFalse)
			}
		})

		Convey("When the feed has fewer items than the limit", func() {
			movies := c.List(context.Background(), model.TopRated, model.QueryFilter{}, 10)

			Convey("Then all of them are returned", func() {
				So(len(movies), ShouldEqual, 3)
			})
		})

		Convey("When the limit is not positive", func() {
			movies := c.List(context.Background(), model.Popular, model.QueryFilter{}, 0)

			Convey("Then no request is made", func() {
				So(movies, ShouldBeEmpty)
				So(stub.count(), ShouldEqual, 0)
			})
		})

		Convey("When the upstream fails", func() {
			stub.mu.Lock()
			stub.status = http.StatusInternalServerError
			stub.mu.Unlock()
			movies := c.List(context.Background(), model.Popular, model.QueryFilter{}, 10)

			Convey("Then the listing degrades to empty", func() {
				So(movies, ShouldNotBeNil)
				So(movies, ShouldBeEmpty)
			})
		})

		Convey("When the listing contains malformed items", func() {
			stub.mu.Lock()
			stub.body["/movie/now_playing"] = `{"results":[
				{"id":1,"title":"Kept","release_date":"not-a-date","poster_path":null},
				{"title":"No id"},
				{"id":3,"title":"   "},
				{"id":4,"title":"Also kept"}]}`
			stub.mu.Unlock()
			movies := c.List(context.Background(), model.NowPlaying, model.QueryFilter{}, 10)

			Convey("Then items without id or title are dropped and the rest use zero values", func() {
				So(len(movies), ShouldEqual, 2)
				So(movies[0].Title, ShouldEqual, "Kept")
				So(movies[0].ReleaseDate, ShouldBeNil)
				So(movies[0].PosterURL(), ShouldEqual, "")
				So(movies[1].ID, ShouldEqual, 4)
			})
		})
	})
}

func TestClient_Auth(t *testing.T) {
	Convey("Given a v4 read access token", t, func() {
		stub := newCatalogStub()
		stub.body["/genre/movie/list"] = `{"genres":[{"id":28,"name":"Action"}]}`
		srv := httptest.NewServer(stub)
		defer srv.Close()
		c := newTestClient(t, srv.URL, "eyJhbGciOiJIUzI1NiJ9.payload.sig")

		Convey("When genres are requested", func() {
			genres, err := c.Genres(context.Background())
			u, h := stub.last()

			Convey("Then the token goes in the Authorization header only", func() {
				So(err, ShouldBeNil)
				So(genres, ShouldResemble, []model.Genre{{ID: 28, Name: "Action"}})
				So(h.Get("Authorization"), ShouldEqual, "Bearer eyJhbGciOiJIUzI1NiJ9.payload.sig")
				So(u.Query().Has("api_key"), ShouldBeFalse)
			})
		})
	})

	Convey("Given no API key", t, func() {
		_, err := tmdb.New("", "  ")

		Convey("Then construction fails", func() {
			So(err, ShouldEqual, tmdb.ErrMissingAPIKey)
		})
	})
}

func TestClient_Lookups(t *testing.T) {
	Convey("Given a catalog stub with videos and providers", t, func() {
		stub := newCatalogStub()
		stub.body["/movie/42/videos"] = `{"id":42,"results":[
			{"key":"teaser","site":"YouTube","type":"Teaser"},
			{"key":"abc","site":"YouTube","type":"Trailer"}]}`
		stub.body["/movie/42/watch/providers"] = `{"id":42,"results":{"US":{"link":"https://www.themoviedb.org/movie/42/watch?locale=US"}}}`
		srv := httptest.NewServer(stub)
		defer srv.Close()
		c := newTestClient(t, srv.URL, "v3key")

		Convey("When videos are requested", func() {
			videos, err := c.Videos(context.Background(), 42)

			Convey("Then upstream order is preserved", func() {
				So(err, ShouldBeNil)
				So(len(videos), ShouldEqual, 2)
				So(videos[0].Key, ShouldEqual, "teaser")
				So(videos[1].Type, ShouldEqual, "Trailer")
			})
		})

		Convey("When watch providers are requested for a present region", func() {
			link, err := c.WatchProviders(context.Background(), 42, "us")

			Convey("Then the region link is returned", func() {
				So(err, ShouldBeNil)
				So(link, ShouldEqual, "https://www.themoviedb.org/movie/42/watch?locale=US")
			})
		})

		Convey("When watch providers are requested for an absent region", func() {
			link, err := c.WatchProviders(context.Background(), 42, "DE")

			Convey("Then the link is empty without error", func() {
				So(err, ShouldBeNil)
				So(link, ShouldEqual, "")
			})
		})

		Convey("When a lookup hits a missing movie", func() {
			_, err := c.Videos(context.Background(), 7)

			Convey("Then the status error is returned", func() {
				So(upstream.IsStatus(err, http.StatusNotFound), ShouldBeTrue)
			})
		})
	})
}
