package omdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/marquee/internal/adapters/omdb"
	"github.com/okian/marquee/internal/adapters/upstream"
	"github.com/okian/marquee/internal/domain/model"
)

func newServer(handler func(q url.Values) (int, string)) (*httptest.Server, *atomic.Int64) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		status, body := handler(r.URL.Query())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return srv, &hits
}

func newClient(t *testing.T, baseURL string) *omdb.Client {
	t.Helper()
	c, err := omdb.New(baseURL, "key",
		upstream.WithRetries(0),
		upstream.WithRetryDelay(time.Millisecond),
		upstream.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_Ratings(t *testing.T) {
	Convey("Given a ratings provider", t, func() {
		srv, hits := newServer(func(q url.Values) (int, string) {
			if q.Get("apikey") != "key" {
				return http.StatusUnauthorized, `{"Response":"False","Error":"No API key provided."}`
			}
			switch q.Get("t") {
			case "Dune: Part Two":
				return http.StatusOK, `{"Title":"Dune: Part Two","imdbRating":"8.5","Ratings":[
					{"Source":"Internet Movie Database","Value":"8.5/10"},
					{"Source":"Rotten Tomatoes","Value":"92%"}],"Response":"True"}`
			case "Repeated":
				return http.StatusOK, `{"Title":"Repeated","imdbRating":"6.1","Ratings":[
					{"Source":"Rotten Tomatoes","Value":"40%"},
					{"Source":"Metacritic","Value":"55/100"},
					{"Source":"Rotten Tomatoes","Value":"45%"}],"Response":"True"}`
			case "Obscure":
				return http.StatusOK, `{"Title":"Obscure","imdbRating":"N/A","Ratings":[],"Response":"True"}`
			case "Sparse":
				return http.StatusOK, `{"Title":"Sparse","Response":"True"}`
			case "Broken":
				return http.StatusBadGateway, ``
			default:
				return http.StatusOK, `{"Response":"False","Error":"Movie not found!"}`
			}
		})
		defer srv.Close()
		c := newClient(t, srv.URL)
		ctx := context.Background()

		Convey("When the title has both ratings", func() {
			r, err := c.Ratings(ctx, "Dune: Part Two")

			Convey("Then both are returned", func() {
				So(err, ShouldBeNil)
				So(r.IMDb, ShouldEqual, "8.5")
				So(r.RottenTomatoes, ShouldEqual, "92%")
			})
		})

		Convey("When the title lists Rotten Tomatoes twice", func() {
			r, err := c.Ratings(ctx, "Repeated")

			Convey("Then the last entry is used", func() {
				So(err, ShouldBeNil)
				So(r.IMDb, ShouldEqual, "6.1")
				So(r.RottenTomatoes, ShouldEqual, "45%")
			})
		})

		Convey("When the title has no Rotten Tomatoes entry", func() {
			r, err := c.Ratings(ctx, "Obscure")

			Convey("Then the missing rating is the sentinel", func() {
				So(err, ShouldBeNil)
				So(r.IMDb, ShouldEqual, model.Unavailable)
				So(r.RottenTomatoes, ShouldEqual, model.Unavailable)
			})
		})

		Convey("When the response omits every rating field", func() {
			r, err := c.Ratings(ctx, "Sparse")

			Convey("Then both fields fall back to the sentinel", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, model.UnavailableRatings())
			})
		})

		Convey("When the provider does not know the title", func() {
			r, err := c.Ratings(ctx, "Nope")

			Convey("Then the result is unavailable without error", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, model.UnavailableRatings())
			})
		})

		Convey("When the provider fails", func() {
			r, err := c.Ratings(ctx, "Broken")

			Convey("Then the error is returned with sentinel ratings", func() {
				So(err, ShouldNotBeNil)
				So(r, ShouldResemble, model.UnavailableRatings())
			})
		})

		Convey("When the title is blank", func() {
			r, err := c.Ratings(ctx, "  ")

			Convey("Then no request is made", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, model.UnavailableRatings())
				So(hits.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given no API key", t, func() {
		_, err := omdb.New("", "")

		Convey("Then construction fails", func() {
			So(err, ShouldEqual, omdb.ErrMissingAPIKey)
		})
	})
}
