package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/marquee/internal/adapters/upstream"
)

type payload struct {
	Name string `json:"name"`
}

func newClient(t *testing.T, baseURL string, opts ...upstream.Option) *upstream.Client {
	t.Helper()
	opts = append([]upstream.Option{
		upstream.WithRetryDelay(time.Millisecond),
		upstream.WithTimeout(time.Second),
		upstream.WithSecretParams("api_key"),
	}, opts...)
	c, err := upstream.New("test", baseURL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_GetJSON(t *testing.T) {
	Convey("Given an upstream that answers with JSON", t, func() {
		var hits atomic.Int64
		requests := make(chan *http.Request, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			requests <- r.Clone(context.Background())
			_, _ = w.Write([]byte(`{"name":"ok","extra":1}`))
		}))
		defer srv.Close()

		c := newClient(t, srv.URL+"/", upstream.WithHeader("Authorization", "Bearer tok"))

		Convey("When a request is made", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/movie/popular", url.Values{"page": {"1"}}, &out)

			Convey("Then the body is decoded and headers and query are sent", func() {
				So(err, ShouldBeNil)
				got := <-requests
				gotQuery := got.URL.Query()
				gotAuth := got.Header.Get("Authorization")
				gotAccept := got.Header.Get("Accept")
				So(out.Name, ShouldEqual, "ok")
				So(hits.Load(), ShouldEqual, 1)
				So(gotQuery.Get("page"), ShouldEqual, "1")
				So(gotAuth, ShouldEqual, "Bearer tok")
				So(gotAccept, ShouldEqual, "application/json")
				So(c.Provider(), ShouldEqual, "test")
				So(c.BreakerState(), ShouldEqual, "closed")
			})
		})
	})

	Convey("Given an upstream that rejects the request", t, func() {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		c := newClient(t, srv.URL)

		Convey("When a request is made with a secret parameter", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/x", url.Values{"api_key": {"s3cret"}}, &out)

			Convey("Then a StatusError is returned without retries or leaked secrets", func() {
				So(err, ShouldNotBeNil)
				So(hits.Load(), ShouldEqual, 1)
				var se *upstream.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.StatusCode, ShouldEqual, http.StatusNotFound)
				So(upstream.IsStatus(err, http.StatusNotFound), ShouldBeTrue)
				So(errors.Is(err, upstream.ErrUnavailable), ShouldBeFalse)
				So(strings.Contains(err.Error(), "s3cret"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an upstream that recovers after transient failures", t, func() {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"name":"late"}`))
		}))
		defer srv.Close()
		c := newClient(t, srv.URL, upstream.WithRetries(2))

		Convey("When a request is made", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/x", nil, &out)

			Convey("Then it succeeds on the last attempt", func() {
				So(err, ShouldBeNil)
				So(out.Name, ShouldEqual, "late")
				So(hits.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an upstream that keeps failing with 500", t, func() {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		c := newClient(t, srv.URL, upstream.WithRetries(2), upstream.WithBreakerThreshold(100))

		Convey("When a request is made", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/x", nil, &out)

			Convey("Then retries are bounded and the error reads as unavailable", func() {
				So(hits.Load(), ShouldEqual, 3)
				So(errors.Is(err, upstream.ErrUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given an upstream returning a broken body", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":`))
		}))
		defer srv.Close()
		c := newClient(t, srv.URL)

		Convey("Then decoding fails with ErrMalformed", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/x", nil, &out)
			So(errors.Is(err, upstream.ErrMalformed), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable upstream", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		base := srv.URL
		srv.Close()
		c := newClient(t, base, upstream.WithRetries(0))

		Convey("Then the transport error reads as unavailable", func() {
			var out payload
			err := c.GetJSON(context.Background(), "/x", url.Values{"api_key": {"s3cret"}}, &out)
			So(errors.Is(err, upstream.ErrUnavailable), ShouldBeTrue)
			So(strings.Contains(err.Error(), "s3cret"), ShouldBeFalse)
		})
	})

	Convey("Given an invalid base URL", t, func() {
		_, err := upstream.New("test", "not a url")

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	Convey("Given a failing upstream and a breaker threshold of two", t, func() {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		c := newClient(t, srv.URL,
			upstream.WithRetries(0),
			upstream.WithBreakerThreshold(2),
			upstream.WithBreakerTimeout(time.Hour))

		var out payload
		_ = c.GetJSON(context.Background(), "/x", nil, &out)
		_ = c.GetJSON(context.Background(), "/x", nil, &out)

		Convey("When another request is made", func() {
			err := c.GetJSON(context.Background(), "/x", nil, &out)

			Convey("Then it fails fast without reaching the upstream", func() {
				So(hits.Load(), ShouldEqual, 2)
				So(errors.Is(err, upstream.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
				So(c.BreakerState(), ShouldEqual, "open")
			})
		})
	})

	Convey("Given an upstream answering 404", t, func() {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		c := newClient(t, srv.URL, upstream.WithRetries(0), upstream.WithBreakerThreshold(2))

		Convey("Then client errors never open the breaker", func() {
			var out payload
			for i := 0; i < 5; i++ {
				_ = c.GetJSON(context.Background(), "/x", nil, &out)
			}
			So(hits.Load(), ShouldEqual, 5)
			So(c.BreakerState(), ShouldEqual, "closed")
		})
	})
}
