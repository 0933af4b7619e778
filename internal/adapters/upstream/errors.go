package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for upstream failures.
var (
	// ErrUnavailable covers transport failures, timeouts and an open breaker.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrMalformed is returned when a response body cannot be decoded.
	ErrMalformed = errors.New("upstream returned malformed payload")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Provider   string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d %s", e.Provider, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrUnavailable) match server-side failures so callers
// can treat 5xx and transport errors alike.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable && e.StatusCode >= http.StatusInternalServerError
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsStatus reports whether err carries an upstream status equal to code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
