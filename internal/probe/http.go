package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// requestIDHeader matches the header the server echoes.
const requestIDHeader = "X-Request-ID"

// maxBody bounds a section response read.
const maxBody = 4 << 20

// client wraps http.Client with a base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// get performs a GET and decodes a JSON body into out. A nil out discards it.
func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set(requestIDHeader, id)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d (request %s)", path, resp.StatusCode, id)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// section fetches one section. An empty query fetches it unfiltered.
func (c *client) section(ctx context.Context, category string, limit int, query string) (Section, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if query != "" {
		params.Set("q", query)
	}
	var s Section
	err := c.get(ctx, "/sections/"+url.PathEscape(category), params, &s)
	return s, err
}

// maxLimit reads the section cap the server advertises on /stats.
func (c *client) maxLimit(ctx context.Context) (int, error) {
	var stats struct {
		MaxLimit int `json:"maxLimit"`
	}
	if err := c.get(ctx, "/stats", nil, &stats); err != nil {
		return 0, err
	}
	return stats.MaxLimit, nil
}
