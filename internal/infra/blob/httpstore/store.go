// Package httpstore exposes http(s) URLs through the blob Store interface.
// Keys are absolute URLs; the store is read-only.
package httpstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nwbview/internal/blob/core"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config controls the underlying client.
type Config struct {
	// Timeout bounds each request. Negative disables the client timeout.
	Timeout time.Duration
	// Transport overrides http.DefaultTransport, mainly for tests.
	Transport http.RoundTripper
	// UserAgent is sent when non-empty.
	UserAgent string
}

// Store implements core.Store with unauthenticated GET requests.
type Store struct {
	client    *http.Client
	userAgent string
}

// New constructs a store.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < 0:
		timeout = 0
	}
	return &Store{
		client:    &http.Client{Timeout: timeout, Transport: cfg.Transport},
		userAgent: cfg.UserAgent,
	}
}

func (s *Store) Driver() core.Driver { return core.DriverHTTP }

// Get fetches the URL. Non-2xx responses are errors; 404 and 410 wrap core.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	resp, err := s.do(ctx, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return infoFrom(key, resp), resp.Body, nil
}

func (s *Store) do(ctx context.Context, key string) (*http.Response, error) {
	if !IsURL(key) {
		return nil, fmt.Errorf("not an http url: %s", key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return nil, fmt.Errorf("GET %s: %w", key, core.ErrNotFound)
		}
		return nil, &StatusError{Method: http.MethodGet, URL: key, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsURL reports whether ref uses the http or https scheme.
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func infoFrom(key string, resp *http.Response) core.Info {
	lm := time.Now().UTC()
	if v := resp.Header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			lm = t.UTC()
		}
	}
	return core.Info{
		Key:          key,
		Size:         resp.ContentLength,
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         strings.Trim(resp.Header.Get("ETag"), "\""),
		LastModified: lm,
	}
}
