// Package backend is the REST client for the inbox API that owns tickets
// and metrics. Every call is a single request: no retry, no caching.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

var ErrBadBaseURL = errors.New("invalid backend base url")

// StatusError is returned when the backend answers outside the 2xx range.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (http.DefaultTransport, no timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero keeps the client's own timeout.
// It applies to a copy of the client given by WithHTTPClient, in either
// option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadBaseURL, baseURL)
	}
	c := &Client{base: u, http: &http.Client{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Metrics fetches GET /metrics.
func (c *Client) Metrics(ctx context.Context) (types.MetricsSnapshot, error) {
	var m types.MetricsSnapshot
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, &m); err != nil {
		return types.MetricsSnapshot{}, err
	}
	return m, nil
}

// Tickets fetches the whole collection, in server order.
func (c *Client) Tickets(ctx context.Context) ([]types.Ticket, error) {
	var ts []types.Ticket
	if err := c.do(ctx, http.MethodGet, "/tickets", nil, &ts); err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []types.Ticket{}
	}
	return ts, nil
}

// PatchTicket sends a partial update. The response body is ignored.
func (c *Client) PatchTicket(ctx context.Context, id int64, patch types.TicketPatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return c.do(ctx, http.MethodPatch, "/tickets/"+strconv.FormatInt(id, 10), body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
