package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pixil98/go-geoquest/internal/game"
)

const DefaultTimeout = 10 * time.Second

// Decorator adds credentials to outgoing authenticated requests.
type Decorator interface {
	Decorate(req *http.Request)
}

// Client talks to the game's REST backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	decorator Decorator
	metrics   *Metrics
}

type ClientOpt func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		c.http = hc
	}
}

// WithDecorator sets the credential decorator applied to authenticated requests.
func WithDecorator(d Decorator) ClientOpt {
	return func(c *Client) {
		c.decorator = d
	}
}

// WithMetrics records request round-trip times into m.
func WithMetrics(m *Metrics) ClientOpt {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(baseURL string, opts ...ClientOpt) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		metrics: NewMetrics(DefaultMetricsSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Metrics returns the round-trip time buffer.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Query fetches the objects of one kind matching q. Objects are returned in
// scan order: primary data, then included game objects.
func (c *Client) Query(ctx context.Context, kind game.Kind, q SpatialQuery) ([]*game.Object, error) {
	filter, err := q.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}

	path := "/" + string(kind)
	body, err := c.do(ctx, http.MethodGet, path, url.Values{"filter": {filter}}, nil, true)
	if err != nil {
		return nil, err
	}

	objs, err := parseCollection(body)
	if err != nil {
		return nil, &ShapeError{Path: path, Reason: err.Error()}
	}
	return objs, nil
}

// Self looks up the logged in user's current player object.
func (c *Client) Self(ctx context.Context) (*game.Object, error) {
	const path = "/gameobject_player/self"
	body, err := c.do(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}

	o, err := parseSingle(body)
	if err != nil {
		return nil, &ShapeError{Path: path, Reason: err.Error()}
	}
	return o, nil
}

// Worlds lists the worlds a player can join.
func (c *Client) Worlds(ctx context.Context) ([]game.World, error) {
	const path = "/world"
	body, err := c.do(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}

	worlds, err := parseWorlds(body)
	if err != nil {
		return nil, &ShapeError{Path: path, Reason: err.Error()}
	}
	return worlds, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, authenticated bool) ([]byte, error) {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated && c.decorator != nil {
		c.decorator.Decorate(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	// Ignoring close error - body is fully read, error is not actionable
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}
	if c.metrics != nil {
		c.metrics.Push(time.Since(start))
	}

	slog.DebugContext(ctx, "api request", "method", method, "path", path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
