package brain

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// Config holds the memory API connection settings.
type Config struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// ReadyTimeout bounds the wait for /health before awakening. Zero skips it.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// DefaultConfig points at the locally hosted memory API.
func DefaultConfig() Config {
	return Config{
		URL:          "http://localhost:8001",
		Timeout:      10 * time.Second,
		ReadyTimeout: 30 * time.Second,
	}
}

// maxErrorBody caps how much of a failed response is kept in error context.
const maxErrorBody = 512

// Client talks JSON over HTTP to the memory API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client. Zero config fields fall back to DefaultConfig.
func New(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// BaseURL returns the memory API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Response is a raw memory API answer.
type Response struct {
	StatusCode int
	Body       []byte
	Latency    time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return nerrors.BrainWrap(err, nerrors.ErrBrainDecodeFailed, "response is not the expected JSON").
			WithContext("body", truncate(string(r.Body)))
	}
	return nil
}

// send performs one request without judging the status code.
func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nerrors.BrainWrap(err, nerrors.ErrBrainEncodeFailed, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nerrors.Internal(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err, target)
	}
	latency := time.Since(start)

	c.logger.Debug("memory API call",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))

	return &Response{StatusCode: resp.StatusCode, Body: data, Latency: latency}, nil
}

// do is send plus status classification.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, nerrors.HTTPStatus(resp.StatusCode, method, endpoint, truncate(string(resp.Body)))
	}
	return resp, nil
}

func classifyTransport(err error, target string) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return nerrors.NetworkWrap(err, nerrors.ErrNetworkTimeout, target)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return nerrors.NetworkWrap(err, nerrors.ErrNetworkUnreachable, target)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

// Get performs a GET and fails on non-2xx.
func (c *Client) Get(ctx context.Context, endpoint string) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// Post sends body as JSON and fails on non-2xx.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// Probe reports whether GET endpoint answers 200.
func (c *Client) Probe(ctx context.Context, endpoint string) bool {
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	return err == nil && resp.StatusCode == http.StatusOK
}

// Health calls /health. A non-200 answer returns the report together with a
// BRAIN_UNHEALTHY error so callers can still read the latency.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	report := &HealthReport{StatusCode: resp.StatusCode, Latency: resp.Latency}
	_ = json.Unmarshal(resp.Body, &report.Body)

	if resp.StatusCode != http.StatusOK {
		return report, nerrors.Brain(nerrors.ErrBrainUnhealthy, "memory API health check failed").
			WithContext("status", fmt.Sprintf("%d", resp.StatusCode))
	}
	return report, nil
}

// Stats fetches /stats.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	resp, err := c.Get(ctx, "/stats")
	if err != nil {
		return nil, err
	}
	var stats Stats
	if err := resp.Decode(&stats); err != nil {
		return nil, err
	}
	if err := resp.Decode(&stats.Raw); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentEpisodes fetches the newest episodes, newest first.
func (c *Client) RecentEpisodes(ctx context.Context, limit int) ([]Episode, error) {
	endpoint := "/memory/episodic/recent"
	if limit > 0 {
		endpoint += "?" + url.Values{"limit": {fmt.Sprintf("%d", limit)}}.Encode()
	}
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var episodes []Episode
	if err := resp.Decode(&episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// RecordAction documents an action in episodic memory.
func (c *Client) RecordAction(ctx context.Context, action Action) error {
	if action.ActionDetails == nil {
		action.ActionDetails = map[string]any{}
	}
	if action.Tags == nil {
		action.Tags = []string{}
	}
	_, err := c.Post(ctx, "/memory/action", action)
	return err
}

// Search runs a memory search. Both a bare array and {"results": [...]} are accepted.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	resp, err := c.Post(ctx, "/memory/search", req)
	if err != nil {
		return nil, err
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '[' {
		var results []SearchResult
		if err := resp.Decode(&results); err != nil {
			return nil, err
		}
		return results, nil
	}
	var wrapped struct {
		Results []SearchResult `json:"results"`
	}
	if err := resp.Decode(&wrapped); err != nil {
		return nil, err
	}
	return wrapped.Results, nil
}

// OpenAPIPaths lists the paths the memory API publishes, sorted.
func (c *Client) OpenAPIPaths(ctx context.Context) ([]string, error) {
	resp, err := c.Get(ctx, "/openapi.json")
	if err != nil {
		return nil, err
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := resp.Decode(&doc); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// WaitReady polls /health every interval until it answers 200 or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	if _, err := c.Health(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := c.Health(ctx)
			if err == nil {
				return nil
			}
			if time.Now().After(deadline) {
				return nerrors.Wrap(err, nerrors.ErrBrainUnhealthy, nerrors.CategoryBrain,
					fmt.Sprintf("memory API not ready within %v", timeout)).
					WithContext("url", c.baseURL)
			}
		}
	}
}
