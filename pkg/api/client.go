package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Client talks to a running daemon's API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at baseURL, e.g. http://localhost:8002.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) call(ctx context.Context, method, path string, out any) error {
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nerrors.Internal(err, "building daemon request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return daemonUnreachable(err, target).
			WithSuggestions("Start the daemon with 'nexus run'", "Check api.host and api.port in the config")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return daemonUnreachable(err, target)
	}
	var env Response
	if err := json.Unmarshal(body, &env); err != nil {
		return nerrors.BrainWrap(err, nerrors.ErrBrainDecodeFailed, "daemon answered with something other than an API envelope").
			WithContext("url", target).
			WithContext("status", strconv.Itoa(resp.StatusCode))
	}
	if !env.Success {
		code, msg := "daemon_error", http.StatusText(resp.StatusCode)
		if env.Error != nil {
			code, msg = env.Error.Code, env.Error.Message
		}
		return nerrors.New(code, nerrors.CategoryEngine, msg).
			WithContext("status", strconv.Itoa(resp.StatusCode))
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return nerrors.BrainWrap(err, nerrors.ErrBrainDecodeFailed, fmt.Sprintf("decoding %s", path))
	}
	return nil
}

// Health fetches /api/health. An emergency answers 503 and is returned as an error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.call(ctx, http.MethodGet, "/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (*engine.Status, error) {
	var s engine.Status
	if err := c.call(ctx, http.MethodGet, "/api/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Awareness fetches /api/awareness.
func (c *Client) Awareness(ctx context.Context) (*awareness.SelfKnowledge, error) {
	var k awareness.SelfKnowledge
	if err := c.call(ctx, http.MethodGet, "/api/awareness", &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// Changes fetches up to limit recent changes, newest first.
func (c *Client) Changes(ctx context.Context, limit int) ([]watcher.ChangeEvent, error) {
	var out struct {
		Changes []watcher.ChangeEvent `json:"changes"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/changes"+limitQuery(limit), &out); err != nil {
		return nil, err
	}
	return out.Changes, nil
}

// Optimizations fetches up to limit recent optimization records, newest first.
func (c *Client) Optimizations(ctx context.Context, limit int) ([]reflex.Record, error) {
	var out struct {
		Optimizations []reflex.Record `json:"optimizations"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/optimizations"+limitQuery(limit), &out); err != nil {
		return nil, err
	}
	return out.Optimizations, nil
}

// Plans fetches /api/plans.
func (c *Client) Plans(ctx context.Context) ([]reflex.Plan, error) {
	var out struct {
		Plans []reflex.Plan `json:"plans"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/plans", &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

// Force asks the daemon to run optimization t now.
func (c *Client) Force(ctx context.Context, t reflex.OptimizationType) (*reflex.Record, error) {
	var rec reflex.Record
	if err := c.call(ctx, http.MethodPost, "/api/optimizations/"+url.PathEscape(string(t)), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func daemonUnreachable(err error, target string) *nerrors.NexusError {
	return nerrors.Wrap(err, nerrors.ErrNetworkUnreachable, nerrors.CategoryNetwork, "daemon request failed").
		WithContext("url", target)
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}
