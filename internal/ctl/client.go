// Package ctl is the HTTP client for the daemon's control API, used by
// the substackmon CLI.
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Status mirrors the daemon's root status payload.
type Status struct {
	Status        string `json:"status"`
	WorkerActive  bool   `json:"worker_active"`
	PingActive    bool   `json:"ping_active"`
	LastProcessed string `json:"last_processed"`
	CycleCount    int64  `json:"cycle_count"`
	LastOutcome   string `json:"last_outcome"`
	LastPostURL   string `json:"last_post_url"`
	StartedAt     string `json:"started_at"`
	LastPingAt    string `json:"last_ping_at"`
	LastPingOK    bool   `json:"last_ping_ok"`
}

// Health mirrors the daemon's health payload.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Client talks to a running substackmond control API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithToken sets the bearer token sent on mutating requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New constructs a client for the control API at baseURL, e.g.
// "http://127.0.0.1:8473".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status fetches daemon and worker state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.do(ctx, http.MethodGet, "/", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health probes the daemon's health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.do(ctx, http.MethodGet, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// StartWorker asks the daemon to start the monitor loop. The returned
// message is the daemon's human-readable status line.
func (c *Client) StartWorker(ctx context.Context) (string, error) {
	return c.mutate(ctx, "/start")
}

// StopWorker asks the daemon to stop the monitor loop after the current
// cycle finishes.
func (c *Client) StopWorker(ctx context.Context) (string, error) {
	return c.mutate(ctx, "/stop")
}

func (c *Client) mutate(ctx context.Context, path string) (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, path, &payload); err != nil {
		return "", err
	}
	return payload.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" && method != http.MethodGet {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
