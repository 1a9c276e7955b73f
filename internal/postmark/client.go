// Package postmark delivers summary emails through the Postmark API.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.postmarkapp.com"
	defaultHTTPTimeout = 10 * time.Second
	userAgent          = "substackmon/0.1.0"
)

// Config captures the runtime settings required to send email.
type Config struct {
	ServerToken    string
	Sender         string
	Recipients     []string
	MessageStream  string
	RequestTimeout int
}

// Client wraps the Postmark single-email endpoint.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a Postmark client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type emailRequest struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	MessageStream string `json:"MessageStream,omitempty"`
}

type emailResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Deliver sends one HTML email to the configured recipients.
func (c *Client) Deliver(ctx context.Context, subject, htmlBody string) error {
	if strings.TrimSpace(c.cfg.ServerToken) == "" {
		return errors.New("postmark deliver: server token required")
	}
	if len(c.cfg.Recipients) == 0 {
		return errors.New("postmark deliver: recipients required")
	}

	payload := emailRequest{
		From:          c.cfg.Sender,
		To:            strings.Join(c.cfg.Recipients, ","),
		Subject:       subject,
		HtmlBody:      htmlBody,
		MessageStream: c.cfg.MessageStream,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("postmark deliver: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("postmark deliver: request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Postmark-Server-Token", c.cfg.ServerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("postmark deliver: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("postmark deliver: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("postmark deliver: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded emailResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("postmark deliver: decode response: %w", err)
	}
	if decoded.ErrorCode != 0 {
		return fmt.Errorf("postmark deliver: api error %d: %s", decoded.ErrorCode, decoded.Message)
	}
	return nil
}

// HTMLBody wraps plain text in paragraph tags the way the email expects.
// Lines become individual paragraphs.
func HTMLBody(text string) string {
	return "<p>" + strings.ReplaceAll(text, "\n", "</p><p>") + "</p>"
}
