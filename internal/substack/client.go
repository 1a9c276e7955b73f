package substack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	userAgent          = "substackmon/0.1.0"
	defaultHTTPTimeout = 30 * time.Second
	maxBodyBytes       = 4 << 20
)

// ErrNoPost indicates the homepage contained no recognizable post link.
var ErrNoPost = errors.New("no post link found")

// ErrNoContent indicates the post page contained no recognizable body text.
var ErrNoContent = errors.New("no post content found")

// Client scrapes a single Substack blog.
type Client struct {
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

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a client for the blog at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// LatestPostURL fetches the blog homepage and returns the absolute URL of
// the most recent post, or ErrNoPost when no post link is present.
func (c *Client) LatestPostURL(ctx context.Context) (string, error) {
	root, err := c.fetchHTML(ctx, c.baseURL)
	if err != nil {
		return "", fmt.Errorf("fetch homepage: %w", err)
	}

	href, ok := findFirstAnchorWithClass(root, "sitemap-link")
	if !ok {
		return "", ErrNoPost
	}
	resolved, err := c.resolveURL(href)
	if err != nil {
		return "", fmt.Errorf("resolve post url %q: %w", href, err)
	}
	return resolved, nil
}

// PostText fetches a post page and returns the concatenated text of the
// paragraphs inside the article body, or ErrNoContent when the body div is
// missing or empty.
func (c *Client) PostText(ctx context.Context, postURL string) (string, error) {
	root, err := c.fetchHTML(ctx, postURL)
	if err != nil {
		return "", fmt.Errorf("fetch post: %w", err)
	}

	body := findFirstDivWithClass(root, "body")
	if body == nil {
		return "", ErrNoContent
	}

	var paragraphs []string
	walk(body, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.TrimSpace(collectText(n)); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	})
	if len(paragraphs) == 0 {
		return "", ErrNoContent
	}
	return strings.Join(paragraphs, "\n"), nil
}

func (c *Client) fetchHTML(ctx context.Context, target string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d from %s", resp.StatusCode, target)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return root, nil
}

func (c *Client) resolveURL(href string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func findFirstAnchorWithClass(root *html.Node, class string) (string, bool) {
	var href string
	var found bool
	walk(root, func(n *html.Node) {
		if found || n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		if !hasClass(n, class) {
			return
		}
		for _, attr := range n.Attr {
			if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
				href = attr.Val
				found = true
				return
			}
		}
	})
	return href, found
}

func findFirstDivWithClass(root *html.Node, class string) *html.Node {
	var match *html.Node
	walk(root, func(n *html.Node) {
		if match == nil && n.Type == html.ElementNode && n.Data == "div" && hasClass(n, class) {
			match = n
		}
	})
	return match
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, candidate := range strings.Fields(attr.Val) {
			if candidate == class {
				return true
			}
		}
	}
	return false
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

func collectText(n *html.Node) string {
	var builder strings.Builder
	walk(n, func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
	})
	return builder.String()
}
