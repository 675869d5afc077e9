// Package paperdex is a thin HTTP client for the paperdex search API.
package paperdex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// Client is the paperdex SDK entry point.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a paperdex Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{baseURL: strings.TrimRight(baseURL, "/")}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    cfg.baseURL,
		apiKey:     cfg.apiKey,
		httpClient: cfg.httpClient,
	}
}

// Search runs a paper search. source may be empty, "all", "arxiv" or "pubmed".
func (c *Client) Search(ctx context.Context, query, source string) (SearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: query, Source: source})
	if err != nil {
		return SearchResult{}, fmt.Errorf("paperdex: marshal request: %w", err)
	}

	var result SearchResult
	if err := c.do(ctx, http.MethodPost, "/search", bytes.NewReader(body), &result); err != nil {
		return SearchResult{}, err
	}
	return result, nil
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}

// CacheStatus fetches the vector cache status.
func (c *Client) CacheStatus(ctx context.Context) (CacheStatus, error) {
	var status CacheStatus
	if err := c.do(ctx, http.MethodGet, "/cache-status", nil, &status); err != nil {
		return CacheStatus{}, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	hasBody := body != nil
	if !hasBody {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("paperdex: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paperdex: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paperdex: decode response: %w", err)
	}
	return nil
}
