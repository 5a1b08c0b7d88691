// Package httpsrc implements a signal source that pulls candidate snapshots
// from an HTTP endpoint returning a JSON array of signals.
package httpsrc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"signalpilot/pkg/signal"
)

const (
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 2
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// Client fetches signal snapshots over HTTP.
type Client struct {
	url        string
	authToken  string
	httpClient *http.Client
	maxRetries int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthToken sets a bearer token attached to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs an HTTP signal source for the given snapshot URL.
func NewClient(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("httpsrc: url is required")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Snapshot fetches and decodes the current candidate list. Signals that fail
// validation are dropped here so malformed entries never reach ranking.
func (c *Client) Snapshot(ctx context.Context) ([]signal.Signal, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var raw []signal.Signal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("httpsrc: decode snapshot: %w", err)
	}

	out := make([]signal.Signal, 0, len(raw))
	for i := range raw {
		if err := raw[i].Validate(); err != nil {
			continue
		}
		out = append(out, raw[i])
	}
	return out, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpsrc: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("httpsrc: read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("httpsrc: http status %d: %s", resp.StatusCode, string(body))
			} else {
				return body, nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("httpsrc: request failed without error detail")
}

func init() {
	signal.RegisterSource("http", func(name string, cfg *signal.ProviderConfig) (signal.Source, error) {
		if cfg == nil || cfg.URL == "" {
			return nil, fmt.Errorf("httpsrc: source %s requires url", name)
		}
		opts := []Option{}
		if cfg.AuthToken != "" {
			opts = append(opts, WithAuthToken(cfg.AuthToken))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewClient(cfg.URL, opts...)
	})
}
