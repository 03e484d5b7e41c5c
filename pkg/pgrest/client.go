// Package pgrest is a small read-only client for the PostgREST-compatible
// data API the broker exporters write into. It fetches raw rows and decodes
// them into the timeseries core's types, tolerating partially malformed
// results.
package pgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Client talks to one PostgREST-style base URL.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	retryEnabled   bool
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each individual HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithLogger replaces the default production logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetry overrides the default retry policy. maxRetries 0 disables
// retrying altogether.
func WithRetry(maxRetries int, initial, max time.Duration) Option {
	return func(c *Client) {
		c.retryEnabled = maxRetries > 0
		c.maxRetries = maxRetries
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// NewClient creates a client for the data API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		retryEnabled:   true,
		maxRetries:     3,
		initialBackoff: 100 * time.Millisecond,
		maxBackoff:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			c.logger = zap.NewNop()
		} else {
			c.logger = logger
		}
	}
	return c
}

// Rows performs a GET against /<table> with PostgREST-style query
// parameters (col=op.value) and returns the decoded rows.
func (c *Client) Rows(ctx context.Context, table string, query url.Values) ([]map[string]any, error) {
	body, err := c.get(ctx, "/"+url.PathEscape(table), query)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying data API request", zap.String("url", u), zap.Int("attempt", attempt))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
			// Client errors won't heal on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	var err error
	if c.retryEnabled {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.initialBackoff
		b.MaxInterval = c.maxBackoff
		b.MaxElapsedTime = time.Duration(c.maxRetries) * c.maxBackoff
		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	} else {
		err = operation()
	}
	if err != nil {
		c.logger.Warn("data API request failed", zap.String("url", u), zap.Error(err))
		return nil, err
	}
	return body, nil
}
