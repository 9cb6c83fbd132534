// Package webhook implements an HTTP POST connection to the metrics
// endpoint.
//
// Each batch is POSTed with the configured API key header. Retries use
// exponential backoff on 5xx responses and network errors; 4xx responses
// fail immediately.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultBackoff is the delay before the first retry. Doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// DefaultAPIKeyHeader carries the API key.
const DefaultAPIKeyHeader = "X-API-Key"

// maxResponseBytes bounds how much of a response body is returned.
const maxResponseBytes = 1 << 20

// Config configures the webhook connection.
type Config struct {
	// URL is the metrics endpoint to POST to (required).
	URL string
	// APIKey is sent in APIKeyHeader on every request.
	APIKey string
	// APIKeyHeader names the API key header (default X-API-Key).
	APIKeyHeader string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Connection sends batches via HTTP POST.
type Connection struct {
	config Config
	client *http.Client
	wg     sync.WaitGroup
}

// New creates a webhook connection from the given config.
// Returns an error if the URL is empty.
func New(cfg Config) (*Connection, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook connection requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = DefaultAPIKeyHeader
	}

	return &Connection{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send posts req on a new goroutine and reports the result through cb.
func (c *Connection) Send(ctx context.Context, req *adapter.Request, cb adapter.Callback) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.Post(ctx, req)
		cb(resp, err)
	}()
}

// Post sends req synchronously, retrying as configured, and returns the
// response body.
func (c *Connection) Post(ctx context.Context, req *adapter.Request) ([]byte, error) {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("webhook: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * c.config.Backoff
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("webhook: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		var body []byte
		body, lastErr = c.doRequest(ctx, req)
		if lastErr == nil {
			return body, nil
		}

		// 4xx errors are non-retriable
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return nil, fmt.Errorf("webhook: non-retriable error: %w", lastErr)
		}
	}

	return nil, fmt.Errorf("webhook: failed after %d attempts: %w", attempts, lastErr)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// doRequest performs a single HTTP POST and returns the body on 2xx.
func (c *Connection) doRequest(ctx context.Context, r *adapter.Request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(r.Payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	contentType := r.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if r.ContentEncoding != "" {
		req.Header.Set("Content-Encoding", r.ContentEncoding)
	}
	if c.config.APIKey != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DrainClose(resp.Body)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}
	return body, nil
}

// Close waits for in-flight sends and releases idle connections.
func (c *Connection) Close() error {
	c.wg.Wait()
	c.client.CloseIdleConnections()
	return nil
}

// Verify Connection implements the adapter interface.
var _ adapter.Connection = (*Connection)(nil)
