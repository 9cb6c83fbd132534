// Package redis implements a Redis pub/sub connection.
//
// Each batch payload is PUBLISHed to a configurable channel, for backends
// that ingest from Redis rather than HTTP. Retries with exponential backoff
// on connection errors.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/beacon/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "beacon:log_request"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultBackoff is the delay before the first retry. Doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// Config configures the Redis pub/sub connection.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: beacon:log_request).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Connection publishes batches via Redis PUBLISH.
type Connection struct {
	config Config
	client *goredis.Client
	wg     sync.WaitGroup
}

// New creates a Redis pub/sub connection from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Connection, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis connection requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis connection: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
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

	return &Connection{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Send publishes req on a new goroutine and reports the result through cb.
// The response is the subscriber count as decimal text.
func (c *Connection) Send(ctx context.Context, req *adapter.Request, cb adapter.Callback) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		n, err := c.Publish(ctx, req)
		if err != nil {
			cb(nil, err)
			return
		}
		cb([]byte(strconv.FormatInt(n, 10)), nil)
	}()
}

// Publish sends the payload to the configured channel, retrying with
// exponential backoff. Returns the number of receiving subscribers.
func (c *Connection) Publish(ctx context.Context, req *adapter.Request) (int64, error) {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("redis: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * c.config.Backoff
			select {
			case <-ctx.Done():
				return 0, fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		n, err := c.client.Publish(publishCtx, c.config.Channel, req.Payload).Result()
		cancel()

		if err == nil {
			return n, nil
		}
		lastErr = err
	}

	return 0, fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// Close waits for in-flight sends and closes the client.
func (c *Connection) Close() error {
	c.wg.Wait()
	return c.client.Close()
}

// Verify Connection implements the adapter interface.
var _ adapter.Connection = (*Connection)(nil)
