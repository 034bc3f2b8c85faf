package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"

	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/metrics"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	Requests int
	Window   time.Duration

	// Counter stores the window counters. Nil keeps them in process.
	Counter httprate.LimitCounter
}

// RateLimit returns a sliding-window limiter keyed by client IP.
// Mount RealIP before it when running behind a proxy.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	options := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RateLimited.WithLabelValues("api").Inc()
			slog.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			httpx.WriteError(w, http.StatusTooManyRequests, "too many requests")
		}),
	}
	if opts.Counter != nil {
		options = append(options, httprate.WithLimitCounter(opts.Counter))
	}

	return httprate.Limit(opts.Requests, opts.Window, options...)
}

// RedisCounter is an httprate.LimitCounter backed by Redis, so several
// server instances share their windows. Redis failures are logged and let
// requests through.
type RedisCounter struct {
	client       *redis.Client
	prefix       string
	windowLength time.Duration
	timeout      time.Duration
}

var _ httprate.LimitCounter = (*RedisCounter)(nil)

// NewRedisCounter creates a counter storing its keys under prefix.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{
		client:       client,
		prefix:       prefix,
		windowLength: time.Minute,
		timeout:      200 * time.Millisecond,
	}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Config is called by httprate with the limiter settings.
func (c *RedisCounter) Config(requestLimit int, windowLength time.Duration) {
	c.windowLength = windowLength
}

func (c *RedisCounter) windowKey(key string, window time.Time) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, window.Unix(), key)
}

// Increment adds one request to the window.
func (c *RedisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

// IncrementBy adds amount requests to the window.
func (c *RedisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := c.windowKey(key, currentWindow)
	pipe := c.client.TxPipeline()
	pipe.IncrBy(ctx, k, int64(amount))
	// The previous window is still read during the current one
	pipe.Expire(ctx, k, 3*c.windowLength)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Failed to increment rate limit counter", "key", k, "error", err)
	}
	return nil
}

// Get returns the counts of the current and previous windows.
func (c *RedisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	values, err := c.client.MGet(ctx,
		c.windowKey(key, currentWindow),
		c.windowKey(key, previousWindow),
	).Result()
	if err != nil {
		slog.Warn("Failed to read rate limit counters", "key", key, "error", err)
		return 0, 0, nil
	}

	return parseCount(values, 0), parseCount(values, 1), nil
}

// parseCount reads the i-th MGET value; missing keys count as zero.
func parseCount(values []interface{}, i int) int {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	s, ok := values[i].(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
