// Package rediscache provides a Redis-backed response cache for restcall
// cached clients. Responses are stored as JSON under a prefixed key with a
// TTL, so entries are shared across processes and expire on their own.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/restcall"
)

// Config holds Redis cache configuration.
type Config struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	Prefix     string `yaml:"prefix"`
}

const (
	defaultTTL    = 5 * time.Minute
	defaultPrefix = "restcall:response"
)

// Cache stores responses in Redis.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// New creates a Redis response cache and verifies the connection.
func New(cfg Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := defaultTTL
	if cfg.TTLSeconds > 0 {
		ttl = time.Duration(cfg.TTLSeconds) * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Cache{rdb: rdb, ttl: ttl, prefix: prefix, logger: slog.Default()}, nil
}

func (c *Cache) key(entry string) string {
	return fmt.Sprintf("%s:%s", c.prefix, entry)
}

// Get loads the cached response for key. Redis errors other than a missing
// key are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*restcall.Response, bool) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis cache read failed", "key", key, "error", err)
		return nil, false
	}

	var resp restcall.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("redis cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

// Set stores the response under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, resp *restcall.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
