package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readmegen/internal/config"

	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "readmegen"

var errNotInitialized = errors.New("redis client not initialized")

// Client wraps go-redis client to centralize configuration and key naming.
type Client struct {
	inner  *redis.Client
	prefix string
}

// ErrCacheMiss mirrors redis.Nil for callers.
var ErrCacheMiss = redis.Nil

// NewRedisClient creates the redis client from app config and pings it.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}
	return Dial(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.KeyPrefix)
}

// Dial connects with explicit options.
func Dial(opts *redis.Options, prefix string) (*Client, error) {
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Client{inner: client, prefix: prefix}, nil
}

// Key joins parts under the configured prefix, e.g. readmegen:session:<id>.
func (c *Client) Key(parts ...string) string {
	prefix := defaultKeyPrefix
	if c != nil && c.prefix != "" {
		prefix = c.prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// Set stores a key with TTL. A zero TTL keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	return c.inner.Set(ctx, key, value, ttl).Err()
}

// Get fetches the key as string.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c == nil || c.inner == nil {
		return "", errNotInitialized
	}
	return c.inner.Get(ctx, key).Result()
}

// Del removes provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.inner.Del(ctx, keys...).Err()
}

// Expire refreshes the TTL of key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	return c.inner.Expire(ctx, key, ttl).Err()
}

// TTL returns key ttl.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	if c == nil || c.inner == nil {
		return 0, errNotInitialized
	}
	return c.inner.TTL(ctx, key).Result()
}

// Close closes client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
