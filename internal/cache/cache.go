package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by Incr and Ping when redis cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// Client wraps redis.Client. Delete swallows connectivity errors; Incr reports them.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// NewFromRedis wraps an existing redis client.
func NewFromRedis(client *redis.Client) *Client {
	return &Client{client: client}
}

// Ping checks connectivity. A nil client reports ErrUnavailable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Delete removes keys. Redis errors are ignored; a key that cannot be
// deleted simply expires on its own ttl.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	_ = c.client.Del(ctx, keys...).Err()
	return nil
}

// Incr increments a counter and arms ttl when the counter is created.
// Errors wrap ErrUnavailable so callers can decide whether to fail open.
func (c *Client) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c == nil || c.client == nil {
		return 0, ErrUnavailable
	}
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Join(ErrUnavailable, err)
	}
	if count == 1 && ttl > 0 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, errors.Join(ErrUnavailable, err)
		}
	}
	return count, nil
}
