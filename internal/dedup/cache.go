// Package dedup tracks how many times each telemetry fingerprint has been
// observed, backed by Redis so that every ingestion replica shares one view.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the shared observation counter. It also stores short-lived
// auxiliary values, used for pairing compact position reports across
// requests.
type Cache interface {
	// Observe atomically increments the observation count of key and
	// returns the post-increment value. Every observation refreshes the
	// key's expiry, so a fingerprint only ages out once it stops arriving.
	Observe(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetValues stores each key/value pair with the given expiry.
	SetValues(ctx context.Context, pairs map[string]string, ttl time.Duration) error

	// GetValues fetches the values for keys, in order. Missing or expired
	// keys yield an empty string.
	GetValues(ctx context.Context, keys ...string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

type redisCache struct {
	client  *redis.Client
	observe *redis.Script
}

// observeScript increments and refreshes the expiry in one round trip, so
// two replicas racing on the same fingerprint cannot both see count 1.
const observeScript = `
	local count = redis.call('INCR', KEYS[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	return count
`

// NewRedisCache connects to Redis and verifies the connection before
// returning.
func NewRedisCache(redisURL string, poolSize int, poolTimeout time.Duration) (Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	if poolTimeout > 0 {
		opt.PoolTimeout = poolTimeout
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisCache(client), nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of the
// client's lifecycle in tests.
func NewWithClient(client *redis.Client) Cache {
	return newRedisCache(client)
}

func newRedisCache(client *redis.Client) *redisCache {
	return &redisCache{
		client:  client,
		observe: redis.NewScript(observeScript),
	}
}

func (c *redisCache) Observe(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.observe.Run(ctx, c.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("observation count failed: %w", err)
	}
	return count, nil
}

func (c *redisCache) SetValues(ctx context.Context, pairs map[string]string, ttl time.Duration) error {
	pipe := c.client.Pipeline()
	for key, value := range pairs {
		pipe.Set(ctx, key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("value store failed: %w", err)
	}
	return nil
}

func (c *redisCache) GetValues(ctx context.Context, keys ...string) ([]string, error) {
	raw, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("value fetch failed: %w", err)
	}

	values := make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			values[i] = s
		}
	}
	return values, nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
