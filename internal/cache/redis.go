package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed implementation of Cache for deployments
// where multiple instances share the same listing cache.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache creates a new Redis cache wrapping an existing client.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "stocktrack:cache:"
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete removes a value by key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// GetOrSet retrieves a value or computes and stores it if missing.
func (c *RedisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}

	return value, nil
}

// Clear removes all entries under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
