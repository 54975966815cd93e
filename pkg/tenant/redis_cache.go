package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// DefaultRedisKeyPrefix namespaces tenant cache keys in Redis.
const DefaultRedisKeyPrefix = "tenant:"

// RedisCache shares resolved tenants between processes through Redis.
// Values are stored as JSON; failures are logged and treated as cache misses.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisKeyPrefix overrides DefaultRedisKeyPrefix.
func WithRedisKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithRedisLogger sets the logger used to report Redis failures.
func WithRedisLogger(log *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewRedisCache creates a cache on top of an existing Redis client.
// The client is owned by the caller; Close does not close it.
func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tenant cache read failed", slog.String("key", key), logger.Error(err))
		}
		return nil, false
	}

	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.WarnContext(ctx, "tenant cache entry is corrupt", slog.String("key", key), logger.Error(err))
		return nil, false
	}
	return &t, true
}

// Set implements Cache. A zero ttl stores the entry without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) {
	if t == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache write failed", slog.String("key", key), logger.Error(err))
	}
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache delete failed", slog.String("key", key), logger.Error(err))
	}
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return nil
}
