package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
	"github.com/labelpadega/backend/internal/metrics"
)

const (
	backendRedis   = "redis"
	clearBatchSize = 100
)

// RedisCache stores envelopes in Redis under a key prefix
type RedisCache struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewRedisCacheFromURL parses a redis:// URL and connects
func NewRedisCacheFromURL(ctx context.Context, rawURL, prefix string, retention time.Duration, log *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := NewRedisCache(redis.NewClient(opts), prefix, retention, log)
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewRedisCache wraps an existing client. A positive retention becomes the key expiration.
func NewRedisCache(client *redis.Client, prefix string, retention time.Duration, log *zap.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
		logger:    logger.OrNop(log),
	}
}

// WithClock replaces the clock used for cache_time and freshness checks
func (c *RedisCache) WithClock(now func() time.Time) *RedisCache {
	c.now = now
	return c
}

// Ping tests the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get returns the payload stored under key if it is no older than maxAge
func (c *RedisCache) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues(backendRedis, metrics.ResultMiss).Inc()
		return nil, domain.ErrCacheMiss
	}

	data, err := decodeEntry(raw, c.now(), maxAge)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(backendRedis, metrics.ResultMiss).Inc()
		return nil, err
	}
	metrics.CacheLookups.WithLabelValues(backendRedis, metrics.ResultHit).Inc()
	return data, nil
}

// Set writes the envelope
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := encodeEntry(value, c.now())
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, c.retention).Err(); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendRedis).Inc()
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the entry for key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Clear removes every key under the prefix.
// The scan completes before any key is deleted so the cursor stays valid.
func (c *RedisCache) Clear(ctx context.Context) error {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", clearBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	for start := 0; start < len(keys); start += clearBatchSize {
		end := start + clearBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	c.logger.Info("redis cache cleared", zap.String("prefix", c.prefix), zap.Int("removed", len(keys)))
	return nil
}
