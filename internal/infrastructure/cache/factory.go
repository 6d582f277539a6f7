package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
)

// Backend names accepted by Open
const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Options selects and configures a cache backend
type Options struct {
	Type            string
	Dir             string
	RedisURL        string
	RedisPrefix     string
	Retention       time.Duration
	CleanupInterval time.Duration
}

// Open builds the configured backend. The returned close func releases its resources.
func Open(ctx context.Context, opts Options, log *zap.Logger) (domain.CacheRepository, func() error, error) {
	switch opts.Type {
	case TypeFile, "":
		c, err := NewFileCache(opts.Dir, log)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	case TypeMemory:
		c := NewMemoryCache(opts.Retention, opts.CleanupInterval)
		return c, c.Close, nil
	case TypeRedis:
		c, err := NewRedisCacheFromURL(ctx, opts.RedisURL, opts.RedisPrefix, opts.Retention, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache type %q", opts.Type)
}
