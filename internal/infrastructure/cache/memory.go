package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/metrics"
)

const backendMemory = "memory"

// MemoryCache is a thread-safe in-process cache holding the same envelopes as FileCache
type MemoryCache struct {
	data      map[string][]byte
	mutex     sync.RWMutex
	now       func() time.Time
	retention time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewMemoryCache creates an in-memory cache. Entries older than retention are
// purged every cleanupInterval; a zero interval disables the purge goroutine.
func NewMemoryCache(retention, cleanupInterval time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data:      make(map[string][]byte),
		now:       time.Now,
		retention: retention,
		stop:      make(chan struct{}),
	}

	if cleanupInterval > 0 && retention > 0 {
		go cache.cleanupExpired(cleanupInterval)
	}

	return cache
}

// WithClock replaces the clock used for cache_time and freshness checks
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
	return c
}

// Get retrieves a payload from the cache if no older than maxAge
func (c *MemoryCache) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	c.mutex.RLock()
	raw, exists := c.data[key]
	now := c.now()
	c.mutex.RUnlock()

	if !exists {
		metrics.CacheLookups.WithLabelValues(backendMemory, metrics.ResultMiss).Inc()
		return nil, domain.ErrCacheMiss
	}

	data, err := decodeEntry(raw, now, maxAge)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(backendMemory, metrics.ResultMiss).Inc()
		return nil, err
	}
	metrics.CacheLookups.WithLabelValues(backendMemory, metrics.ResultHit).Inc()
	return data, nil
}

// Set stores a value in the cache.
// The value is serialized so readers never share memory with the writer.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	payload, err := encodeEntry(value, c.now())
	if err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendMemory).Inc()
		return err
	}
	c.data[key] = payload
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string][]byte)
	return nil
}

// Size returns the current number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the purge goroutine
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanupExpired removes entries older than retention periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *MemoryCache) purge() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, raw := range c.data {
		written, ok := cacheTime(raw)
		if !ok || now.Sub(written) > c.retention {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}
