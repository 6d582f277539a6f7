package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
	"github.com/labelpadega/backend/internal/metrics"
)

const backendFile = "file"

// cacheFilePattern matches files written by DeriveKey-keyed Sets and their temp files
var cacheFilePattern = regexp.MustCompile(`^\.?[a-z0-9_-]+_[0-9a-f]{32}(\.json|\.json\.[0-9]+\.tmp)$`)

// FileCache stores one JSON envelope per key under a directory
type FileCache struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewFileCache creates the cache directory if needed
func NewFileCache(dir string, log *zap.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, now: time.Now, logger: logger.OrNop(log)}, nil
}

// WithClock replaces the clock used for cache_time and freshness checks
func (c *FileCache) WithClock(now func() time.Time) *FileCache {
	c.now = now
	return c
}

// Dir returns the cache directory
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid cache key %q", domain.ErrInvalidRequest, key)
	}
	return filepath.Join(c.dir, key+".json"), nil
}

// Get returns the payload stored under key if it is no older than maxAge
func (c *FileCache) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	p, err := c.path(key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(backendFile, metrics.ResultMiss).Inc()
		return nil, domain.ErrCacheMiss
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues(backendFile, metrics.ResultMiss).Inc()
		return nil, domain.ErrCacheMiss
	}

	data, err := decodeEntry(raw, c.now(), maxAge)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(backendFile, metrics.ResultMiss).Inc()
		return nil, err
	}
	metrics.CacheLookups.WithLabelValues(backendFile, metrics.ResultHit).Inc()
	return data, nil
}

// Set writes the envelope to a temp file and renames it over the entry
func (c *FileCache) Set(ctx context.Context, key string, value interface{}) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}

	payload, err := encodeEntry(value, c.now())
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "."+key+".json.*.tmp")
	if err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendFile).Inc()
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		metrics.CacheWriteErrors.WithLabelValues(backendFile).Inc()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		metrics.CacheWriteErrors.WithLabelValues(backendFile).Inc()
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		metrics.CacheWriteErrors.WithLabelValues(backendFile).Inc()
		return fmt.Errorf("failed to publish cache file: %w", err)
	}
	return nil
}

// Delete removes the entry for key
func (c *FileCache) Delete(ctx context.Context, key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every cache entry in the directory. Other files, such as the
// regulation seed documents, are left alone.
func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !cacheFilePattern.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	c.logger.Info("cache cleared", zap.String("dir", c.dir), zap.Int("removed", removed))
	return nil
}
