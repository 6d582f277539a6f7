package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/labelpadega/backend/internal/domain"
)

func newTestFileCache(t *testing.T) (*FileCache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	c, err := NewFileCache(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return c.WithClock(clock.Now), clock
}

func TestFileCache_RoundTrip(t *testing.T) {
	c, _ := newTestFileCache(t)
	ctx := context.Background()
	key := DeriveKey("off", "3017620422003")

	value := map[string]interface{}{"product_name": "Nutella", "status": float64(1)}
	require.NoError(t, c.Set(ctx, key, value))

	raw, err := c.Get(ctx, key, 24*time.Hour)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, value, got)
}

func TestFileCache_RoundTripNull(t *testing.T) {
	c, _ := newTestFileCache(t)
	ctx := context.Background()
	key := DeriveKey("off", "empty")

	require.NoError(t, c.Set(ctx, key, nil))

	raw, err := c.Get(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(raw))
}

func TestFileCache_Layout(t *testing.T) {
	c, clock := newTestFileCache(t)
	ctx := context.Background()
	key := DeriveKey("usda", "012345678905")

	require.NoError(t, c.Set(ctx, key, map[string]string{"a": "b"}))

	raw, err := os.ReadFile(filepath.Join(c.Dir(), key+".json"))
	require.NoError(t, err)

	var envelope struct {
		Data      map[string]string `json:"data"`
		CacheTime float64           `json:"cache_time"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "b", envelope.Data["a"])
	assert.Equal(t, float64(clock.Now().Unix()), envelope.CacheTime)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileCache_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		maxAge  time.Duration
		wantHit bool
	}{
		{"fresh", time.Hour, 24 * time.Hour, true},
		{"exactly max age", 24 * time.Hour, 24 * time.Hour, true},
		{"one second past", 24*time.Hour + time.Second, 24 * time.Hour, false},
		{"zero max age same instant", 0, 0, true},
		{"negative max age", 0, -time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock := newTestFileCache(t)
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "off_00000000000000000000000000000000", "v"))
			clock.Advance(tt.age)

			_, err := c.Get(ctx, "off_00000000000000000000000000000000", tt.maxAge)
			if tt.wantHit {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
			}
		})
	}
}

func TestFileCache_UnreadableIsMiss(t *testing.T) {
	c, _ := newTestFileCache(t)
	ctx := context.Background()

	files := map[string]string{
		"off_11111111111111111111111111111111": "{not json",
		"off_22222222222222222222222222222222": `{"cache_time": 1700000000}`,
		"off_33333333333333333333333333333333": `{"data": 1, "cache_time": "yesterday"}`,
		"off_44444444444444444444444444444444": `[]`,
	}
	for key, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), key+".json"), []byte(content), 0o644))
	}

	for key := range files {
		_, err := c.Get(ctx, key, time.Hour)
		assert.ErrorIs(t, err, domain.ErrCacheMiss, key)
	}

	_, err := c.Get(ctx, "off_55555555555555555555555555555555", time.Hour)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestFileCache_RejectsPathKeys(t *testing.T) {
	c, _ := newTestFileCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "../escape", "v"), domain.ErrInvalidRequest)
	_, err := c.Get(ctx, "a/b", time.Hour)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestFileCache_Overwrite(t *testing.T) {
	c, clock := newTestFileCache(t)
	ctx := context.Background()
	key := DeriveKey("off", "1")

	require.NoError(t, c.Set(ctx, key, "first"))
	clock.Advance(48 * time.Hour)
	_, err := c.Get(ctx, key, 24*time.Hour)
	require.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, key, "second"))
	raw, err := c.Get(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(raw))
}

func TestFileCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestFileCache(t)
	ctx := context.Background()

	k1 := DeriveKey("off", "1")
	k2 := DeriveKey("health_analysis", "2")
	require.NoError(t, c.Set(ctx, k1, 1))
	require.NoError(t, c.Set(ctx, k2, 2))

	seed := filepath.Join(c.Dir(), "banned_products.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{}`), 0o644))

	require.NoError(t, c.Delete(ctx, k1))
	require.NoError(t, c.Delete(ctx, k1), "deleting an absent key is not an error")
	_, err := c.Get(ctx, k1, time.Hour)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, k2, time.Hour)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	_, err = os.Stat(seed)
	assert.NoError(t, err, "seed files survive a cache clear")
}
