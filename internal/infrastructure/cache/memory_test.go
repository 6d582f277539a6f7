package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labelpadega/backend/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 0)
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value interface{}
		want  string
	}{
		{
			name:  "store and retrieve string",
			key:   "test_key_1",
			value: "test-value",
			want:  `"test-value"`,
		},
		{
			name: "store and retrieve struct",
			key:  "test_key_2",
			value: map[string]interface{}{
				"fdcId":       "12345",
				"productName": "Milk",
			},
			want: `{"fdcId":"12345","productName":"Milk"}`,
		},
		{
			name:  "store raw json",
			key:   "test_key_3",
			value: json.RawMessage(`[1,2,3]`),
			want:  `[1,2,3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := cache.Get(ctx, tt.key, time.Minute)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Get() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, 0).WithClock(clock.Now)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	clock.Advance(10 * time.Second)
	if _, err := cache.Get(ctx, "k", 10*time.Second); err != nil {
		t.Errorf("entry aged exactly maxAge should hit, got %v", err)
	}
	if _, err := cache.Get(ctx, "k", 9*time.Second); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected cache miss, got %v", err)
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 0)
	if _, err := cache.Get(context.Background(), "absent", time.Hour); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected cache miss, got %v", err)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 0)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", 1)
	_ = cache.Set(ctx, "b", 2)

	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", cache.Size())
	}
}

func TestMemoryCache_Purge(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Minute, 0).WithClock(clock.Now)
	ctx := context.Background()

	_ = cache.Set(ctx, "old", "x")
	clock.Advance(2 * time.Minute)
	_ = cache.Set(ctx, "new", "y")

	if removed := cache.purge(); removed != 1 {
		t.Errorf("purge() removed %d, want 1", removed)
	}
	if _, err := cache.Get(ctx, "new", time.Hour); err != nil {
		t.Errorf("fresh entry should survive purge, got %v", err)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(time.Hour, time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, "concurrent", id)
				_, _ = cache.Get(ctx, "concurrent", time.Hour)
			}
		}(i)
	}
	wg.Wait()

	if _, err := cache.Get(ctx, "concurrent", time.Hour); err != nil {
		t.Errorf("Get() after concurrent writes error = %v", err)
	}
}
