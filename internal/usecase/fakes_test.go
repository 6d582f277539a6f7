package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
)

// fakeProvider is a scripted domain.AIProvider
type fakeProvider struct {
	mu sync.Mutex

	generateFn func(prompt string, images []domain.Image) (string, error)
	converseFn func(system string, turns []domain.ChatMessage) (string, error)

	generateCalls int
	converseCalls int
	prompts       []string
	lastImages    []domain.Image
	lastSystem    string
	lastTurns     []domain.ChatMessage
}

func replyWith(text string) *fakeProvider {
	return &fakeProvider{
		generateFn: func(string, []domain.Image) (string, error) { return text, nil },
		converseFn: func(string, []domain.ChatMessage) (string, error) { return text, nil },
	}
}

func failWith(err error) *fakeProvider {
	return &fakeProvider{
		generateFn: func(string, []domain.Image) (string, error) { return "", err },
		converseFn: func(string, []domain.ChatMessage) (string, error) { return "", err },
	}
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, images ...domain.Image) (string, error) {
	f.mu.Lock()
	f.generateCalls++
	f.prompts = append(f.prompts, prompt)
	f.lastImages = images
	fn := f.generateFn
	f.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(prompt, images)
}

func (f *fakeProvider) Converse(ctx context.Context, system string, turns []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	f.converseCalls++
	f.lastSystem = system
	f.lastTurns = append([]domain.ChatMessage(nil), turns...)
	fn := f.converseFn
	f.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(system, turns)
}

func (f *fakeProvider) calls() (generate, converse int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls, f.converseCalls
}

// fakeOFF is a scripted domain.OpenFoodFactsClient
type fakeOFF struct {
	mu          sync.Mutex
	products    map[string]domain.OFFProduct
	search      map[string][]domain.OFFProduct
	err         error
	getCalls    int
	searchCalls int
	queries     []string
}

func (f *fakeOFF) GetProduct(ctx context.Context, barcode string) (*domain.OFFProductResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[barcode]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &domain.OFFProductResponse{Code: barcode, Status: 1, Product: p}, nil
}

func (f *fakeOFF) SearchProducts(ctx context.Context, name string) (*domain.OFFSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.queries = append(f.queries, name)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.OFFSearchResponse{Products: f.search[name]}, nil
}

// fakeUSDA is a scripted domain.USDAClient
type fakeUSDA struct {
	mu          sync.Mutex
	searchResp  *domain.USDASearchResponse
	searchErr   error
	details     map[int]domain.USDAFood
	detailErr   error
	searchCalls int
	detailCalls int
	queries     []string
}

func (f *fakeUSDA) SearchFoods(ctx context.Context, query string, pageSize int) (*domain.USDASearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResp == nil || len(f.searchResp.Foods) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return f.searchResp, nil
}

func (f *fakeUSDA) GetFoodDetails(ctx context.Context, fdcID int) (*domain.USDAFood, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	food, ok := f.details[fdcID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &food, nil
}

// failingCache misses on every read and fails every write
type failingCache struct{}

func (failingCache) Get(context.Context, string, time.Duration) (json.RawMessage, error) {
	return nil, domain.ErrCacheMiss
}

func (failingCache) Set(context.Context, string, interface{}) error {
	return errors.New("cache write failed")
}

func (failingCache) Delete(context.Context, string) error { return nil }

func (failingCache) Clear(context.Context) error { return nil }

func newTestCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemoryCache(time.Hour, 0)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newFileTestCache(t *testing.T) *cache.FileCache {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create file cache: %v", err)
	}
	return c
}
