package domain

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// CacheRepository defines the interface for the TTL response cache.
// Get returns ErrCacheMiss for absent, stale or unreadable entries.
type CacheRepository interface {
	Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// JSONFetcher performs retrying GET requests that decode a JSON body into out
type JSONFetcher interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error
}

// USDAClient defines the interface for interacting with USDA FoodData Central API
type USDAClient interface {
	SearchFoods(ctx context.Context, query string, pageSize int) (*USDASearchResponse, error)
	GetFoodDetails(ctx context.Context, fdcID int) (*USDAFood, error)
}

// OpenFoodFactsClient defines the interface for the Open Food Facts API
type OpenFoodFactsClient interface {
	GetProduct(ctx context.Context, barcode string) (*OFFProductResponse, error)
	SearchProducts(ctx context.Context, name string) (*OFFSearchResponse, error)
}

// RegulationChecker screens products and ingredient text against regulatory data
type RegulationChecker interface {
	CheckBanned(productName string) []BannedProduct
	CheckBannedIngredients(text string) []BannedIngredient
	CheckRecalls(productName, brandName string) []RecallRecord
	CheckCompliance(text, region string) ComplianceResult
	Report(product ProductRecord) RegulationReport
}

// AIProvider generates text with a hosted model
type AIProvider interface {
	Generate(ctx context.Context, prompt string, images ...Image) (string, error)
	Converse(ctx context.Context, system string, turns []ChatMessage) (string, error)
}

// SessionStore persists chat sessions
type SessionStore interface {
	Create(ctx context.Context) (*ChatSession, error)
	Get(ctx context.Context, id string) (*ChatSession, error)
	Update(ctx context.Context, id string, fn func(*ChatSession) error) (*ChatSession, error)
	Delete(ctx context.Context, id string) error
}
