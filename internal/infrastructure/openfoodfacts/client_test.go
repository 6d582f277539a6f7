package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/fetcher"
)

const nutellaJSON = `{
  "code": "3017620422003",
  "status": 1,
  "status_verbose": "product found",
  "product": {
    "product_name": "Nutella",
    "brands": "Ferrero",
    "categories_tags": ["en:spreads", "en:sweet-spreads"],
    "countries": "France",
    "image_url": "https://images.example/nutella.jpg",
    "allergens_tags": ["en:milk", "en:nuts"],
    "ingredients_text": "Sugar, palm oil, hazelnuts 13%, skimmed milk powder",
    "ingredients": [{"id": "en:sugar", "text": "Sugar"}, {"id": "en:palm-oil", "text": "palm oil"}],
    "nutriments": {"sugars_100g": 56.3, "energy-kcal_serving": 81},
    "nutrition_grades": "e",
    "nova_group": 4,
    "additives_tags": ["en:e322", "en:e322i"]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := fetcher.New("off", fetcher.Config{MaxAttempts: 2, Timeout: time.Second}, nil).
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
	return NewClient(f, server.URL, nil)
}

func TestGetProduct_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/3017620422003.json", r.URL.Path)
		w.Write([]byte(nutellaJSON))
	})

	resp, err := client.GetProduct(context.Background(), "3017620422003")
	require.NoError(t, err)
	assert.Equal(t, "Nutella", resp.Product.ProductName)

	record := MapToProductRecord("3017620422003", resp.Product)
	assert.Equal(t, "Ferrero", record.BrandName)
	assert.Equal(t, "Spreads", record.Category)
	assert.Equal(t, []string{"milk", "nuts"}, record.Allergens)
	assert.Equal(t, []string{"Sugar", "palm oil"}, record.Details.IngredientsList)
	assert.Equal(t, []string{"e322", "e322i"}, record.Details.AdditivesTags)
	assert.Equal(t, "4", record.Details.NovaGroup)
	assert.Equal(t, domain.NotSpecified, record.Details.Packaging)
	assert.Equal(t, domain.SourceOpenFoodFacts, record.Source)

	sugar, ok := record.Details.NutrimentNumber("sugars_100g")
	assert.True(t, ok)
	assert.Equal(t, 56.3, sugar)
}

func TestGetProduct_StatusZeroIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"000","status":0,"status_verbose":"product not found"}`))
	})

	_, err := client.GetProduct(context.Background(), "000")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGetProduct_UpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetProduct(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestSearchProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "peanut butter", q.Get("search_terms"))
		assert.Equal(t, "1", q.Get("search_simple"))
		assert.Equal(t, "process", q.Get("action"))
		assert.Equal(t, "1", q.Get("json"))
		assert.Equal(t, "10", q.Get("page_size"))
		w.Write([]byte(`{"count":2,"products":[{"code":"1","product_name":"Peanut Butter"},{"code":"2","product_name":"Crunchy Peanut Butter"}]}`))
	})

	resp, err := client.SearchProducts(context.Background(), "peanut butter")
	require.NoError(t, err)
	assert.Len(t, resp.Products, 2)
}

func TestSearchProducts_NoProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0}`))
	})

	resp, err := client.SearchProducts(context.Background(), "zzz")
	require.NoError(t, err)
	assert.NotNil(t, resp.Products)
	assert.Empty(t, resp.Products)
}
