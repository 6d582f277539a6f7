package openfoodfacts

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
)

// DefaultBaseURL is the public Open Food Facts world instance
const DefaultBaseURL = "https://world.openfoodfacts.org"

const searchPageSize = 10

// Client handles communication with the Open Food Facts API
type Client struct {
	fetcher domain.JSONFetcher
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a new Open Food Facts client on top of a retrying fetcher
func NewClient(fetcher domain.JSONFetcher, baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.OrNop(log),
	}
}

// GetProduct looks up a product by barcode. A response with status != 1 is
// reported as domain.ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, barcode string) (*domain.OFFProductResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))

	var resp domain.OFFProductResponse
	if err := c.fetcher.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 1 {
		c.logger.Debug("product not in open food facts", zap.String("barcode", barcode), zap.String("status", resp.StatusVerbose))
		return nil, domain.ErrProductNotFound
	}
	return &resp, nil
}

// SearchProducts runs a simple name search returning at most ten products
func (c *Client) SearchProducts(ctx context.Context, name string) (*domain.OFFSearchResponse, error) {
	params := url.Values{}
	params.Add("search_terms", name)
	params.Add("search_simple", "1")
	params.Add("action", "process")
	params.Add("json", "1")
	params.Add("page_size", fmt.Sprintf("%d", searchPageSize))

	var resp domain.OFFSearchResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/cgi/search.pl", params, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		resp.Products = []domain.OFFProduct{}
	}

	c.logger.Debug("open food facts search", zap.String("query", name), zap.Int("results", len(resp.Products)))
	return &resp, nil
}
