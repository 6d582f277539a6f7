package usda

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
)

// DefaultBaseURL is the FoodData Central API root
const DefaultBaseURL = "https://api.nal.usda.gov/fdc"

// DefaultDataTypes limits searches to the data sets with usable nutrient panels
const DefaultDataTypes = "Survey (FNDDS),Foundation,Branded"

// Client handles communication with the USDA FoodData Central API
type Client struct {
	fetcher   domain.JSONFetcher
	apiKey    string
	baseURL   string
	dataTypes string
	logger    *zap.Logger
}

// NewClient creates a new USDA API client on top of a retrying fetcher.
// The fetcher carries the 1000 requests/hour limiter configured for this source.
func NewClient(fetcher domain.JSONFetcher, apiKey, baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		fetcher:   fetcher,
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dataTypes: DefaultDataTypes,
		logger:    logger.OrNop(log),
	}
}

// SetDataTypes overrides the dataType filter; an empty value searches every data set
func (c *Client) SetDataTypes(dataTypes string) {
	c.dataTypes = dataTypes
}

// SearchFoods searches for foods in the USDA database
func (c *Client) SearchFoods(ctx context.Context, query string, pageSize int) (*domain.USDASearchResponse, error) {
	c.logger.Debug("usda search", zap.String("query", query), zap.Int("page_size", pageSize))

	if pageSize <= 0 {
		pageSize = 10
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	if c.dataTypes != "" {
		params.Add("dataType", c.dataTypes)
	}
	params.Add("pageSize", fmt.Sprintf("%d", pageSize))

	var searchResp domain.USDASearchResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/v1/foods/search", params, &searchResp); err != nil {
		return nil, err
	}

	if len(searchResp.Foods) == 0 {
		c.logger.Debug("usda search returned no foods", zap.String("query", query))
		return nil, domain.ErrProductNotFound
	}

	c.logger.Debug("usda search results", zap.String("query", query), zap.Int("foods", len(searchResp.Foods)))
	return &searchResp, nil
}

// GetFoodDetails retrieves detailed nutrition information for a specific food by FDC ID
func (c *Client) GetFoodDetails(ctx context.Context, fdcID int) (*domain.USDAFood, error) {
	params := url.Values{}
	params.Add("api_key", c.apiKey)

	var food domain.USDAFood
	if err := c.fetcher.GetJSON(ctx, fmt.Sprintf("%s/v1/food/%d", c.baseURL, fdcID), params, &food); err != nil {
		return nil, err
	}
	return &food, nil
}
