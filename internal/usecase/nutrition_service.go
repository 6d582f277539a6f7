package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
	"github.com/labelpadega/backend/internal/infrastructure/usda"
)

const (
	nutritionNamespace    = "nutrition"
	defaultNutritionTTL   = 720 * time.Hour
	defaultSearchPageSize = 10
	nutritionSourceCache  = "Cache"
)

// NutritionServiceConfig holds configuration for the nutrition service
type NutritionServiceConfig struct {
	CacheTTL       time.Duration
	SearchPageSize int
}

// NutritionService handles nutrition data lookup with caching
type NutritionService struct {
	cache      domain.CacheRepository
	usdaClient domain.USDAClient
	matcher    *ProductMatcher
	cacheTTL   time.Duration
	pageSize   int
	logger     *zap.Logger
}

// NewNutritionService creates a new nutrition service with dependencies
func NewNutritionService(
	cacheRepo domain.CacheRepository,
	usdaClient domain.USDAClient,
	matcher *ProductMatcher,
	config NutritionServiceConfig,
	logger *zap.Logger,
) *NutritionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = NewProductMatcher(MatchConfig{}, logger)
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultNutritionTTL
	}
	pageSize := config.SearchPageSize
	if pageSize <= 0 {
		pageSize = defaultSearchPageSize
	}

	return &NutritionService{
		cache:      cacheRepo,
		usdaClient: usdaClient,
		matcher:    matcher,
		cacheTTL:   cacheTTL,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// SearchNutrition looks up nutrition data for a product.
// Flow: check cache -> search USDA -> match best result -> cache -> return.
// A low-confidence match is returned with ErrLowConfidence and is not cached.
func (s *NutritionService) SearchNutrition(
	ctx context.Context,
	request *domain.SearchRequest,
) (*domain.NutritionData, error) {
	if request == nil || request.ProductName == "" {
		return nil, domain.ErrInvalidRequest
	}

	key := nutritionCacheKey(request)

	if cached, ok := s.getFromCache(ctx, key); ok {
		cached.Source = nutritionSourceCache
		return cached, nil
	}

	query := buildSearchQuery(request.ProductName, request.Brand)
	searchResult, err := s.usdaClient.SearchFoods(ctx, query, s.pageSize)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	match, err := s.matcher.FindBestMatch(ctx, request, CandidatesFromUSDA(searchResult.Foods))
	if err != nil {
		if errors.Is(err, domain.ErrLowConfidence) && match != nil {
			return s.mapMatchToNutrition(searchResult.Foods, match), err
		}
		return nil, err
	}

	nutritionData := s.mapMatchToNutrition(searchResult.Foods, match)
	if nutritionData == nil {
		return nil, domain.ErrProductNotFound
	}

	s.setInCache(ctx, key, nutritionData)
	return nutritionData, nil
}

// nutritionCacheKey derives the cache key from the normalized name and brand
func nutritionCacheKey(request *domain.SearchRequest) string {
	logical := cache.CompositeKey(
		normalizeForCacheKey(request.ProductName),
		normalizeForCacheKey(request.Brand),
	)
	return cache.DeriveKey(nutritionNamespace, logical)
}

func (s *NutritionService) getFromCache(ctx context.Context, key string) (*domain.NutritionData, bool) {
	raw, err := s.cache.Get(ctx, key, s.cacheTTL)
	if err != nil {
		return nil, false
	}

	var data domain.NutritionData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("discarding unreadable nutrition cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &data, true
}

func (s *NutritionService) setInCache(ctx context.Context, key string, data *domain.NutritionData) {
	data.CachedAt = time.Now().UTC()
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("failed to cache nutrition data", zap.String("key", key), zap.Error(err))
	}
}

// mapMatchToNutrition finds the matched food and converts it to NutritionData
func (s *NutritionService) mapMatchToNutrition(foods []domain.USDAFood, match *domain.MatchResult) *domain.NutritionData {
	for i := range foods {
		if fmt.Sprintf("%d", foods[i].FdcID) == match.ID {
			return usda.MapToNutritionData(&foods[i], match.MatchScore)
		}
	}
	return nil
}
