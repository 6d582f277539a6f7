package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
)

// analysisLabels name each kind in user-facing messages
var analysisLabels = map[string]string{
	domain.KindHealth:        "health analysis",
	domain.KindEnvironmental: "environmental analysis",
	domain.KindAllergen:      "allergen analysis",
	domain.KindRecipes:       "healthier recipes",
}

// AnalysisService runs cached single-shot AI analyses of products
type AnalysisService struct {
	ai     *aiRunner
	logger *zap.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	provider domain.AIProvider,
	cacheRepo domain.CacheRepository,
	config AIConfig,
	logger *zap.Logger,
) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		ai:     newAIRunner(provider, cacheRepo, config, logger),
		logger: logger,
	}
}

// Analyze returns the analysis of one kind for a product.
// A fresh cached result is returned with Cached set and no provider call.
// Provider failures never surface as errors: the result carries Success=false and is not cached.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	kind, err := resolveKind(req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Product.ProductName) == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidRequest)
	}

	key := analysisCacheKey(kind, req)

	var cached domain.AnalysisResult
	if s.ai.load(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	text, err := s.ai.generate(ctx, kind, buildAnalysisPrompt(kind, req))
	now := s.ai.now().UTC()
	label := kindLabel(kind, req.Certification)

	if err != nil {
		return &domain.AnalysisResult{
			Kind:      kind,
			FullText:  fmt.Sprintf("Error generating %s: %v", label, err),
			Rating:    0,
			Success:   false,
			Timestamp: now,
		}, nil
	}
	if text == "" {
		return &domain.AnalysisResult{
			Kind:      kind,
			FullText:  fmt.Sprintf("Unable to generate %s.", label),
			Rating:    domain.DefaultRating,
			Success:   false,
			Timestamp: now,
		}, nil
	}

	result := &domain.AnalysisResult{
		Kind:      kind,
		FullText:  text,
		Success:   true,
		Timestamp: now,
	}
	switch kind {
	case domain.KindHealth:
		result.Rating = ExtractRating(text)
		result.Metrics = ExtractMetrics(text, req.Product.Details)
		result.RiskLevel = DetectRiskLevel(text)
	case domain.KindEnvironmental:
		result.Rating = ExtractRating(text)
	case domain.KindAllergen:
		result.RiskLevel = DetectRiskLevel(text)
	}

	s.ai.store(ctx, key, result)
	return result, nil
}

// resolveKind validates the requested kind; a certification name selects "{name}_cert"
func resolveKind(req domain.AnalysisRequest) (string, error) {
	if c := strings.TrimSpace(req.Certification); c != "" {
		return domain.CertificationKind(c), nil
	}
	if _, ok := analysisLabels[req.Kind]; ok {
		return req.Kind, nil
	}
	if domain.IsCertificationKind(req.Kind) {
		return req.Kind, nil
	}
	return "", fmt.Errorf("%w: unknown analysis kind %q", domain.ErrInvalidRequest, req.Kind)
}

// analysisCacheKey keys on product and brand; recipes key on category and allergen
// analyses also on the consumer's allergies
func analysisCacheKey(kind string, req domain.AnalysisRequest) string {
	p := req.Product
	parts := []string{p.ProductName, p.BrandName}
	switch kind {
	case domain.KindRecipes:
		parts = []string{p.ProductName, p.Category}
	case domain.KindAllergen:
		if len(req.Allergies) > 0 {
			allergies := make([]string, len(req.Allergies))
			for i, a := range req.Allergies {
				allergies[i] = strings.ToLower(strings.TrimSpace(a))
			}
			sort.Strings(allergies)
			parts = append(parts, strings.Join(allergies, ","))
		}
	}
	return cache.DeriveKey(kind, cache.CompositeKey(parts...))
}

func buildAnalysisPrompt(kind string, req domain.AnalysisRequest) string {
	switch kind {
	case domain.KindHealth:
		return healthPrompt(req.Product)
	case domain.KindEnvironmental:
		return environmentalPrompt(req.Product)
	case domain.KindAllergen:
		return allergenPrompt(req.Product, req.Allergies)
	case domain.KindRecipes:
		return recipesPrompt(req.Product)
	default:
		return certificationPrompt(req.Product, certificationName(kind, req.Certification))
	}
}

func kindLabel(kind, certification string) string {
	if label, ok := analysisLabels[kind]; ok {
		return label
	}
	return certificationName(kind, certification) + " certification check"
}

func certificationName(kind, certification string) string {
	if c := strings.TrimSpace(certification); c != "" {
		return c
	}
	return strings.ReplaceAll(strings.TrimSuffix(kind, "_cert"), "_", " ")
}
