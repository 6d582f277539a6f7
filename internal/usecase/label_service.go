package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
)

// labelSchema is the minimum shape accepted for a structured label reading
const labelSchema = `{
  "type": "object",
  "required": ["name", "nutrition"],
  "properties": {
    "name": {"type": "string"},
    "nutrition": {"type": "object"},
    "ingredients": {"type": "array", "items": {"type": "string"}},
    "additives": {"type": "array", "items": {"type": "string"}},
    "allergens": {"type": "array", "items": {"type": "string"}},
    "servingSize": {"type": "string"},
    "processingLevel": {"type": "string"},
    "nutritionalScore": {"type": "string"},
    "dietaryCompliance": {"type": "object"},
    "allergyRisks": {"type": "object"},
    "healthImpact": {"type": "object"},
    "warnings": {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`

// LabelService reads food label and food photos with the vision model
type LabelService struct {
	ai     *aiRunner
	schema *gojsonschema.Schema
	logger *zap.Logger
}

// NewLabelService creates a new label service
func NewLabelService(
	provider domain.AIProvider,
	cacheRepo domain.CacheRepository,
	config AIConfig,
	logger *zap.Logger,
) (*LabelService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(labelSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile label schema: %w", err)
	}
	return &LabelService{
		ai:     newAIRunner(provider, cacheRepo, config, logger),
		schema: schema,
		logger: logger,
	}, nil
}

// Analyze reads a food label photo personalized for the profile.
// The raw model text is always returned; the JSON object it carries is parsed
// into StructuredFields and checked against the label schema.
func (s *LabelService) Analyze(ctx context.Context, img domain.Image, profile domain.UserProfile) (*domain.LabelAnalysis, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}

	key := cache.DeriveKey(domain.KindLabel, cache.CompositeKey(cache.ContentKey(img.Data), labelProfileKey(profile)))

	var cached domain.LabelAnalysis
	if s.ai.load(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	text, err := s.ai.generate(ctx, domain.KindLabel, labelPrompt(profile), img)
	now := s.ai.now().UTC()
	if err != nil {
		return &domain.LabelAnalysis{
			RawText:   fmt.Sprintf("Error analyzing label: %v", err),
			Timestamp: now,
		}, nil
	}
	if text == "" {
		return &domain.LabelAnalysis{
			RawText:   "Unable to analyze the label image.",
			Timestamp: now,
		}, nil
	}

	result := &domain.LabelAnalysis{
		RawText:   text,
		Success:   true,
		Timestamp: now,
	}
	if fields, ok := ExtractJSONObject(text); ok {
		result.StructuredFields = fields
		result.SchemaErrors = s.validate(fields)
	} else {
		s.logger.Debug("label reply carried no JSON object, keeping raw text")
	}

	s.ai.store(ctx, key, result)
	return result, nil
}

func (s *LabelService) validate(fields map[string]interface{}) []string {
	res, err := s.schema.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return []string{err.Error()}
	}
	if res.Valid() {
		return nil
	}
	errs := make([]string, len(res.Errors()))
	for i, desc := range res.Errors() {
		errs[i] = desc.String()
	}
	return errs
}

// AnalyzeFoodImage describes a photographed meal: identification, calories and macros
func (s *LabelService) AnalyzeFoodImage(ctx context.Context, img domain.Image) (*domain.FoodImageAnalysis, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}

	key := cache.DeriveKey(domain.KindFoodImage, cache.ContentKey(img.Data))

	var cached domain.FoodImageAnalysis
	if s.ai.load(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	text, err := s.ai.generate(ctx, domain.KindFoodImage, foodImagePrompt, img)
	now := s.ai.now().UTC()
	switch {
	case err != nil:
		return &domain.FoodImageAnalysis{Text: fmt.Sprintf("Error analyzing image: %v", err), Timestamp: now}, nil
	case text == "":
		return &domain.FoodImageAnalysis{Text: "Unable to analyze the food image.", Timestamp: now}, nil
	}

	result := &domain.FoodImageAnalysis{Text: text, Success: true, Timestamp: now}
	s.ai.store(ctx, key, result)
	return result, nil
}

func labelProfileKey(p domain.UserProfile) string {
	sorted := func(in []string) string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}
	return strings.Join([]string{
		sorted(p.DietaryPreferences),
		sorted(p.Allergies),
		strings.ToLower(strings.TrimSpace(p.HealthGoal)),
	}, ";")
}
