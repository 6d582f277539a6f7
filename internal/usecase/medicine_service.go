package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
)

const (
	minMedicineText       = 5
	minKeywordlessText    = 20
	minExtractedText      = 20
	defaultMedicineLang   = "English"
	medicineDisclaimer    = "\n\n---\nThis information is for educational purposes only and does not replace professional medical advice from a doctor or pharmacist."
	emergencyReply        = "Your question sounds potentially urgent.\n\nI am not an emergency service and cannot safely guide you in emergencies.\n\nPlease immediately contact your local emergency number or go to the nearest hospital or emergency room.\n\n---\nThis assistant is for educational information only and cannot handle emergencies."
	prescriptiveGuardText = "I cannot provide personal medical advice, prescribe medicines, or suggest exact dosages.\n\nSafe treatment needs your full medical history, dosing depends on many personal factors, and drug interactions must be checked by a doctor or pharmacist.\n\nPlease talk to your doctor, a registered pharmacist or a trusted telemedicine service.\n\nI can explain how a type of medicine generally works, describe common side effects and warnings, and clarify medical terms or drug classes." + medicineDisclaimer
)

var medicineKeywords = []string{
	"mg", "ml", "tablet", "capsule", "syrup", "injection",
	"exp", "mfg", "batch", "dose", "strength", "ip", "usp",
}

var emergencyTerms = []string{
	"chest pain", "severe pain", "difficulty breathing", "can't breathe", "cant breathe",
	"unconscious", "seizure", "suicidal", "overdose", "poisoned", "bleeding heavily",
	"heart attack", "stroke",
}

var prescriptivePatterns = []string{
	"should i take", "should i use", "can i take", "can i use", "how many", "how much should",
	"what should i take", "is this safe for me", "can you prescribe", "recommend a medicine",
	"what medicine", "which medicine", "dose for me", "dosage for",
}

var disclaimerMarkers = []string{"educational", "not medical advice"}

// ValidateMedicineText rejects text too short or too vague to describe a medicine
func ValidateMedicineText(text string) error {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minMedicineText {
		return fmt.Errorf("%w: text too short, please enter more detail", domain.ErrInvalidRequest)
	}
	if !containsAny(strings.ToLower(trimmed), medicineKeywords) && len(trimmed) < minKeywordlessText {
		return fmt.Errorf("%w: please enter more medicine detail (name, strength)", domain.ErrInvalidRequest)
	}
	return nil
}

// IsEmergency reports whether text mentions an emergency symptom
func IsEmergency(text string) bool {
	return containsAny(strings.ToLower(text), emergencyTerms)
}

// IsPrescriptive reports whether text asks for a personal prescription or dosage
func IsPrescriptive(text string) bool {
	return containsAny(strings.ToLower(text), prescriptivePatterns)
}

// WithDisclaimer appends the educational disclaimer unless the text already carries one
func WithDisclaimer(text string) string {
	if containsAny(strings.ToLower(text), disclaimerMarkers) {
		return text
	}
	return text + medicineDisclaimer
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// MedicineService explains medicines from package text or photos
type MedicineService struct {
	ai     *aiRunner
	logger *zap.Logger
}

// NewMedicineService creates a new medicine service
func NewMedicineService(
	provider domain.AIProvider,
	cacheRepo domain.CacheRepository,
	config AIConfig,
	logger *zap.Logger,
) *MedicineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicineService{
		ai:     newAIRunner(provider, cacheRepo, config, logger),
		logger: logger,
	}
}

// Analyze explains a medicine for the given profile at short or long depth.
// Results are cached per text, depth and profile; a non-English language adds a
// translation. Provider failures give Success=false without an error.
func (s *MedicineService) Analyze(ctx context.Context, req domain.MedicineRequest) (*domain.MedicineAnalysis, error) {
	if err := ValidateMedicineText(req.Text); err != nil {
		return nil, err
	}

	depth := req.Type
	switch depth {
	case "":
		depth = domain.MedicineLong
	case domain.MedicineShort, domain.MedicineLong:
	default:
		return nil, fmt.Errorf("%w: analysis type must be short or long", domain.ErrInvalidRequest)
	}

	text := strings.TrimSpace(req.Text)
	key := cache.DeriveKey(domain.KindMedicine, cache.CompositeKey(depth, text, profileFingerprint(req.Profile)))

	var result domain.MedicineAnalysis
	if s.ai.load(ctx, key, &result) {
		result.Cached = true
	} else {
		analysis, ok := s.generateAnalysis(ctx, text, depth, req.Profile)
		if !ok {
			return analysis, nil
		}
		s.ai.store(ctx, key, analysis)
		result = *analysis
	}

	if lang := strings.TrimSpace(req.Language); lang != "" && !strings.EqualFold(lang, defaultMedicineLang) {
		result.Language = lang
		if translated, err := s.Translate(ctx, result.Text, lang); err == nil {
			result.Translated = translated
		}
	}
	return &result, nil
}

func (s *MedicineService) generateAnalysis(ctx context.Context, text, depth string, profile domain.MedicineProfile) (*domain.MedicineAnalysis, bool) {
	reply, err := s.ai.generate(ctx, domain.KindMedicine, medicinePrompt(text, profile, depth))
	now := s.ai.now().UTC()

	failed := &domain.MedicineAnalysis{
		SourceText: text,
		Type:       depth,
		RiskLevel:  domain.RiskCaution,
		Success:    false,
		Timestamp:  now,
	}
	switch {
	case err != nil:
		failed.Text = fmt.Sprintf("Analysis error: %v\n\nPlease try again.", err)
		return failed, false
	case reply == "":
		failed.Text = "No response received from AI. Please try again."
		return failed, false
	}

	return &domain.MedicineAnalysis{
		Text:        WithDisclaimer(reply),
		SourceText:  text,
		Type:        depth,
		RiskLevel:   DetectRiskLevel(reply),
		BrandName:   ExtractLabeledValue(reply, "Brand Name"),
		GenericName: ExtractLabeledValue(reply, "Generic Name"),
		Success:     true,
		Timestamp:   now,
	}, true
}

// Translate renders an explanation in another language; results are cached
func (s *MedicineService) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(language) == "" {
		return "", domain.ErrInvalidRequest
	}

	key := cache.DeriveKey(domain.KindTranslation, cache.CompositeKey(language, cache.ContentKey([]byte(text))))

	var cached string
	if s.ai.load(ctx, key, &cached) && cached != "" {
		return cached, nil
	}

	translated, err := s.ai.generate(ctx, domain.KindTranslation, translationPrompt(text, language))
	if err != nil {
		return "", err
	}
	if translated == "" {
		return "", fmt.Errorf("%w: empty translation", domain.ErrAIUnavailable)
	}
	s.ai.store(ctx, key, translated)
	return translated, nil
}

// ExtractText reads the text of a medicine package photo with the vision model.
// Short or unreadable extractions are returned with Success=false and not cached.
func (s *MedicineService) ExtractText(ctx context.Context, img domain.Image) (*domain.MedicineExtraction, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}

	key := cache.DeriveKey(domain.KindExtraction, cache.ContentKey(img.Data))

	var cached domain.MedicineExtraction
	if s.ai.load(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	text, err := s.ai.generate(ctx, domain.KindExtraction, medicineExtractionPrompt, img)
	if err != nil {
		return &domain.MedicineExtraction{Error: fmt.Sprintf("Extraction error: %v", err)}, nil
	}
	if text == "" {
		return &domain.MedicineExtraction{Error: "No response from the vision model."}, nil
	}
	if len(text) < minExtractedText || strings.Contains(strings.ToLower(text), "cannot read") {
		return &domain.MedicineExtraction{
			Text:  text,
			Error: "Low quality extraction. Image may be unclear.",
		}, nil
	}

	result := &domain.MedicineExtraction{Text: text, Success: true}
	s.ai.store(ctx, key, result)
	return result, nil
}

// AnalyzeImage extracts the package text of a photo and explains it
func (s *MedicineService) AnalyzeImage(ctx context.Context, img domain.Image, req domain.MedicineRequest) (*domain.MedicineAnalysis, *domain.MedicineExtraction, error) {
	extraction, err := s.ExtractText(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	if !extraction.Success {
		return nil, extraction, nil
	}

	req.Text = extraction.Text
	analysis, err := s.Analyze(ctx, req)
	return analysis, extraction, err
}

// profileFingerprint is a stable rendering of a profile for cache keys
func profileFingerprint(p domain.MedicineProfile) string {
	norm := func(in []string) string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" && s != "none" {
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}
	return strings.Join([]string{
		strconv.Itoa(p.Age),
		norm(p.Conditions),
		norm(p.Allergies),
		norm(p.CurrentMedications),
		strconv.FormatBool(p.Pregnant),
	}, ";")
}
