package domain

import (
	"strings"
	"time"
)

// Analysis kinds, also used as cache namespaces
const (
	KindHealth        = "health_analysis"
	KindEnvironmental = "environmental_analysis"
	KindAllergen      = "allergen_analysis"
	KindRecipes       = "healthier_recipes"
	KindLabel         = "label_analysis"
	KindMedicine      = "medicine_analysis"
	KindTranslation   = "medicine_translation"
	KindExtraction    = "medicine_extraction"
	KindFoodImage     = "food_image_analysis"
	certSuffix        = "_cert"
)

// DefaultRating is used when no rating can be extracted from AI text
const DefaultRating = 5.0

// CertificationKind returns the analysis kind for a certification name, e.g. "organic_cert"
func CertificationKind(certification string) string {
	c := strings.ToLower(strings.TrimSpace(certification))
	c = strings.Join(strings.Fields(c), "_")
	return c + certSuffix
}

// IsCertificationKind reports whether kind names a certification analysis
func IsCertificationKind(kind string) bool {
	return strings.HasSuffix(kind, certSuffix) && len(kind) > len(certSuffix)
}

// RiskLevel classifies how cautious a consumer should be
type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskCaution RiskLevel = "CAUTION"
	RiskMonitor RiskLevel = "MONITOR"
)

// HealthMetrics holds numbers extracted from AI text or product nutriments.
// Nil fields were found in neither.
type HealthMetrics struct {
	Calories      *float64 `json:"calories,omitempty"`
	Sugar         *float64 `json:"sugar,omitempty"`
	SaturatedFat  *float64 `json:"saturated_fat,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty"`
	Protein       *float64 `json:"protein,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty"`
	AdditiveCount *int     `json:"additive_count,omitempty"`
}

// AnalysisRequest asks for one AI analysis of a product
type AnalysisRequest struct {
	Kind          string        `json:"kind"`
	Certification string        `json:"certification,omitempty"`
	Product       ProductRecord `json:"product"`
	Allergies     []string      `json:"allergies,omitempty"`
}

// AnalysisResult is the outcome of one AI analysis
type AnalysisResult struct {
	Kind             string                 `json:"kind"`
	FullText         string                 `json:"full_text"`
	Rating           float64                `json:"rating"`
	Metrics          *HealthMetrics         `json:"metrics,omitempty"`
	StructuredFields map[string]interface{} `json:"structured_fields,omitempty"`
	RiskLevel        RiskLevel              `json:"risk_level,omitempty"`
	Success          bool                   `json:"success"`
	Cached           bool                   `json:"cached"`
	Timestamp        time.Time              `json:"timestamp"`
}

// ProductReport bundles the parallel analyses of one product
type ProductReport struct {
	Product       ProductRecord    `json:"product"`
	Health        *AnalysisResult  `json:"health"`
	Environmental *AnalysisResult  `json:"environmental"`
	Allergen      *AnalysisResult  `json:"allergen"`
	Regulation    RegulationReport `json:"regulation"`
}

// Image is an uploaded picture sent to a vision model
type Image struct {
	MediaType string
	Data      []byte
}

// Medicine analysis depths
const (
	MedicineShort = "short"
	MedicineLong  = "long"
)

// MedicineProfile is the optional patient context of a medicine question
type MedicineProfile struct {
	Age                int      `json:"age,omitempty"`
	Conditions         []string `json:"conditions,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
	Pregnant           bool     `json:"pregnant,omitempty"`
}

// MedicineRequest asks for an explanation of a medicine
type MedicineRequest struct {
	Text     string          `json:"text"`
	Type     string          `json:"type"`
	Language string          `json:"language,omitempty"`
	Profile  MedicineProfile `json:"profile"`
}

// MedicineAnalysis is the explanation of a medicine
type MedicineAnalysis struct {
	Text        string    `json:"text"`
	SourceText  string    `json:"source_text"`
	Type        string    `json:"type"`
	RiskLevel   RiskLevel `json:"risk_level"`
	BrandName   string    `json:"brand_name,omitempty"`
	GenericName string    `json:"generic_name,omitempty"`
	Language    string    `json:"language,omitempty"`
	Translated  string    `json:"translated,omitempty"`
	Success     bool      `json:"success"`
	Cached      bool      `json:"cached"`
	Timestamp   time.Time `json:"timestamp"`
}

// MedicineExtraction is the text read from a medicine package photo
type MedicineExtraction struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Cached  bool   `json:"cached"`
}

// FoodImageAnalysis is the free-text reading of a food photo
type FoodImageAnalysis struct {
	Text      string    `json:"text"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached"`
	Timestamp time.Time `json:"timestamp"`
}

// LabelAnalysis is the structured reading of a food label photo
type LabelAnalysis struct {
	RawText          string                 `json:"raw_text"`
	StructuredFields map[string]interface{} `json:"structured_fields,omitempty"`
	SchemaErrors     []string               `json:"schema_errors,omitempty"`
	Success          bool                   `json:"success"`
	Cached           bool                   `json:"cached"`
	Timestamp        time.Time              `json:"timestamp"`
}
