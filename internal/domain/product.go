package domain

// Explicit placeholders used when an upstream source omits a field
const (
	UnknownProduct = "Unknown Product"
	UnknownBrand   = "Unknown Brand"
	Unknown        = "Unknown"
	NotAvailable   = "Not available"
	NotSpecified   = "Not specified"
)

// Product sources
const (
	SourceOpenFoodFacts = "open-food-facts"
	SourceUSDA          = "usda"
)

// ProductRecord is the normalized view of a product returned by any food database adapter
type ProductRecord struct {
	Barcode     string         `json:"barcode,omitempty"`
	ProductName string         `json:"product_name"`
	BrandName   string         `json:"brand_name"`
	Category    string         `json:"category"`
	Origin      string         `json:"origin"`
	Details     ProductDetails `json:"details"`
	ImageURL    string         `json:"image_url,omitempty"`
	Allergens   []string       `json:"allergens"`
	Source      string         `json:"source"`
}

// ProductDetails holds the nutrition and labelling subset kept from upstream responses
type ProductDetails struct {
	Ingredients         string                    `json:"ingredients"`
	IngredientsList     []string                  `json:"ingredients_list"`
	Nutriments          map[string]interface{}    `json:"nutriments,omitempty"`
	NutrientsDisplay    map[string]NutrientAmount `json:"nutrients_display,omitempty"`
	NutritionGrade      string                    `json:"nutrition_grades,omitempty"`
	NovaGroup           string                    `json:"nova_group,omitempty"`
	EcoscoreGrade       string                    `json:"ecoscore_grade,omitempty"`
	Packaging           string                    `json:"packaging"`
	ManufacturingPlaces string                    `json:"manufacturing_places"`
	AdditivesTags       []string                  `json:"additives_tags"`
	Labels              string                    `json:"labels,omitempty"`
	ExpirationDate      string                    `json:"exp_date,omitempty"`
	ServingSize         string                    `json:"serving_size"`
	ServingUnit         string                    `json:"serving_unit,omitempty"`
	HouseholdServing    string                    `json:"household_serving,omitempty"`
	Stores              string                    `json:"stores,omitempty"`
	DataType            string                    `json:"data_type,omitempty"`
	PublicationDate     string                    `json:"publication_date,omitempty"`
}

// NutrientAmount is a value with its unit, e.g. 12 g
type NutrientAmount struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// NutrimentNumber returns a numeric nutriment value if present
func (d ProductDetails) NutrimentNumber(key string) (float64, bool) {
	if d.Nutriments == nil {
		return 0, false
	}
	switch v := d.Nutriments[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// HasIngredients reports whether an ingredient text is known
func (d ProductDetails) HasIngredients() bool {
	return d.Ingredients != "" && d.Ingredients != NotAvailable
}

// MatchResult represents the result of a product matching operation
type MatchResult struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	MatchScore    float64  `json:"matchScore"`
	MatchedTokens []string `json:"matchedTokens,omitempty"`
}

// ProductMatch is a name-search hit ranked against the query
type ProductMatch struct {
	Product       ProductRecord `json:"product"`
	MatchScore    float64       `json:"match_score"`
	MatchedTokens []string      `json:"matched_tokens,omitempty"`
}

// ProductLookup is a product together with its regulatory screening
type ProductLookup struct {
	Product    ProductRecord    `json:"product"`
	Regulation RegulationReport `json:"regulation"`
}

// OFFProductResponse is the Open Food Facts product endpoint payload
type OFFProductResponse struct {
	Code          string     `json:"code"`
	Status        int        `json:"status"`
	StatusVerbose string     `json:"status_verbose,omitempty"`
	Product       OFFProduct `json:"product"`
}

// OFFSearchResponse is the Open Food Facts search endpoint payload
type OFFSearchResponse struct {
	Count    int          `json:"count"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Products []OFFProduct `json:"products"`
}

// OFFProduct holds the Open Food Facts product fields we read.
// NovaGroup is untyped because the API emits both numbers and strings.
type OFFProduct struct {
	Code                string                 `json:"code,omitempty"`
	ProductName         string                 `json:"product_name,omitempty"`
	Brands              string                 `json:"brands,omitempty"`
	CategoriesTags      []string               `json:"categories_tags,omitempty"`
	Countries           string                 `json:"countries,omitempty"`
	ImageURL            string                 `json:"image_url,omitempty"`
	AllergensTags       []string               `json:"allergens_tags,omitempty"`
	IngredientsText     *string                `json:"ingredients_text,omitempty"`
	Ingredients         []OFFIngredient        `json:"ingredients,omitempty"`
	Nutriments          map[string]interface{} `json:"nutriments,omitempty"`
	NutritionGrades     string                 `json:"nutrition_grades,omitempty"`
	NovaGroup           interface{}            `json:"nova_group,omitempty"`
	EcoscoreGrade       string                 `json:"ecoscore_grade,omitempty"`
	Packaging           *string                `json:"packaging,omitempty"`
	ManufacturingPlaces *string                `json:"manufacturing_places,omitempty"`
	AdditivesTags       []string               `json:"additives_tags,omitempty"`
	Labels              string                 `json:"labels,omitempty"`
	ExpirationDate      string                 `json:"expiration_date,omitempty"`
	ServingSize         *string                `json:"serving_size,omitempty"`
	Stores              *string                `json:"stores,omitempty"`
}

// OFFIngredient is one parsed ingredient of an Open Food Facts product
type OFFIngredient struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}
