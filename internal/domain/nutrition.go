package domain

import "time"

// NutritionData represents the complete nutrition information for a food product
type NutritionData struct {
	FdcID           string    `json:"fdcId"`
	ProductName     string    `json:"productName"`
	BrandOwner      string    `json:"brandOwner,omitempty"`
	ServingSize     string    `json:"servingSize"`
	ServingSizeUnit string    `json:"servingSizeUnit"`
	Nutrients       Nutrients `json:"nutrients"`
	Confidence      float64   `json:"confidence"` // Match confidence score 0-100
	Source          string    `json:"source"`     // "USDA" or "Cache"
	CachedAt        time.Time `json:"cachedAt,omitempty"`
}

// Nutrients contains the key nutrients shown for a food
type Nutrients struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`       // grams
	Carbohydrates float64 `json:"carbohydrates"` // grams
	TotalFat      float64 `json:"totalFat"`      // grams
	SaturatedFat  float64 `json:"saturatedFat"`  // grams
	Sugars        float64 `json:"sugars"`        // grams
	Fiber         float64 `json:"fiber"`         // grams
	Sodium        float64 `json:"sodium"`        // milligrams
}

// SearchRequest represents a nutrition search request
type SearchRequest struct {
	ProductName string `json:"productName" form:"q" binding:"required"`
	Brand       string `json:"brand,omitempty" form:"brand"`
}

// USDAFood represents a food item from the USDA FoodData Central API.
// Search results and detail responses share this shape; fields absent in one are zero.
type USDAFood struct {
	FdcID                    int            `json:"fdcId"`
	Description              string         `json:"description"`
	DataType                 string         `json:"dataType"`
	BrandOwner               string         `json:"brandOwner,omitempty"`
	FoodCategory             string         `json:"foodCategory,omitempty"`
	MarketCountry            string         `json:"marketCountry,omitempty"`
	Ingredients              string         `json:"ingredients,omitempty"`
	Allergens                string         `json:"allergens,omitempty"`
	ServingSize              float64        `json:"servingSize,omitempty"`
	ServingSizeUnit          string         `json:"servingSizeUnit,omitempty"`
	HouseholdServingFullText string         `json:"householdServingFullText,omitempty"`
	PublicationDate          string         `json:"publicationDate,omitempty"`
	Nutrients                []USDANutrient `json:"foodNutrients"`
}

// USDANutrient represents a single nutrient from USDA data.
// Search responses use the flat fields, detail responses nest them under "nutrient".
type USDANutrient struct {
	NutrientID   int              `json:"nutrientId,omitempty"`
	NutrientName string           `json:"nutrientName,omitempty"`
	UnitName     string           `json:"unitName,omitempty"`
	Value        float64          `json:"value,omitempty"`
	Amount       float64          `json:"amount,omitempty"`
	Nutrient     *USDANutrientRef `json:"nutrient,omitempty"`
}

// USDANutrientRef is the nested nutrient descriptor of a detail response
type USDANutrientRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	UnitName string `json:"unitName"`
}

// ID returns the nutrient id regardless of response shape
func (n USDANutrient) ID() int {
	if n.NutrientID == 0 && n.Nutrient != nil {
		return n.Nutrient.ID
	}
	return n.NutrientID
}

// Name returns the nutrient name regardless of response shape
func (n USDANutrient) Name() string {
	if n.NutrientName == "" && n.Nutrient != nil {
		return n.Nutrient.Name
	}
	return n.NutrientName
}

// Unit returns the nutrient unit regardless of response shape
func (n USDANutrient) Unit() string {
	if n.UnitName == "" && n.Nutrient != nil {
		return n.Nutrient.UnitName
	}
	return n.UnitName
}

// Quantity returns the nutrient amount regardless of response shape
func (n USDANutrient) Quantity() float64 {
	if n.Value == 0 {
		return n.Amount
	}
	return n.Value
}

// USDASearchResponse represents the response from USDA search API
type USDASearchResponse struct {
	Foods       []USDAFood `json:"foods"`
	TotalHits   int        `json:"totalHits"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}

// USDALookup is the cached pair of a barcode search and the detail of its first hit
type USDALookup struct {
	Search USDASearchResponse `json:"search_result"`
	Detail USDAFood           `json:"detail"`
}
