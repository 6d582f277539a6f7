package usda

import (
	"fmt"
	"strings"

	"github.com/labelpadega/backend/internal/domain"
)

// USDA Nutrient IDs for key nutrients
const (
	NutrientIDEnergy       = 1008 // Calories (kcal)
	NutrientIDProtein      = 1003 // Protein (g)
	NutrientIDCarbohydrate = 1005 // Carbohydrates (g)
	NutrientIDTotalFat     = 1004 // Total Fat (g)
	NutrientIDSaturatedFat = 1258 // Saturated fat (g)
	NutrientIDSugars       = 2000 // Total sugars (g)
	NutrientIDFiber        = 1079 // Fiber (g)
	NutrientIDSodium       = 1093 // Sodium (mg)
)

// MapToNutritionData converts USDA food data to our domain NutritionData model
func MapToNutritionData(usdaFood *domain.USDAFood, confidence float64) *domain.NutritionData {
	nutrients := extractNutrients(usdaFood.Nutrients)

	return &domain.NutritionData{
		FdcID:           fmt.Sprintf("%d", usdaFood.FdcID),
		ProductName:     usdaFood.Description,
		BrandOwner:      usdaFood.BrandOwner,
		ServingSize:     "100", // nutrient values are reported per 100g
		ServingSizeUnit: "g",
		Nutrients:       nutrients,
		Confidence:      confidence,
		Source:          "USDA",
	}
}

// MapToProductRecord converts a barcode lookup (search hit plus detail) into the normalized record
func MapToProductRecord(barcode string, lookup domain.USDALookup) (domain.ProductRecord, error) {
	if len(lookup.Search.Foods) == 0 {
		return domain.ProductRecord{}, domain.ErrProductNotFound
	}
	food := lookup.Search.Foods[0]
	detail := lookup.Detail

	allergens := []string{}
	if detail.Allergens != "" {
		for _, a := range strings.Split(detail.Allergens, ",") {
			if a = strings.TrimSpace(a); a != "" {
				allergens = append(allergens, a)
			}
		}
	}

	display := make(map[string]domain.NutrientAmount, len(detail.Nutrients))
	for _, n := range detail.Nutrients {
		if name := n.Name(); name != "" {
			display[name] = domain.NutrientAmount{Value: n.Quantity(), Unit: n.Unit()}
		}
	}

	servingSize := domain.NotSpecified
	if detail.ServingSize > 0 {
		servingSize = fmt.Sprintf("%g", detail.ServingSize)
	}

	return domain.ProductRecord{
		Barcode:     barcode,
		ProductName: orDefault(food.Description, domain.UnknownProduct),
		BrandName:   orDefault(food.BrandOwner, domain.UnknownBrand),
		Category:    orDefault(food.FoodCategory, domain.Unknown),
		Origin:      orDefault(detail.MarketCountry, domain.Unknown),
		Allergens:   allergens,
		Source:      domain.SourceUSDA,
		Details: domain.ProductDetails{
			Ingredients:         orDefault(detail.Ingredients, domain.NotAvailable),
			IngredientsList:     []string{},
			NutrientsDisplay:    display,
			Packaging:           domain.NotSpecified,
			ManufacturingPlaces: domain.NotSpecified,
			AdditivesTags:       []string{},
			ServingSize:         servingSize,
			ServingUnit:         detail.ServingSizeUnit,
			HouseholdServing:    orDefault(detail.HouseholdServingFullText, domain.NotSpecified),
			DataType:            detail.DataType,
			PublicationDate:     detail.PublicationDate,
			Stores:              domain.NotSpecified,
		},
	}, nil
}

// extractNutrients extracts the key nutrients from USDA nutrient list
func extractNutrients(usdaNutrients []domain.USDANutrient) domain.Nutrients {
	nutrients := domain.Nutrients{}

	for _, nutrient := range usdaNutrients {
		switch nutrient.ID() {
		case NutrientIDEnergy:
			nutrients.Calories = nutrient.Quantity()
		case NutrientIDProtein:
			nutrients.Protein = nutrient.Quantity()
		case NutrientIDCarbohydrate:
			nutrients.Carbohydrates = nutrient.Quantity()
		case NutrientIDTotalFat:
			nutrients.TotalFat = nutrient.Quantity()
		case NutrientIDSaturatedFat:
			nutrients.SaturatedFat = nutrient.Quantity()
		case NutrientIDSugars:
			nutrients.Sugars = nutrient.Quantity()
		case NutrientIDFiber:
			nutrients.Fiber = nutrient.Quantity()
		case NutrientIDSodium:
			nutrients.Sodium = nutrient.Quantity()
		}
	}

	return nutrients
}

// FindNutrientValue finds a specific nutrient value by ID
func FindNutrientValue(nutrients []domain.USDANutrient, nutrientID int) float64 {
	for _, nutrient := range nutrients {
		if nutrient.ID() == nutrientID {
			return nutrient.Quantity()
		}
	}
	return 0.0
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
