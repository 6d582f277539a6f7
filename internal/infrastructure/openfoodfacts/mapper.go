package openfoodfacts

import (
	"fmt"
	"strings"

	"github.com/labelpadega/backend/internal/domain"
)

// MapToProductRecord converts an Open Food Facts product into the normalized record.
// Missing fields become the explicit placeholders of the domain package.
func MapToProductRecord(barcode string, p domain.OFFProduct) domain.ProductRecord {
	category := domain.Unknown
	if len(p.CategoriesTags) > 0 {
		category = capitalize(stripLangPrefix(p.CategoriesTags[0]))
	}

	allergens := stripAll(p.AllergensTags)

	ingredientsList := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		ingredientsList = append(ingredientsList, ing.Text)
	}

	if barcode == "" {
		barcode = p.Code
	}

	return domain.ProductRecord{
		Barcode:     barcode,
		ProductName: orDefault(p.ProductName, domain.UnknownProduct),
		BrandName:   orDefault(p.Brands, domain.UnknownBrand),
		Category:    category,
		Origin:      orDefault(p.Countries, domain.Unknown),
		ImageURL:    p.ImageURL,
		Allergens:   allergens,
		Source:      domain.SourceOpenFoodFacts,
		Details: domain.ProductDetails{
			Ingredients:         orDefaultPtr(p.IngredientsText, domain.NotAvailable),
			IngredientsList:     ingredientsList,
			Nutriments:          p.Nutriments,
			NutritionGrade:      p.NutritionGrades,
			NovaGroup:           formatAny(p.NovaGroup),
			EcoscoreGrade:       p.EcoscoreGrade,
			Packaging:           orDefaultPtr(p.Packaging, domain.NotSpecified),
			ManufacturingPlaces: orDefaultPtr(p.ManufacturingPlaces, domain.NotSpecified),
			AdditivesTags:       stripAll(p.AdditivesTags),
			Labels:              p.Labels,
			ExpirationDate:      p.ExpirationDate,
			ServingSize:         orDefaultPtr(p.ServingSize, domain.NotSpecified),
			Stores:              orDefaultPtr(p.Stores, domain.NotSpecified),
		},
	}
}

// stripLangPrefix removes taxonomy prefixes such as "en:"
func stripLangPrefix(tag string) string {
	if i := strings.Index(tag, ":"); i >= 0 && i <= 3 {
		return tag[i+1:]
	}
	return tag
}

func stripAll(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, stripLangPrefix(t))
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// orDefaultPtr only falls back when the field was absent; an empty string is kept
func orDefaultPtr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func formatAny(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
