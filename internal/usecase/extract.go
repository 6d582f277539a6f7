package usecase

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/labelpadega/backend/internal/domain"
)

var ratingRegex = regexp.MustCompile(`(?i)(?:rate|rating|score)[^\d]*(\d+(?:\.\d+)?)\s*(?:/|\bof\b|\bout of\b)?\s*10`)

var (
	caloriesRegex = regexp.MustCompile(`(?i)calories[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	sugarRegex    = regexp.MustCompile(`(?i)sugar[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	satFatRegex   = regexp.MustCompile(`(?i)saturated[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	sodiumRegex   = regexp.MustCompile(`(?i)sodium[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	proteinRegex  = regexp.MustCompile(`(?i)protein[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	fiberRegex    = regexp.MustCompile(`(?i)fib(?:er|re)[^:\d]*:?\s*(\d+(?:\.\d+)?)`)
	additiveRegex = regexp.MustCompile(`(?i)additive[^:\d]*:?\s*(\d+)`)

	jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

// ExtractRating finds a "rating: X/10" style score in AI text.
// Absent or out-of-range ratings give DefaultRating.
func ExtractRating(text string) float64 {
	m := ratingRegex.FindStringSubmatch(text)
	if m == nil {
		return domain.DefaultRating
	}
	rating, err := strconv.ParseFloat(m[1], 64)
	if err != nil || rating < 0 || rating > 10 {
		return domain.DefaultRating
	}
	return rating
}

// ExtractMetrics pulls nutrition numbers out of AI text; each field missing from the
// text falls back to the product nutriments, and stays nil when neither has it
func ExtractMetrics(text string, details domain.ProductDetails) *domain.HealthMetrics {
	m := &domain.HealthMetrics{
		Calories:     firstNumber(caloriesRegex, text),
		Sugar:        firstNumber(sugarRegex, text),
		SaturatedFat: firstNumber(satFatRegex, text),
		Sodium:       firstNumber(sodiumRegex, text),
		Protein:      firstNumber(proteinRegex, text),
		Fiber:        firstNumber(fiberRegex, text),
	}
	if n := firstNumber(additiveRegex, text); n != nil {
		count := int(*n)
		m.AdditiveCount = &count
	}

	fill := func(dst **float64, key string, scale float64) {
		if *dst != nil {
			return
		}
		if v, ok := details.NutrimentNumber(key); ok {
			v *= scale
			*dst = &v
		}
	}
	fill(&m.Calories, "energy-kcal_serving", 1)
	fill(&m.Sugar, "sugars_100g", 1)
	fill(&m.SaturatedFat, "saturated-fat_100g", 1)
	fill(&m.Sodium, "sodium_100g", 1000) // g to mg
	fill(&m.Protein, "proteins_100g", 1)
	fill(&m.Fiber, "fiber_100g", 1)

	if m.AdditiveCount == nil && details.AdditivesTags != nil {
		count := len(details.AdditivesTags)
		m.AdditiveCount = &count
	}
	return m
}

func firstNumber(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// DetectRiskLevel sniffs the risk verdict written by the model
func DetectRiskLevel(text string) domain.RiskLevel {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "GENERALLY SAFE"):
		return domain.RiskSafe
	case strings.Contains(text, "🛑"),
		strings.Contains(upper, "REQUIRES") && strings.Contains(upper, "MONITORING"):
		return domain.RiskMonitor
	default:
		return domain.RiskCaution
	}
}

// ExtractLabeledValue returns the value of the first "Label: value" line, with markdown
// emphasis stripped
func ExtractLabeledValue(text, label string) string {
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, label)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(label):]
		colon := strings.Index(rest, ":")
		if colon < 0 {
			continue
		}
		value := strings.Trim(strings.TrimSpace(rest[colon+1:]), "* ")
		if value != "" {
			return value
		}
	}
	return ""
}

// ExtractJSONObject decodes the JSON object embedded in AI text: a fenced block first,
// then the outermost braces. ok is false when no object parses.
func ExtractJSONObject(text string) (map[string]interface{}, bool) {
	candidates := make([]string, 0, 2)
	if m := jsonFenceRegex.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	for _, c := range candidates {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(c), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}
