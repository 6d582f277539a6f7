package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Package-level compiled regex patterns
var (
	punctuationRegex     = regexp.MustCompile(`[^\w\s]`)
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)

	// characters that upstream search endpoints reject
	specialCharsRegex = regexp.MustCompile(`[#%+@!^*()=\[\]{}<>|\\~` + "`" + `]`)

	// size/quantity patterns like "128 fl oz", "500 ml", "1.5 kg"
	sizePatternRegex = regexp.MustCompile(
		`(?i)\b\d+\.?\d*\s*(?:fl\s*oz|oz|ml|liters?|litres?|l|gallons?|gal|lbs?|pounds?|kg|grams?|gm|g|ct|count|pk|pack|ea|each|qt|quart|pt|pint)\b`,
	)

	// pack/count patterns like "12 pack", "pack of 6", "6 ct"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b|\b\d+\s*(?:cans?|bottles?|pouches?|sachets?|bars?|pieces?)\b`)

	// standalone numbers left at a boundary, e.g. ", 128"
	standaloneNumberPattern = regexp.MustCompile(`[,\-]\s*\d+\.?\d*\s*$|^\d+\.?\d*\s*[,\-]`)

	orphanInnerPunct    = regexp.MustCompile(`\s+[,\-;:]+\s+`)
	orphanTrailingPunct = regexp.MustCompile(`[,\-;:]+\s*$`)
	orphanLeadingPunct  = regexp.MustCompile(`^\s*[,\-;:]+`)
)

const maxQueryLength = 100

// queryNoiseWords are marketing and packaging terms that do not narrow a search
var queryNoiseWords = wordSet(
	"value", "family", "bonus", "new", "improved", "premium", "select", "choice", "quality",
	"best", "great", "delicious", "tasty", "favorite", "special",
	"size", "large", "medium", "small", "mini", "jumbo", "big", "snack", "single", "double",
	"package", "box", "bag", "bottle", "can", "jar", "tub", "carton", "pouch", "sachet", "tube",
	"food", "item", "product", "brand",
)

// storeBrands are retailer house brands that public food databases rarely index
var storeBrands = []string{
	"Great Value", "Sam's Choice", "Marketside", "Kirkland Signature",
	"Fresho", "BB Royal", "Smart Bazaar", "Reliance Good Life", "DMart Premia",
}

// retailNoiseWords are multi-word retail phrases removed from search queries
var retailNoiseWords = []string{
	"party size", "family size", "value pack", "bonus size", "combo pack",
	"club pack", "mega size", "snack size", "fun size", "share size", "travel size",
}

// QueryPreprocessor turns noisy retail product titles into search queries
type QueryPreprocessor struct {
	logger *zap.Logger
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger *zap.Logger) *QueryPreprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryPreprocessor{logger: logger}
}

// PreprocessQuery cleans a product name for a free-text product search.
// Sizes, pack counts and noise words are removed; the brand is prepended when missing.
func (p *QueryPreprocessor) PreprocessQuery(productName, brand string) string {
	if strings.TrimSpace(productName) == "" {
		return ""
	}

	cleaned := sizePatternRegex.ReplaceAllString(productName, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = standaloneNumberPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = cleanOrphanedPunctuation(cleaned)
	cleaned = strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(cleaned, " "))

	if brand != "" && !strings.Contains(strings.ToLower(cleaned), strings.ToLower(brand)) {
		cleaned = brand + " " + cleaned
	}

	if len(cleaned) > maxQueryLength {
		cleaned = cleaned[:maxQueryLength]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.logger.Debug("preprocessed query", zap.String("input", productName), zap.String("output", cleaned))
	return cleaned
}

// ExtractFoodKeywords returns the tokens of text, food terms first then descriptive terms
func (p *QueryPreprocessor) ExtractFoodKeywords(text string) []string {
	var high, medium, low []string
	for _, token := range uniqueTokens(tokenize(text)) {
		switch {
		case foodTerms[token]:
			high = append(high, token)
		case descriptiveTerms[token]:
			medium = append(medium, token)
		default:
			low = append(low, token)
		}
	}

	result := make([]string, 0, len(high)+len(medium)+len(low))
	result = append(result, high...)
	result = append(result, medium...)
	return append(result, low...)
}

func removeNoiseWords(s string) string {
	var kept []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if !queryNoiseWords[strings.Trim(word, ",.!?;:-'\"")] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

func cleanOrphanedPunctuation(s string) string {
	s = orphanInnerPunct.ReplaceAllString(s, " ")
	s = orphanTrailingPunct.ReplaceAllString(s, "")
	return orphanLeadingPunct.ReplaceAllString(s, "")
}

// normalizeForCacheKey lowercases a key component and drops everything but letters,
// digits and single spaces
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := nonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// buildSearchQuery builds a focused USDA query: sizes and retail noise are stripped and
// the brand is prepended unless it is a store brand or already present
func buildSearchQuery(name, brand string) string {
	query := cleanProductName(name)

	if brand != "" && !isStoreBrand(brand) && !strings.Contains(strings.ToLower(query), strings.ToLower(brand)) {
		query = brand + " " + query
	}
	return strings.TrimSpace(query)
}

// cleanProductName strips the comma tail, unsafe characters, sizes, retail noise and a
// leading store brand from a product title
func cleanProductName(name string) string {
	if idx := strings.Index(name, ","); idx > 0 {
		name = name[:idx]
	}

	name = strings.ReplaceAll(name, "&", " and ")
	name = specialCharsRegex.ReplaceAllString(name, " ")
	name = sizePatternRegex.ReplaceAllString(name, " ")

	nameLower := strings.ToLower(name)
	for _, noise := range retailNoiseWords {
		if idx := strings.Index(nameLower, noise); idx >= 0 {
			name = name[:idx] + name[idx+len(noise):]
			nameLower = strings.ToLower(name)
		}
	}

	for _, brand := range storeBrands {
		if strings.HasPrefix(nameLower, strings.ToLower(brand)) {
			name = name[len(brand):]
			break
		}
	}

	name = multipleSpacesRegex.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func isStoreBrand(brand string) bool {
	for _, sb := range storeBrands {
		if strings.EqualFold(sb, strings.TrimSpace(brand)) {
			return true
		}
	}
	return false
}
