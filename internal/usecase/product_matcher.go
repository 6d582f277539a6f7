package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
)

// Token weight categories for scoring
const (
	weightFood        = 3.0
	weightDescriptive = 2.0
	weightDefault     = 1.0
	fuzzyWeightFactor = 0.8 // fuzzy token matches count for 80% of their weight
)

// Scoring bonuses, added on top of the weighted base score
const (
	baseScoreMultiplier     = 70.0
	brandMatchBonus         = 25.0
	substringMatchBonus     = 10.0
	dataTypeBrandedBonus    = 10.0
	dataTypeSurveyBonus     = 5.0
	dataTypeFoundationBonus = 3.0

	defaultMatchThreshold = 40.0
)

// foodTerms are core food nouns (weight 3.0)
var foodTerms = wordSet(
	// proteins
	"chicken", "beef", "pork", "fish", "salmon", "turkey", "lamb", "mutton", "shrimp", "prawn",
	"tuna", "bacon", "sausage", "ham", "egg", "eggs", "paneer", "tofu", "dal", "lentils", "chana",
	// dairy
	"milk", "cheese", "yogurt", "curd", "butter", "ghee", "cream", "cheddar", "mozzarella", "lassi",
	// grains
	"bread", "rice", "pasta", "cereal", "oats", "wheat", "atta", "flour", "noodles", "tortilla",
	"biscuits", "biscuit", "muesli", "poha", "rusk",
	// produce
	"apple", "banana", "mango", "orange", "tomato", "potato", "onion", "carrot", "spinach",
	"strawberry", "grape", "lemon", "avocado", "corn", "beans", "peanut", "peanuts", "almonds", "cashew",
	// beverages
	"juice", "soda", "cola", "coffee", "tea", "water", "lemonade", "smoothie", "shake",
	// snacks and sweets
	"chips", "crackers", "cookies", "candy", "chocolate", "cake", "ice", "namkeen", "bhujia",
	"wafers", "popcorn", "jaggery", "sugar",
	// condiments
	"ketchup", "mustard", "mayonnaise", "sauce", "pickle", "chutney", "salsa", "syrup", "honey", "jam",
	// prepared
	"pizza", "burger", "sandwich", "soup", "salad", "masala", "curry", "noodle",
)

// descriptiveTerms qualify a food (weight 2.0)
var descriptiveTerms = wordSet(
	"whole", "skim", "toned", "reduced", "fat", "low", "nonfat", "organic", "natural", "fresh",
	"frozen", "canned", "dried", "raw", "cooked", "roasted", "baked", "fried", "smoked",
	"vanilla", "plain", "flavored", "flavoured", "original", "classic", "sweet", "spicy", "mild",
	"hot", "lite", "light", "diet", "white", "brown", "refined", "enriched", "fortified",
	"unsweetened", "sweetened", "salted", "unsalted", "lean", "vitamin", "protein", "fiber",
	"calcium", "iron", "multigrain", "probiotic", "gluten", "free", "added", "instant",
)

// extendedStopWords are English stop words plus size, packaging and marketing noise
var extendedStopWords = wordSet(
	"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for", "with", "by", "from",
	"is", "it", "as", "be", "was", "are",
	"oz", "fl", "lb", "lbs", "ml", "gallon", "quart", "pint", "liter", "liters", "litre", "gram",
	"grams", "gm", "kg", "ounce", "ounces", "cup", "cups", "tbsp", "tsp",
	"pack", "packs", "count", "ct", "pk", "box", "bag", "bottle", "bottles", "can", "cans",
	"carton", "container", "pouch", "jar", "tub", "sleeve", "sachet",
	"size", "value", "family", "each", "per", "serving", "servings", "approx", "bonus", "new",
	"improved", "product", "combo", "offer",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// MatchConfig holds configuration for the product matcher
type MatchConfig struct {
	MinConfidenceThreshold float64
	EnableFuzzyMatching    bool
	FuzzyEditDistance      int
}

// MatchCandidate is one search hit from any product database
type MatchCandidate struct {
	ID          string
	Description string
	Brand       string
	DataType    string
}

// CandidatesFromUSDA converts USDA search hits into match candidates
func CandidatesFromUSDA(foods []domain.USDAFood) []MatchCandidate {
	out := make([]MatchCandidate, 0, len(foods))
	for _, f := range foods {
		out = append(out, MatchCandidate{
			ID:          strconv.Itoa(f.FdcID),
			Description: f.Description,
			Brand:       f.BrandOwner,
			DataType:    f.DataType,
		})
	}
	return out
}

// CandidatesFromOFF converts Open Food Facts search hits into match candidates
func CandidatesFromOFF(products []domain.OFFProduct) []MatchCandidate {
	out := make([]MatchCandidate, 0, len(products))
	for _, p := range products {
		out = append(out, MatchCandidate{
			ID:          p.Code,
			Description: p.ProductName,
			Brand:       p.Brands,
		})
	}
	return out
}

// ProductMatcher scores search hits against a product name using weighted token overlap
type ProductMatcher struct {
	minConfidenceThreshold float64
	enableFuzzyMatching    bool
	fuzzyEditDistance      int
	logger                 *zap.Logger
}

// NewProductMatcher creates a matcher with the given configuration
func NewProductMatcher(config MatchConfig, logger *zap.Logger) *ProductMatcher {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = defaultMatchThreshold
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProductMatcher{
		minConfidenceThreshold: threshold,
		enableFuzzyMatching:    config.EnableFuzzyMatching,
		fuzzyEditDistance:      fuzzyDist,
		logger:                 logger,
	}
}

// Threshold returns the minimum confidence a match needs
func (m *ProductMatcher) Threshold() float64 {
	return m.minConfidenceThreshold
}

// FindBestMatch returns the highest scoring candidate.
// A best match below the threshold is returned together with ErrLowConfidence.
func (m *ProductMatcher) FindBestMatch(
	ctx context.Context,
	request *domain.SearchRequest,
	candidates []MatchCandidate,
) (*domain.MatchResult, error) {
	ranked, err := m.Rank(ctx, request, candidates)
	if err != nil {
		return nil, err
	}

	best := ranked[0]
	m.logger.Debug("best match",
		zap.String("query", request.ProductName),
		zap.String("match", best.Description),
		zap.Float64("score", best.MatchScore),
	)

	if best.MatchScore < m.minConfidenceThreshold {
		return &best, domain.ErrLowConfidence
	}
	return &best, nil
}

// Rank scores every candidate and returns them best first; ties keep input order
func (m *ProductMatcher) Rank(
	ctx context.Context,
	request *domain.SearchRequest,
	candidates []MatchCandidate,
) ([]domain.MatchResult, error) {
	if request == nil || strings.TrimSpace(request.ProductName) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if len(candidates) == 0 {
		return nil, domain.ErrProductNotFound
	}

	results := make([]domain.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		score, matched := m.Score(request.ProductName, request.Brand, c)
		m.logger.Debug("scored candidate",
			zap.String("candidate", c.Description),
			zap.String("data_type", c.DataType),
			zap.Float64("score", score),
			zap.Strings("matched", matched),
		)
		results = append(results, domain.MatchResult{
			ID:            c.ID,
			Description:   c.Description,
			MatchScore:    score,
			MatchedTokens: matched,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results, nil
}

// Score computes the similarity (0-100) of a candidate to a product name.
// The base score blends weighted product-token coverage (60%), candidate-token
// coverage (20%) and Jaccard overlap (20%); brand, substring and data type
// bonuses are added and the total is capped at 100.
func (m *ProductMatcher) Score(productName, brand string, c MatchCandidate) (float64, []string) {
	cleanedProduct := cleanProductNameForMatching(productName)
	productTokens := uniqueTokens(tokenize(cleanedProduct))
	candidateTokens := uniqueTokens(tokenize(c.Description))

	if len(productTokens) == 0 || len(candidateTokens) == 0 {
		return 0, nil
	}

	candidateSet := wordSet(candidateTokens...)
	productSet := wordSet(productTokens...)

	var totalWeight, matchedWeight float64
	var matched []string
	exact := 0
	for _, t := range productTokens {
		w := tokenWeight(t)
		totalWeight += w
		switch {
		case candidateSet[t]:
			matchedWeight += w
			matched = append(matched, t)
			exact++
		case m.enableFuzzyMatching && m.fuzzyContains(t, candidateTokens):
			matchedWeight += w * fuzzyWeightFactor
			matched = append(matched, t)
		}
	}
	productCoverage := matchedWeight / totalWeight

	candidateMatched := 0
	for _, t := range candidateTokens {
		if productSet[t] {
			candidateMatched++
		}
	}
	candidateCoverage := float64(candidateMatched) / float64(len(candidateTokens))

	union := len(productTokens) + len(candidateTokens) - exact
	jaccard := float64(exact) / float64(union)

	score := (productCoverage*0.60 + candidateCoverage*0.20 + jaccard*0.20) * baseScoreMultiplier

	productLower := strings.ToLower(cleanedProduct)
	descLower := strings.ToLower(c.Description)

	if b := strings.ToLower(strings.TrimSpace(brand)); b != "" {
		if strings.Contains(descLower, b) || strings.Contains(strings.ToLower(c.Brand), b) {
			score += brandMatchBonus
		}
	}

	if len(productLower) > 3 && (strings.Contains(descLower, productLower) || strings.Contains(productLower, descLower)) {
		score += substringMatchBonus
	}

	score += dataTypeBonus(c.DataType)

	if score > 100 {
		score = 100
	}
	return score, matched
}

func (m *ProductMatcher) fuzzyContains(token string, candidates []string) bool {
	for _, c := range candidates {
		if fuzzyTokenMatch(token, c, m.fuzzyEditDistance) {
			return true
		}
	}
	return false
}

func tokenWeight(token string) float64 {
	switch {
	case foodTerms[token]:
		return weightFood
	case descriptiveTerms[token]:
		return weightDescriptive
	default:
		return weightDefault
	}
}

func dataTypeBonus(dataType string) float64 {
	switch {
	case strings.EqualFold(dataType, "Branded"):
		return dataTypeBrandedBonus
	case strings.HasPrefix(strings.ToLower(dataType), "survey"):
		return dataTypeSurveyBonus
	case strings.EqualFold(dataType, "Foundation"):
		return dataTypeFoundationBonus
	default:
		return 0
	}
}

// cleanProductNameForMatching strips the comma tail and size patterns from a name
func cleanProductNameForMatching(name string) string {
	if idx := strings.Index(name, ","); idx > 0 {
		name = name[:idx]
	}
	name = sizePatternRegex.ReplaceAllString(name, " ")
	name = multipleSpacesRegex.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// tokenize splits a string into lowercase tokens without punctuation, stop words
// or pure numbers
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || extendedStopWords[word] || isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch reports whether two tokens of at least 4 characters are within
// the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}
	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings using two rows
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
