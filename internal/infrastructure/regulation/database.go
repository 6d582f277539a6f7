package regulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
)

type ingredientRule struct {
	name    string
	lower   string
	item    domain.RegulatedItem
	aliases []*regexp.Regexp
}

// Database answers regulatory questions from the banned-products and recalls datasets.
// It is read-only after construction and safe for concurrent use.
type Database struct {
	products    map[string]domain.RegulatedItem
	productKeys []string
	ingredients []ingredientRule
	recalls     []domain.RecallRecord
}

// New builds a database from decoded datasets
func New(banned domain.BannedDataset, recalls domain.RecallDataset) *Database {
	db := &Database{
		products: make(map[string]domain.RegulatedItem, len(banned.Products)),
		recalls:  recalls.RecentRecalls,
	}

	for name, item := range banned.Products {
		db.products[name] = item
		db.productKeys = append(db.productKeys, name)
	}
	sort.Strings(db.productKeys)

	for name, item := range banned.Ingredients {
		rule := ingredientRule{name: name, lower: strings.ToLower(name), item: item}
		for _, alias := range item.Aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			rule.aliases = append(rule.aliases, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(alias)+`\b`))
		}
		db.ingredients = append(db.ingredients, rule)
	}
	sort.Slice(db.ingredients, func(i, j int) bool { return db.ingredients[i].name < db.ingredients[j].name })

	return db
}

// Load reads the datasets from dir. An unreadable or malformed file is
// logged and replaced by an empty dataset.
func Load(dir string, log *zap.Logger) *Database {
	log = logger.OrNop(log)

	var banned domain.BannedDataset
	if err := readJSON(filepath.Join(dir, BannedProductsFile), &banned); err != nil {
		log.Warn("banned products dataset unavailable, using empty dataset", zap.Error(err))
		banned = domain.BannedDataset{}
	}

	var recalls domain.RecallDataset
	if err := readJSON(filepath.Join(dir, RecallsFile), &recalls); err != nil {
		log.Warn("recalls dataset unavailable, using empty dataset", zap.Error(err))
		recalls = domain.RecallDataset{}
	}

	db := New(banned, recalls)
	log.Info("regulation datasets loaded",
		zap.Int("ingredients", len(db.ingredients)),
		zap.Int("products", len(db.products)),
		zap.Int("recalls", len(db.recalls)),
	)
	return db
}

func readJSON(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// CheckBanned returns the banned products whose name equals productName, ignoring case
func (d *Database) CheckBanned(productName string) []domain.BannedProduct {
	out := []domain.BannedProduct{}
	needle := strings.ToLower(strings.TrimSpace(productName))
	if needle == "" {
		return out
	}

	for _, name := range d.productKeys {
		if strings.ToLower(name) != needle {
			continue
		}
		item := d.products[name]
		out = append(out, domain.BannedProduct{
			Name:         name,
			BannedIn:     copyList(item.BannedIn),
			Reason:       item.Reason,
			Alternatives: copyList(item.Alternatives),
		})
	}
	return out
}

// CheckBannedIngredients returns every banned ingredient whose name occurs in text,
// ignoring case, or whose alias occurs as a whole word
func (d *Database) CheckBannedIngredients(text string) []domain.BannedIngredient {
	out := []domain.BannedIngredient{}
	if strings.TrimSpace(text) == "" || text == domain.NotAvailable {
		return out
	}

	lower := strings.ToLower(text)
	for _, rule := range d.ingredients {
		if !rule.matches(text, lower) {
			continue
		}
		out = append(out, domain.BannedIngredient{
			Name:         rule.name,
			BannedIn:     copyList(rule.item.BannedIn),
			Reason:       rule.item.Reason,
			Alternatives: copyList(rule.item.Alternatives),
		})
	}
	return out
}

func (r ingredientRule) matches(text, lower string) bool {
	if strings.Contains(lower, r.lower) {
		return true
	}
	for _, alias := range r.aliases {
		if alias.MatchString(text) {
			return true
		}
	}
	return false
}

// CheckRecalls returns recalls whose product name contains the product or brand name
func (d *Database) CheckRecalls(productName, brandName string) []domain.RecallRecord {
	out := []domain.RecallRecord{}

	var terms []string
	for _, t := range []string{productName, brandName} {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || isPlaceholder(t) {
			continue
		}
		terms = append(terms, t)
	}
	if len(terms) == 0 {
		return out
	}

	for _, recall := range d.recalls {
		name := strings.ToLower(recall.ProductName)
		for _, term := range terms {
			if strings.Contains(name, term) {
				out = append(out, recall)
				break
			}
		}
	}
	return out
}

// CheckCompliance reports one issue per banned ingredient found in text
func (d *Database) CheckCompliance(text, region string) domain.ComplianceResult {
	region = strings.TrimSpace(region)
	if region == "" {
		region = "the selected region"
	}

	matches := d.CheckBannedIngredients(text)
	issues := make([]string, 0, len(matches))
	for _, m := range matches {
		if bannedInRegion(m.BannedIn, region) {
			issues = append(issues, fmt.Sprintf("%s is banned in %s.", m.Name, region))
		} else {
			issues = append(issues, fmt.Sprintf("%s is restricted in %s; review before selling in %s.",
				m.Name, strings.Join(m.BannedIn, ", "), region))
		}
	}

	return domain.ComplianceResult{
		Region:    region,
		Compliant: len(issues) == 0,
		Issues:    issues,
	}
}

// Report runs every check for a product
func (d *Database) Report(product domain.ProductRecord) domain.RegulationReport {
	return domain.RegulationReport{
		BannedProducts:    d.CheckBanned(product.ProductName),
		BannedIngredients: d.CheckBannedIngredients(product.Details.Ingredients),
		Recalls:           d.CheckRecalls(product.ProductName, product.BrandName),
	}
}

// Counts returns the dataset sizes
func (d *Database) Counts() (ingredients, products, recalls int) {
	return len(d.ingredients), len(d.products), len(d.recalls)
}

// bannedInRegion matches "European Union" against "European Union (restricted)" as well
func bannedInRegion(bannedIn []string, region string) bool {
	r := strings.ToLower(region)
	for _, b := range bannedIn {
		if strings.HasPrefix(strings.ToLower(b), r) {
			return true
		}
	}
	return false
}

func isPlaceholder(lower string) bool {
	switch lower {
	case strings.ToLower(domain.UnknownProduct), strings.ToLower(domain.UnknownBrand), strings.ToLower(domain.Unknown):
		return true
	}
	return false
}

func copyList(in []string) []string {
	return append([]string{}, in...)
}
