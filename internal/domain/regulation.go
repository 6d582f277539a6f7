package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StringList decodes either a JSON string or an array of strings
type StringList []string

// UnmarshalJSON accepts "a" as well as ["a", "b"]
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = StringList{}
		} else {
			*l = StringList{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or string array: %w", err)
	}
	*l = StringList(many)
	return nil
}

// RegulatedItem is the shared record shape of banned ingredients and banned products
type RegulatedItem struct {
	BannedIn     StringList `json:"banned_in"`
	Reason       string     `json:"reason"`
	Alternatives StringList `json:"alternatives"`
	Aliases      StringList `json:"aliases,omitempty"`
}

// BannedDataset is the content of banned_products.json
type BannedDataset struct {
	Ingredients map[string]RegulatedItem `json:"ingredients"`
	Products    map[string]RegulatedItem `json:"products"`
}

// RecallDataset is the content of product_recalls.json
type RecallDataset struct {
	RecentRecalls []RecallRecord `json:"recent_recalls"`
}

// BannedIngredient is a matched banned ingredient
type BannedIngredient struct {
	Name         string   `json:"name"`
	BannedIn     []string `json:"banned_in"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives"`
}

// BannedProduct is a matched banned product
type BannedProduct struct {
	Name         string   `json:"name"`
	BannedIn     []string `json:"banned_in"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives"`
}

// RecallRecord is a published product recall
type RecallRecord struct {
	ProductName     string       `json:"product_name"`
	Date            CalendarDate `json:"date"`
	Reason          string       `json:"reason"`
	RegionsAffected []string     `json:"regions_affected"`
	BatchNumbers    []string     `json:"batch_numbers"`
}

// CalendarDate is a YYYY-MM-DD date
type CalendarDate struct {
	time.Time
}

const calendarLayout = "2006-01-02"

// UnmarshalJSON parses a YYYY-MM-DD string; an empty string leaves the zero date
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(calendarLayout, s)
	if err != nil {
		return fmt.Errorf("invalid recall date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON writes the date as YYYY-MM-DD
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(calendarLayout))
}

// String returns the date as YYYY-MM-DD
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(calendarLayout)
}

// ComplianceResult is the outcome of a regional compliance check
type ComplianceResult struct {
	Region    string   `json:"region"`
	Compliant bool     `json:"compliant"`
	Issues    []string `json:"issues"`
}

// RegulationReport aggregates the regulatory checks for one product
type RegulationReport struct {
	BannedProducts    []BannedProduct    `json:"banned_products"`
	BannedIngredients []BannedIngredient `json:"banned_ingredients"`
	Recalls           []RecallRecord     `json:"recalls"`
}

// HasConcerns reports whether any check matched
func (r RegulationReport) HasConcerns() bool {
	return len(r.BannedProducts) > 0 || len(r.BannedIngredients) > 0 || len(r.Recalls) > 0
}

// Summary renders the report as short plain-text lines used as prompt context
func (r RegulationReport) Summary() string {
	if !r.HasConcerns() {
		return "No regulatory concerns found."
	}

	var b strings.Builder
	for _, p := range r.BannedProducts {
		fmt.Fprintf(&b, "Product %s banned in %s: %s\n", p.Name, strings.Join(p.BannedIn, ", "), p.Reason)
	}
	for _, ing := range r.BannedIngredients {
		fmt.Fprintf(&b, "Ingredient %s banned in %s: %s\n", ing.Name, strings.Join(ing.BannedIn, ", "), ing.Reason)
	}
	for _, rec := range r.Recalls {
		fmt.Fprintf(&b, "Recall %s (%s): %s\n", rec.ProductName, rec.Date, rec.Reason)
	}
	return strings.TrimSpace(b.String())
}
