// Package extraction turns a retailer product URL into normalized product data
// by trying strategies of decreasing specificity and increasing cost.
package extraction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy tags recorded on results for logging and metrics. Callers must not
// branch on these beyond diagnostics.
const (
	StrategyStructured = "structured"
	StrategyLocator    = "locator"
	StrategyAI         = "ai"
)

// Category vocabulary for extracted products.
const (
	CategoryShoes       = "shoes"
	CategoryTops        = "tops"
	CategoryBottoms     = "bottoms"
	CategoryOuterwear   = "outerwear"
	CategoryAccessories = "accessories"
)

// Result is the strategy-agnostic output of an extraction attempt.
type Result struct {
	Brand       string
	Model       string
	Colorway    string
	SKU         string
	Category    string
	RetailPrice decimal.Decimal
	SalePrice   *decimal.Decimal
	ImageURLs   []string
	Sizes       []string
	InStock     bool
	Success     bool
	Error       string
	Strategy    string
}

// EffectivePrice is the price a buyer would pay right now.
func (r Result) EffectivePrice() decimal.Decimal {
	if r.SalePrice != nil {
		return *r.SalePrice
	}
	return r.RetailPrice
}

func failure(strategy, errText string) Result {
	return Result{Strategy: strategy, Error: errText}
}

var categoryKeywords = map[string][]string{
	CategoryShoes:     {"shoe", "sneaker", "trainer", "boot", "runner", "loafer", "sandal", "slide", "dunk", "jordan"},
	CategoryTops:      {"shirt", "tee", "t-shirt", "hoodie", "sweatshirt", "sweater", "polo", "tank", "crewneck", "longsleeve"},
	CategoryBottoms:   {"pant", "trouser", "jean", "denim", "short", "jogger", "sweatpant", "cargo", "skirt"},
	CategoryOuterwear: {"jacket", "coat", "parka", "windbreaker", "vest", "anorak", "puffer", "fleece"},
}

// guessCategory keyword-matches free text against the category vocabulary,
// defaulting to accessories.
func guessCategory(texts ...string) string {
	haystack := strings.ToLower(strings.Join(texts, " "))
	for _, category := range []string{CategoryShoes, CategoryOuterwear, CategoryTops, CategoryBottoms} {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(haystack, keyword) {
				return category
			}
		}
	}
	return CategoryAccessories
}
