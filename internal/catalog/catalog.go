// Package catalog maps retailer domains to extraction recipes. Recipes are
// configuration, not logic: adding a retailer means registering selectors and
// picking a normalizer, never touching strategy code.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Locators name CSS selector candidates per product field, tried in order
// until one yields text. Retail layouts rot; multiple candidates buy time.
type Locators struct {
	Name         []string
	Price        []string
	SalePrice    []string
	SKU          []string
	Images       []string
	Sizes        []string
	Availability []string
}

// PriceNormalizer turns locale-formatted price text into a numeric value.
type PriceNormalizer func(text string) (decimal.Decimal, error)

// TitleRule splits a combined listing title into brand, model, and colorway.
type TitleRule func(title string) (brand, model, colorway string)

// StoreRecipe bundles everything the locator strategy needs for one retailer.
type StoreRecipe struct {
	Domain         string
	Locators       Locators
	NormalizePrice PriceNormalizer
	DecomposeTitle TitleRule
}

var registry = map[string]StoreRecipe{}

// Register adds or replaces the recipe for a domain.
func Register(recipe StoreRecipe) {
	registry[strings.ToLower(recipe.Domain)] = recipe
}

// Lookup resolves a hostname to a recipe. A leading "www." is ignored and
// subdomains fall back to their registered parent domain.
func Lookup(host string) (StoreRecipe, bool) {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	if recipe, ok := registry[host]; ok {
		return recipe, true
	}
	for domain, recipe := range registry {
		if strings.HasSuffix(host, "."+domain) {
			return recipe, true
		}
	}
	return StoreRecipe{}, false
}

var nonPriceChars = regexp.MustCompile(`[^0-9.,]`)

// NormalizeUSPrice parses "$1,299.99"-shaped text.
func NormalizeUSPrice(text string) (decimal.Decimal, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	return parsePositive(text, cleaned)
}

// NormalizeEUPrice parses "1.299,99 €"-shaped text.
func NormalizeEUPrice(text string) (decimal.Decimal, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return parsePositive(text, cleaned)
}

func parsePositive(original, cleaned string) (decimal.Decimal, error) {
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no digits in price text %q", original)
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price text %q: %w", original, err)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("price text %q normalized to non-positive value", original)
	}
	return price, nil
}

// SplitTitleDash handles "Brand - Model - Colorway" titles. Missing segments
// stay empty rather than guessing.
func SplitTitleDash(title string) (string, string, string) {
	parts := strings.Split(title, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return "", parts[0], ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], parts[1], strings.Join(parts[2:], " - ")
	}
}

var quotedColorway = regexp.MustCompile(`['"“”‘’]([^'"“”‘’]+)['"“”‘’]\s*$`)

// SplitTitleLeadingBrand handles "Brand Model Name 'Colorway'" titles: first
// word is the brand, a trailing quoted run is the colorway, the rest is the model.
func SplitTitleLeadingBrand(title string) (string, string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", ""
	}

	colorway := ""
	if match := quotedColorway.FindStringSubmatch(title); match != nil {
		colorway = strings.TrimSpace(match[1])
		title = strings.TrimSpace(quotedColorway.ReplaceAllString(title, ""))
	}

	brand, model, found := strings.Cut(title, " ")
	if !found {
		return "", title, colorway
	}
	return brand, strings.TrimSpace(model), colorway
}
