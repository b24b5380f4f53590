package extraction

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"dropwatch/internal/catalog"
)

// LocatorStrategy applies a store recipe's field locators to already-fetched
// HTML. It never fetches; the chain owns the page request.
type LocatorStrategy struct {
	logger    zerolog.Logger
	maxImages int
}

// NewLocatorStrategy constructs the strategy.
func NewLocatorStrategy(maxImages int, logger zerolog.Logger) *LocatorStrategy {
	if maxImages <= 0 {
		maxImages = 5
	}
	return &LocatorStrategy{
		logger:    logger.With().Str("component", "locator_strategy").Logger(),
		maxImages: maxImages,
	}
}

// Parse extracts product data from HTML using the recipe. A missing name or a
// price that fails to normalize is a strategy failure.
func (l *LocatorStrategy) Parse(html string, recipe catalog.StoreRecipe) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return failure(StrategyLocator, fmt.Sprintf("parse html: %v", err))
	}

	name := firstText(doc, recipe.Locators.Name)
	if name == "" {
		return failure(StrategyLocator, fmt.Sprintf("no product name found on %s page", recipe.Domain))
	}

	priceText := firstText(doc, recipe.Locators.Price)
	if priceText == "" {
		return failure(StrategyLocator, fmt.Sprintf("no price text found on %s page", recipe.Domain))
	}
	price, err := recipe.NormalizePrice(priceText)
	if err != nil {
		return failure(StrategyLocator, fmt.Sprintf("normalize price on %s page: %v", recipe.Domain, err))
	}

	brand, model, colorway := recipe.DecomposeTitle(name)

	result := Result{
		Brand:    brand,
		Model:    model,
		Colorway: colorway,
		SKU:      firstText(doc, recipe.Locators.SKU),
		Category: guessCategory(name),
		Success:  true,
		Strategy: StrategyLocator,
	}

	if saleText := firstText(doc, recipe.Locators.SalePrice); saleText != "" {
		if sale, saleErr := recipe.NormalizePrice(saleText); saleErr == nil && sale.LessThan(price) {
			result.SalePrice = &sale
		}
	}
	result.RetailPrice = price

	result.ImageURLs = collectAttrs(doc, recipe.Locators.Images, "src", l.maxImages)
	result.Sizes = collectTexts(doc, recipe.Locators.Sizes, 0)

	// Availability is judged by the presence of the add-to-cart control; a
	// recipe without availability locators assumes in stock.
	result.InStock = len(recipe.Locators.Availability) == 0 || exists(doc, recipe.Locators.Availability)

	return result
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func collectTexts(doc *goquery.Document, selectors []string, limit int) []string {
	var values []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if limit > 0 && len(values) >= limit {
				return
			}
			if text := strings.TrimSpace(sel.Text()); text != "" {
				values = append(values, text)
			}
		})
		if len(values) > 0 {
			break
		}
	}
	return values
}

func collectAttrs(doc *goquery.Document, selectors []string, attr string, limit int) []string {
	var values []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if limit > 0 && len(values) >= limit {
				return
			}
			if value := strings.TrimSpace(sel.AttrOr(attr, "")); value != "" {
				values = append(values, value)
			}
		})
		if len(values) > 0 {
			break
		}
	}
	return values
}

func exists(doc *goquery.Document, selectors []string) bool {
	for _, selector := range selectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}
