package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dropwatch/internal/resilience"
)

// StructuredStrategy targets storefront platforms that expose a product-data
// JSON endpoint next to the listing page (the Shopify convention).
type StructuredStrategy struct {
	opts   FetchOptions
	client *http.Client
	logger zerolog.Logger

	maxImages int
}

// NewStructuredStrategy constructs the strategy.
func NewStructuredStrategy(opts FetchOptions, maxImages int, logger zerolog.Logger) *StructuredStrategy {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxImages <= 0 {
		maxImages = 5
	}
	return &StructuredStrategy{
		opts:      opts,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "structured_strategy").Logger(),
		maxImages: maxImages,
	}
}

// Applicable reports whether the URL matches a platform convention that
// indicates a structured endpoint exists.
func (s *StructuredStrategy) Applicable(u *url.URL) bool {
	if strings.Contains(strings.ToLower(u.Hostname()), "myshopify.com") {
		return true
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if segment == "products" {
			return true
		}
	}
	return false
}

// Attempt fetches and parses the structured endpoint. Any non-2xx response or
// missing product payload is a strategy failure, never a fatal fault.
func (s *StructuredStrategy) Attempt(ctx context.Context, u *url.URL) Result {
	endpoint := productJSONURL(u)

	var payload []byte
	var status int

	retryOpts := resilience.RetryOptions{Attempts: s.opts.RetryAttempts, InitialDelay: s.opts.RetryDelay}
	err := resilience.Retry(ctx, "structured fetch", retryOpts, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			return reqErr
		}
		if ua := s.opts.UserAgent; ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		req.Header.Set("Accept", "application/json")

		resp, doErr := s.client.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		body, readErr := readBody(resp)
		if readErr != nil {
			return readErr
		}
		payload = body
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return failure(StrategyStructured, fmt.Sprintf("structured endpoint fetch: %v", err))
	}
	if status < 200 || status >= 300 {
		return failure(StrategyStructured, fmt.Sprintf("structured endpoint returned status %d", status))
	}

	var doc productEnvelope
	if unmarshalErr := json.Unmarshal(payload, &doc); unmarshalErr != nil {
		return failure(StrategyStructured, fmt.Sprintf("parse structured payload: %v", unmarshalErr))
	}
	if doc.Product == nil {
		return failure(StrategyStructured, "structured payload has no product field")
	}

	return s.resultFromProduct(u, doc.Product)
}

func (s *StructuredStrategy) resultFromProduct(u *url.URL, p *platformProduct) Result {
	if len(p.Variants) == 0 {
		return failure(StrategyStructured, "structured payload has no variants")
	}
	variant := p.Variants[0]

	price, err := decimal.NewFromString(variant.Price)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return failure(StrategyStructured, fmt.Sprintf("structured variant price %q is not a positive number", variant.Price))
	}

	result := Result{
		Brand:    strings.TrimSpace(p.Vendor),
		Model:    strings.TrimSpace(p.Title),
		SKU:      variant.SKU,
		Category: guessCategory(p.Title, p.ProductType, p.tagText()),
		InStock:  variant.Available == nil || *variant.Available,
		Success:  true,
		Strategy: StrategyStructured,
	}

	// compare_at above price means the listing is on sale.
	if variant.CompareAtPrice != nil {
		if compareAt, convErr := decimal.NewFromString(*variant.CompareAtPrice); convErr == nil && compareAt.GreaterThan(price) {
			result.RetailPrice = compareAt
			sale := price
			result.SalePrice = &sale
		}
	}
	if result.RetailPrice.IsZero() {
		result.RetailPrice = price
	}

	result.Colorway = variant.colorway()

	for _, image := range p.Images {
		if len(result.ImageURLs) >= s.maxImages {
			break
		}
		if normalized := normalizeImageURL(u, image.Src); normalized != "" {
			result.ImageURLs = append(result.ImageURLs, normalized)
		}
	}

	for _, v := range p.Variants {
		if size := v.size(); size != "" {
			result.Sizes = append(result.Sizes, size)
		}
	}

	return result
}

// productJSONURL derives the structured endpoint from the listing URL by
// dropping query/fragment and appending ".json" to the product path.
func productJSONURL(u *url.URL) string {
	endpoint := *u
	endpoint.RawQuery = ""
	endpoint.Fragment = ""
	endpoint.Path = strings.TrimRight(endpoint.Path, "/")
	if !strings.HasSuffix(endpoint.Path, ".json") {
		endpoint.Path += ".json"
	}
	return endpoint.String()
}

// normalizeImageURL resolves protocol-relative and relative sources to
// absolute HTTPS URLs.
func normalizeImageURL(page *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	parsed, err := url.Parse(src)
	if err != nil {
		return ""
	}
	resolved := page.ResolveReference(parsed)
	if resolved.Scheme == "" || resolved.Scheme == "http" {
		resolved.Scheme = "https"
	}
	return resolved.String()
}

type productEnvelope struct {
	Product *platformProduct `json:"product"`
}

type platformProduct struct {
	Title       string            `json:"title"`
	Vendor      string            `json:"vendor"`
	ProductType string            `json:"product_type"`
	Tags        json.RawMessage   `json:"tags"`
	Variants    []platformVariant `json:"variants"`
	Images      []struct {
		Src string `json:"src"`
	} `json:"images"`
}

// tagText tolerates both wire shapes for tags: a comma-joined string and an array.
func (p *platformProduct) tagText() string {
	if len(p.Tags) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(p.Tags, &asString); err == nil {
		return asString
	}
	var asList []string
	if err := json.Unmarshal(p.Tags, &asList); err == nil {
		return strings.Join(asList, " ")
	}
	return ""
}

type platformVariant struct {
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	CompareAtPrice *string `json:"compare_at_price"`
	SKU            string  `json:"sku"`
	Option1        *string `json:"option1"`
	Option2        *string `json:"option2"`
	Option3        *string `json:"option3"`
	Available      *bool   `json:"available"`
}

// colorway prefers explicit option values over the variant title, and ignores
// the placeholder title single-variant products carry.
func (v platformVariant) colorway() string {
	var options []string
	for _, opt := range []*string{v.Option1, v.Option2, v.Option3} {
		if opt != nil && strings.TrimSpace(*opt) != "" && *opt != "Default Title" {
			options = append(options, strings.TrimSpace(*opt))
		}
	}
	if len(options) > 0 {
		return strings.Join(options, " / ")
	}
	if v.Title != "" && v.Title != "Default Title" {
		return v.Title
	}
	return ""
}

func (v platformVariant) size() string {
	if v.Option1 != nil && *v.Option1 != "" && *v.Option1 != "Default Title" {
		return *v.Option1
	}
	return ""
}
