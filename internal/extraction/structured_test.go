package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return u
}

func TestStructuredApplicable(t *testing.T) {
	s := NewStructuredStrategy(FetchOptions{}, 5, zerolog.Nop())

	cases := []struct {
		rawURL string
		want   bool
	}{
		{"https://kith.myshopify.com/products/hoodie", true},
		{"https://shop.example.com/products/air-max-1", true},
		{"https://shop.example.com/collections/sale/products/air-max-1", true},
		{"https://www.footlocker.com/product/nike-air-max/123.html", false},
		{"https://example.com/productslist", false},
	}

	for _, tc := range cases {
		if got := s.Applicable(mustParse(t, tc.rawURL)); got != tc.want {
			t.Errorf("Applicable(%q) = %v, want %v", tc.rawURL, got, tc.want)
		}
	}
}

func TestProductJSONURL(t *testing.T) {
	cases := []struct {
		rawURL string
		want   string
	}{
		{"https://shop.example.com/products/air-max-1", "https://shop.example.com/products/air-max-1.json"},
		{"https://shop.example.com/products/air-max-1/", "https://shop.example.com/products/air-max-1.json"},
		{"https://shop.example.com/products/air-max-1?variant=2#main", "https://shop.example.com/products/air-max-1.json"},
		{"https://shop.example.com/products/air-max-1.json", "https://shop.example.com/products/air-max-1.json"},
	}

	for _, tc := range cases {
		if got := productJSONURL(mustParse(t, tc.rawURL)); got != tc.want {
			t.Errorf("productJSONURL(%q) = %q, want %q", tc.rawURL, got, tc.want)
		}
	}
}

const saleProductJSON = `{
	"product": {
		"title": "Air Max 1",
		"vendor": "Nike",
		"product_type": "Sneakers",
		"tags": ["running", "retro"],
		"variants": [
			{"title": "US 8", "price": "120.00", "compare_at_price": "160.00", "sku": "AM1-8", "option1": "US 8", "available": true},
			{"title": "US 9", "price": "120.00", "compare_at_price": "160.00", "sku": "AM1-9", "option1": "US 9", "available": false}
		],
		"images": [
			{"src": "//cdn.example.com/am1-front.jpg"},
			{"src": "/images/am1-back.jpg"}
		]
	}
}`

func TestStructuredAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/air-max-1.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(saleProductJSON))
	}))
	defer server.Close()

	s := NewStructuredStrategy(FetchOptions{RetryAttempts: 1}, 5, zerolog.Nop())
	result := s.Attempt(context.Background(), mustParse(t, server.URL+"/products/air-max-1?variant=2"))

	if !result.Success {
		t.Fatalf("extraction failed: %s", result.Error)
	}
	if result.Strategy != StrategyStructured {
		t.Errorf("strategy = %q, want %q", result.Strategy, StrategyStructured)
	}
	if result.Brand != "Nike" || result.Model != "Air Max 1" {
		t.Errorf("brand/model = %q/%q", result.Brand, result.Model)
	}
	if !result.RetailPrice.Equal(decimal.NewFromInt(160)) {
		t.Errorf("retail price = %s, want 160", result.RetailPrice)
	}
	if result.SalePrice == nil || !result.SalePrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("sale price = %v, want 120", result.SalePrice)
	}
	if !result.EffectivePrice().Equal(decimal.NewFromInt(120)) {
		t.Errorf("effective price = %s, want 120", result.EffectivePrice())
	}
	if result.SKU != "AM1-8" {
		t.Errorf("sku = %q, want AM1-8", result.SKU)
	}
	if result.Category != CategoryShoes {
		t.Errorf("category = %q, want %q", result.Category, CategoryShoes)
	}
	if result.Colorway != "US 8" {
		t.Errorf("colorway = %q, want US 8", result.Colorway)
	}
	if len(result.Sizes) != 2 || result.Sizes[0] != "US 8" || result.Sizes[1] != "US 9" {
		t.Errorf("sizes = %v", result.Sizes)
	}
	if !result.InStock {
		t.Error("expected first variant in stock")
	}

	wantImages := []string{
		"https://cdn.example.com/am1-front.jpg",
	}
	if len(result.ImageURLs) != 2 {
		t.Fatalf("images = %v, want 2 entries", result.ImageURLs)
	}
	if result.ImageURLs[0] != wantImages[0] {
		t.Errorf("image[0] = %q, want %q", result.ImageURLs[0], wantImages[0])
	}
}

func TestStructuredAttemptNoSale(t *testing.T) {
	const body = `{"product": {"title": "Tech Fleece Hoodie", "vendor": "Nike",
		"variants": [{"title": "Default Title", "price": "110.00", "compare_at_price": null, "option1": "Default Title"}],
		"images": []}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	s := NewStructuredStrategy(FetchOptions{RetryAttempts: 1}, 5, zerolog.Nop())
	result := s.Attempt(context.Background(), mustParse(t, server.URL+"/products/tech-fleece"))

	if !result.Success {
		t.Fatalf("extraction failed: %s", result.Error)
	}
	if result.SalePrice != nil {
		t.Errorf("sale price = %v, want nil", result.SalePrice)
	}
	if !result.RetailPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("retail price = %s, want 110", result.RetailPrice)
	}
	if result.Colorway != "" {
		t.Errorf("colorway = %q, want empty for placeholder variant", result.Colorway)
	}
	if result.Category != CategoryTops {
		t.Errorf("category = %q, want %q", result.Category, CategoryTops)
	}
	if len(result.Sizes) != 0 {
		t.Errorf("sizes = %v, want none", result.Sizes)
	}
}

func TestStructuredAttemptFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, "not found"},
		{"no product field", http.StatusOK, `{"collection": {}}`},
		{"no variants", http.StatusOK, `{"product": {"title": "X", "variants": []}}`},
		{"bad price", http.StatusOK, `{"product": {"title": "X", "variants": [{"price": "free"}]}}`},
		{"not json", http.StatusOK, "<html></html>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			s := NewStructuredStrategy(FetchOptions{RetryAttempts: 1}, 5, zerolog.Nop())
			result := s.Attempt(context.Background(), mustParse(t, server.URL+"/products/x"))

			if result.Success {
				t.Fatal("expected failure")
			}
			if result.Strategy != StrategyStructured {
				t.Errorf("strategy = %q, want %q", result.Strategy, StrategyStructured)
			}
			if result.Error == "" {
				t.Error("expected error text")
			}
		})
	}
}

func TestNormalizeImageURL(t *testing.T) {
	page := mustParse(t, "https://shop.example.com/products/x")

	cases := []struct {
		src  string
		want string
	}{
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"/images/a.jpg", "https://shop.example.com/images/a.jpg"},
		{"http://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"   ", ""},
	}

	for _, tc := range cases {
		if got := normalizeImageURL(page, tc.src); got != tc.want {
			t.Errorf("normalizeImageURL(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}
