package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		host   string
		domain string
		found  bool
	}{
		{"footlocker.com", "footlocker.com", true},
		{"www.footlocker.com", "footlocker.com", true},
		{"WWW.SSENSE.COM", "ssense.com", true},
		{"m.zalando.de", "zalando.de", true},
		{"shop.endclothing.com", "endclothing.com", true},
		{"notfootlocker.com", "", false},
		{"example.com", "", false},
	}

	for _, tc := range cases {
		recipe, ok := Lookup(tc.host)
		if ok != tc.found {
			t.Errorf("Lookup(%q) found = %v, want %v", tc.host, ok, tc.found)
			continue
		}
		if ok && recipe.Domain != tc.domain {
			t.Errorf("Lookup(%q) domain = %q, want %q", tc.host, recipe.Domain, tc.domain)
		}
	}
}

func TestNormalizeUSPrice(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"$1,299.99", "1299.99"},
		{"$89.50", "89.50"},
		{"USD 250", "250"},
		{"  $75.00  ", "75.00"},
	}

	for _, tc := range cases {
		got, err := NormalizeUSPrice(tc.text)
		if err != nil {
			t.Errorf("NormalizeUSPrice(%q): %v", tc.text, err)
			continue
		}
		if want, _ := decimal.NewFromString(tc.want); !got.Equal(want) {
			t.Errorf("NormalizeUSPrice(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestNormalizeEUPrice(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"1.299,99 €", "1299.99"},
		{"89,50 €", "89.50"},
		{"EUR 250", "250"},
	}

	for _, tc := range cases {
		got, err := NormalizeEUPrice(tc.text)
		if err != nil {
			t.Errorf("NormalizeEUPrice(%q): %v", tc.text, err)
			continue
		}
		if want, _ := decimal.NewFromString(tc.want); !got.Equal(want) {
			t.Errorf("NormalizeEUPrice(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestNormalizePriceRejectsGarbage(t *testing.T) {
	for _, text := range []string{"", "Sold Out", "$0.00", "-5"} {
		if _, err := NormalizeUSPrice(text); err == nil {
			t.Errorf("NormalizeUSPrice(%q): expected error", text)
		}
	}
}

func TestSplitTitleDash(t *testing.T) {
	cases := []struct {
		title                  string
		brand, model, colorway string
	}{
		{"Nike - Air Max 1 - White/Red", "Nike", "Air Max 1", "White/Red"},
		{"Nike - Air Max 1", "Nike", "Air Max 1", ""},
		{"Air Max 1", "", "Air Max 1", ""},
		{"Acne Studios - Face Hoodie - Oatmeal - Melange", "Acne Studios", "Face Hoodie", "Oatmeal - Melange"},
	}

	for _, tc := range cases {
		brand, model, colorway := SplitTitleDash(tc.title)
		if brand != tc.brand || model != tc.model || colorway != tc.colorway {
			t.Errorf("SplitTitleDash(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.title, brand, model, colorway, tc.brand, tc.model, tc.colorway)
		}
	}
}

func TestSplitTitleLeadingBrand(t *testing.T) {
	cases := []struct {
		title                  string
		brand, model, colorway string
	}{
		{"Nike Air Max 1 'Anniversary Red'", "Nike", "Air Max 1", "Anniversary Red"},
		{`Jordan 1 Retro High "Chicago"`, "Jordan", "1 Retro High", "Chicago"},
		{"Nike Dunk Low", "Nike", "Dunk Low", ""},
		{"Dunk", "", "Dunk", ""},
		{"", "", "", ""},
	}

	for _, tc := range cases {
		brand, model, colorway := SplitTitleLeadingBrand(tc.title)
		if brand != tc.brand || model != tc.model || colorway != tc.colorway {
			t.Errorf("SplitTitleLeadingBrand(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.title, brand, model, colorway, tc.brand, tc.model, tc.colorway)
		}
	}
}
