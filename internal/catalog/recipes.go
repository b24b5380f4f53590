package catalog

// Built-in retailer recipes. Selector lists mirror what each storefront
// rendered at the time of writing; keep the stable data-attribute selectors
// before the class-based ones.
func init() {
	Register(StoreRecipe{
		Domain: "footlocker.com",
		Locators: Locators{
			Name:         []string{"h1[data-testid='product-title']", "h1.ProductName-primary", "h1"},
			Price:        []string{"[data-testid='product-price'] .ProductPrice-final", ".ProductPrice-final", "[data-testid='product-price']"},
			SalePrice:    []string{".ProductPrice-sale", "[data-testid='product-price-sale']"},
			SKU:          []string{"[data-testid='product-sku']", ".ProductDetails-sku"},
			Images:       []string{"img[data-testid='product-image']", ".ProductGallery img"},
			Sizes:        []string{"[data-testid='size-selector'] button", ".SizeSelector button"},
			Availability: []string{"[data-testid='add-to-cart']", "button.Button--addToCart"},
		},
		NormalizePrice: NormalizeUSPrice,
		DecomposeTitle: SplitTitleLeadingBrand,
	})

	Register(StoreRecipe{
		Domain: "ssense.com",
		Locators: Locators{
			Name:         []string{"h1.pdp-product-title__name", "h2.pdp-product-title__name", "h1"},
			Price:        []string{".price__regular", "span[data-test='product-price']", ".pdp-price"},
			SalePrice:    []string{".price__sale", "span[data-test='product-sale-price']"},
			SKU:          []string{"[data-test='product-sku']"},
			Images:       []string{".pdp-images img", "picture img"},
			Sizes:        []string{"select#pdpSizeDropdown option", ".pdp-size-picker button"},
			Availability: []string{"button[data-test='add-to-bag']"},
		},
		NormalizePrice: NormalizeUSPrice,
		DecomposeTitle: SplitTitleDash,
	})

	Register(StoreRecipe{
		Domain: "endclothing.com",
		Locators: Locators{
			Name:         []string{"h1[data-test-id='ProductName']", "h1.product-name", "h1"},
			Price:        []string{"[data-test-id='ProductPrice']", "span.product-price", ".price"},
			SalePrice:    []string{"[data-test-id='ProductSalePrice']", "span.product-price--sale"},
			SKU:          []string{"[data-test-id='ProductSku']"},
			Images:       []string{"[data-test-id='ProductImage'] img", ".product-gallery img"},
			Sizes:        []string{"[data-test-id='SizeButton']", ".size-select button"},
			Availability: []string{"[data-test-id='AddToCart']"},
		},
		NormalizePrice: NormalizeUSPrice,
		DecomposeTitle: SplitTitleLeadingBrand,
	})

	Register(StoreRecipe{
		Domain: "zalando.de",
		Locators: Locators{
			Name:         []string{"h1[data-testid='product-name']", "span.EKabf7", "h1"},
			Price:        []string{"[data-testid='product-price']", "span.sDq_FX", ".price"},
			SalePrice:    []string{"[data-testid='product-sale-price']", "span.Km7l2y"},
			SKU:          []string{"[data-testid='article-number']"},
			Images:       []string{"[data-testid='product-gallery'] img"},
			Sizes:        []string{"[data-testid='size-picker'] button"},
			Availability: []string{"button[data-testid='add-to-cart']"},
		},
		NormalizePrice: NormalizeEUPrice,
		DecomposeTitle: SplitTitleDash,
	})
}
