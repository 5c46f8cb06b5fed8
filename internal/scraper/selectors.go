package scraper

// Selectors lists the CSS selectors of every storefront control the pipeline
// touches.
type Selectors struct {
	// region picker
	RegionPicker   string
	DeliveryTab    string
	CityListOpener string
	CityItem       string
	RegionApply    string

	// listing
	Pagination      string
	ProductCount    string
	ProductCard     string
	ProductCardLink string

	// detail page interaction
	PriceTrigger         string
	BottomOverlay        string
	FullAttributesButton string
	AllAttributesButton  string

	// detail page fields
	AttributeList  string
	AttributeItem  string
	AttributeName  string
	AttributeValue string
	Article        string
	ProductName    string
	ActualPrice    string
	OldPrice       string
}

func DefaultSelectors() Selectors {
	return Selectors{
		RegionPicker:   ".header-address__receive-address",
		DeliveryTab:    `div[class="delivery__tab"]`,
		CityListOpener: ".pickup-content__city .active-blue-text",
		CityItem:       ".modal-city .city-item",
		RegionApply:    ".delivery__btn-apply",

		Pagination:      "ul.v-pagination",
		ProductCount:    "span.heading-products-count",
		ProductCard:     "div.product-card",
		ProductCardLink: "a.product-card-photo__link",

		PriceTrigger:         ".product-unit-prices__trigger",
		BottomOverlay:        ".fixed-bottom-mobile-block",
		FullAttributesButton: ".product-page-content__button-to-full-attributes",
		AllAttributesButton:  ".product-page-content__button-show-all-attributes",

		AttributeList:  "ul.product-attributes__list",
		AttributeItem:  "li.product-attributes__list-item",
		AttributeName:  "span.product-attributes__list-item-name span.product-attributes__list-item-name-text",
		AttributeValue: "a.product-attributes__list-item-link",
		Article:        "p.product-page-content__article",
		ProductName:    "h1.product-page-content__product-name span",
		ActualPrice:    "div.product-unit-prices__actual-wrapper span.product-price__sum-rubles",
		OldPrice:       "div.product-unit-prices__old-wrapper span.product-price__sum-rubles",
	}
}
