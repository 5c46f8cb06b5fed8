package models

import (
	"fmt"
	"sort"
	"strings"
)

// NoBrand is stored when a product has no brand attribute.
const NoBrand = "-"

// DetailLink is the site-relative path of a product detail page.
type DetailLink string

// CatalogContext holds the run-scoped catalog settings. It is created once at
// startup and never modified.
type CatalogContext struct {
	Origin       string
	CategoryPath string
	Region       Region
}

// Region identifies the delivery region the session is scoped to.
type Region struct {
	// Name is the city label shown in the region picker.
	Name string
	// Label is used in the output file name.
	Label string
	// Index is the position in the city list, used only when Name is empty.
	Index int
}

func NewCatalogContext(origin, categoryPath string, region Region) CatalogContext {
	return CatalogContext{
		Origin:       strings.TrimRight(origin, "/"),
		CategoryPath: strings.Trim(categoryPath, "/"),
		Region:       region,
	}
}

// CategoryURL returns the in-stock listing URL of the category.
func (c CatalogContext) CategoryURL() string {
	return fmt.Sprintf("%s/category/%s?in_stock=1", c.Origin, c.CategoryPath)
}

// ListingURL returns the URL of listing page n (1-based).
func (c CatalogContext) ListingURL(page int) string {
	return fmt.Sprintf("%s&page=%d", c.CategoryURL(), page)
}

// ProductURL resolves a detail link against the origin.
func (c CatalogContext) ProductURL(link DetailLink) string {
	if strings.HasPrefix(string(link), "http://") || strings.HasPrefix(string(link), "https://") {
		return string(link)
	}
	return c.Origin + string(link)
}

// ProductRecord is a single catalog entry. The id is the catalog key and is
// not part of the serialized record.
type ProductRecord struct {
	ID            string `json:"-"`
	Name          string `json:"product_name"`
	URL           string `json:"product_url"`
	RegularPrice  int    `json:"product_regular_price"`
	DiscountPrice int    `json:"product_discount_price"`
	Brand         string `json:"product_brand"`
}

// HasDiscount reports whether the record carries a lower discounted price.
func (p *ProductRecord) HasDiscount() bool {
	return p.DiscountPrice < p.RegularPrice
}

// IsAnomalous reports a discounted price above the regular price.
func (p *ProductRecord) IsAnomalous() bool {
	return p.DiscountPrice > p.RegularPrice
}

// Catalog maps product ids to records.
type Catalog map[string]ProductRecord

func NewCatalog() Catalog {
	return make(Catalog)
}

// Put stores the record under its id and reports whether an entry with the
// same id was replaced.
func (c Catalog) Put(rec ProductRecord) bool {
	_, exists := c[rec.ID]
	c[rec.ID] = rec
	return exists
}

// IDs returns the product ids in ascending order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Anomalies returns the ids whose discount price exceeds the regular price.
func (c Catalog) Anomalies() []string {
	var ids []string
	for _, id := range c.IDs() {
		rec := c[id]
		if rec.IsAnomalous() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Records returns the records ordered by id. Ids are filled from the keys.
func (c Catalog) Records() []ProductRecord {
	recs := make([]ProductRecord, 0, len(c))
	for _, id := range c.IDs() {
		rec := c[id]
		rec.ID = id
		recs = append(recs, rec)
	}
	return recs
}
