package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
)

// FieldBrand is the field name the brand attribute label maps to.
const FieldBrand = "brand"

// LabelTable maps attribute display labels to field names.
type LabelTable map[string]string

func DefaultLabels() LabelTable {
	return LabelTable{"Бренд": FieldBrand}
}

// Extractor reads product fields from a fully loaded detail document.
type Extractor struct {
	sel    Selectors
	labels LabelTable
}

func NewExtractor(sel Selectors, labels LabelTable) *Extractor {
	if labels == nil {
		labels = DefaultLabels()
	}
	return &Extractor{sel: sel, labels: labels}
}

// Attributes returns the values of the labelled attributes known to the
// label table, keyed by field name. A later item overrides an earlier one
// with the same field.
func (e *Extractor) Attributes(doc *goquery.Document) (map[string]string, error) {
	list := doc.Find(e.sel.AttributeList).First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("%w: attribute list %q", ErrFieldMissing, e.sel.AttributeList)
	}

	attrs := make(map[string]string)
	var err error
	list.Find(e.sel.AttributeItem).EachWithBreak(func(i int, item *goquery.Selection) bool {
		label := strings.TrimSpace(item.Find(e.sel.AttributeName).First().Text())
		field, ok := e.labels[label]
		if !ok {
			return true
		}

		value := item.Find(e.sel.AttributeValue).First()
		if value.Length() == 0 {
			err = fmt.Errorf("%w: value of attribute %q", ErrFieldMissing, label)
			return false
		}

		attrs[field] = strings.TrimSpace(value.Text())
		return true
	})
	if err != nil {
		return nil, err
	}

	return attrs, nil
}

// Brand returns the brand attribute or models.NoBrand.
func (e *Extractor) Brand(doc *goquery.Document) (string, error) {
	attrs, err := e.Attributes(doc)
	if err != nil {
		return "", err
	}

	if brand, ok := attrs[FieldBrand]; ok {
		return brand, nil
	}
	return models.NoBrand, nil
}

// Prices returns the regular (old) and the actual price. Without an old
// price both are the actual price.
func (e *Extractor) Prices(doc *goquery.Document) (old, actual int, err error) {
	actualEl := doc.Find(e.sel.ActualPrice).First()
	if actualEl.Length() == 0 {
		return 0, 0, fmt.Errorf("%w: actual price %q", ErrFieldMissing, e.sel.ActualPrice)
	}

	actual, err = parsePrice(actualEl.Text())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: actual price: %w", ErrFieldMissing, err)
	}

	oldEl := doc.Find(e.sel.OldPrice).First()
	if oldEl.Length() == 0 {
		return actual, actual, nil
	}

	old, err = parsePrice(oldEl.Text())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: old price: %w", ErrFieldMissing, err)
	}

	return old, actual, nil
}

// ArticleID returns the second whitespace-separated token of the article line.
func (e *Extractor) ArticleID(doc *goquery.Document) (string, error) {
	el := doc.Find(e.sel.Article).First()
	if el.Length() == 0 {
		return "", fmt.Errorf("%w: article %q", ErrFieldMissing, e.sel.Article)
	}

	tokens := strings.Fields(el.Text())
	if len(tokens) < 2 {
		return "", fmt.Errorf("%w: article text %q has no id", ErrFieldMissing, el.Text())
	}
	return tokens[1], nil
}

func (e *Extractor) Name(doc *goquery.Document) (string, error) {
	el := doc.Find(e.sel.ProductName).First()
	if el.Length() == 0 {
		return "", fmt.Errorf("%w: product name %q", ErrFieldMissing, e.sel.ProductName)
	}
	return strings.TrimSpace(el.Text()), nil
}

// Record extracts every field of the product served at url.
func (e *Extractor) Record(doc *goquery.Document, url string) (models.ProductRecord, error) {
	id, err := e.ArticleID(doc)
	if err != nil {
		return models.ProductRecord{}, err
	}

	name, err := e.Name(doc)
	if err != nil {
		return models.ProductRecord{}, err
	}

	brand, err := e.Brand(doc)
	if err != nil {
		return models.ProductRecord{}, err
	}

	regular, discount, err := e.Prices(doc)
	if err != nil {
		return models.ProductRecord{}, err
	}

	return models.ProductRecord{
		ID:            id,
		Name:          name,
		URL:           url,
		RegularPrice:  regular,
		DiscountPrice: discount,
		Brand:         brand,
	}, nil
}

// parsePrice parses whole currency units, dropping non-breaking space
// thousands separators.
func parsePrice(text string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "\u00a0", "")
	price, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}
	return price, nil
}
