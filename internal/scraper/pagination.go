package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Pagination describes the listing bounds advertised by the category page.
type Pagination struct {
	PageCount        int
	ExpectedProducts int
}

// DiscoverPagination reads the page count and the advertised product count
// from the region-scoped listing document.
func DiscoverPagination(doc *goquery.Document, sel Selectors) (Pagination, error) {
	control := doc.Find(sel.Pagination).First()
	if control.Length() == 0 {
		return Pagination{}, fmt.Errorf("%w: pagination control %q", ErrStructureMismatch, sel.Pagination)
	}

	pageCount := 0
	control.Children().Each(func(i int, item *goquery.Selection) {
		label := strings.TrimSpace(item.Text())
		if label == "" || label == "..." || label == "…" {
			return
		}
		// arrows and other navigation labels
		n, err := strconv.Atoi(label)
		if err != nil {
			return
		}
		if n > pageCount {
			pageCount = n
		}
	})
	if pageCount == 0 {
		return Pagination{}, fmt.Errorf("%w: pagination control has no page numbers", ErrStructureMismatch)
	}

	heading := doc.Find(sel.ProductCount).First()
	if heading.Length() == 0 {
		return Pagination{}, fmt.Errorf("%w: product count %q", ErrStructureMismatch, sel.ProductCount)
	}

	expected, err := leadingInt(heading.Text())
	if err != nil {
		return Pagination{}, fmt.Errorf("%w: product count: %w", ErrStructureMismatch, err)
	}

	return Pagination{PageCount: pageCount, ExpectedProducts: expected}, nil
}

// leadingInt parses the first word of text. Non-breaking spaces used as
// digit group separators are removed first.
func leadingInt(text string) (int, error) {
	cleaned := strings.NewReplacer("\u00a0", "", "\u202f", "").Replace(text)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty count text")
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", text, err)
	}
	return n, nil
}
