package scraper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

var (
	errNoElement   = errors.New("element not found")
	errWaitTimeout = errors.New("timeout waiting for element")
)

// fakeSession is an in-memory browsing session over canned pages.
type fakeSession struct {
	pages    map[string]string
	cities   []string
	missing  map[string]bool
	slowURLs map[string]bool

	current string
	calls   []string
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:    make(map[string]string),
		missing:  make(map[string]bool),
		slowURLs: make(map[string]bool),
	}
}

func (f *fakeSession) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSession) Navigate(url string) error {
	f.record("navigate %s", url)
	if _, ok := f.pages[url]; !ok {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", url)
	}
	f.current = url
	return nil
}

func (f *fakeSession) Click(selector string) error {
	f.record("click %s", selector)
	if f.missing[selector] {
		return fmt.Errorf("%s: %w", selector, errNoElement)
	}
	return nil
}

func (f *fakeSession) ScriptClick(selector string) error {
	f.record("script-click %s", selector)
	if f.missing[selector] {
		return fmt.Errorf("%s: %w", selector, errNoElement)
	}
	return nil
}

func (f *fakeSession) ScriptClickNth(selector string, index int) error {
	f.record("script-click %s %d", selector, index)
	if f.missing[selector] {
		return fmt.Errorf("%s: %w", selector, errNoElement)
	}
	return nil
}

func (f *fakeSession) Texts(selector string) ([]string, error) {
	f.record("texts %s", selector)
	if f.missing[selector] || len(f.cities) == 0 {
		return nil, fmt.Errorf("%s: %w", selector, errNoElement)
	}
	return f.cities, nil
}

func (f *fakeSession) WaitVisible(selector string, timeout time.Duration) error {
	f.record("wait %s", selector)
	if f.slowURLs[f.current] || f.missing[selector] {
		return fmt.Errorf("%s after %s: %w", selector, timeout, errWaitTimeout)
	}
	return nil
}

func (f *fakeSession) Hide(selector string) error {
	f.record("hide %s", selector)
	return nil
}

func (f *fakeSession) Content() (string, error) {
	f.record("content")
	return f.pages[f.current], nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

type attribute struct {
	label string
	value string
	// noLink renders the value as plain text instead of a link
	noLink bool
}

type productPage struct {
	article     string
	name        string
	oldPrice    string
	actualPrice string
	attrs       []attribute
	noAttrList  bool
}

func detailHTML(p productPage) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if p.article != "" {
		fmt.Fprintf(&b, `<p class="product-page-content__article">%s</p>`, p.article)
	}
	if p.name != "" {
		fmt.Fprintf(&b, `<h1 class="product-page-content__product-name"><span> %s </span></h1>`, p.name)
	}
	b.WriteString(`<div class="product-unit-prices__trigger">за 1 шт</div>`)
	if p.oldPrice != "" {
		fmt.Fprintf(&b, `<div class="product-unit-prices__old-wrapper"><span class="product-price__sum-rubles">%s</span></div>`, p.oldPrice)
	}
	if p.actualPrice != "" {
		fmt.Fprintf(&b, `<div class="product-unit-prices__actual-wrapper"><span class="product-price__sum-rubles">%s</span></div>`, p.actualPrice)
	}
	if !p.noAttrList {
		b.WriteString(`<ul class="product-attributes__list">`)
		for _, a := range p.attrs {
			b.WriteString(`<li class="product-attributes__list-item">`)
			fmt.Fprintf(&b, `<span class="product-attributes__list-item-name"><span class="product-attributes__list-item-name-text"> %s </span></span>`, a.label)
			if a.noLink {
				fmt.Fprintf(&b, `<span>%s</span>`, a.value)
			} else {
				fmt.Fprintf(&b, `<a class="product-attributes__list-item-link" href="/brand">%s</a>`, a.value)
			}
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func simpleProduct(id, name, brand string) productPage {
	return productPage{
		article:     "Артикул: " + id,
		name:        name,
		oldPrice:    "1&nbsp;200",
		actualPrice: "999",
		attrs: []attribute{
			{label: "Страна", value: "Италия"},
			{label: "Бренд", value: brand},
		},
	}
}

func listingHTML(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="catalog">`)
	for _, link := range links {
		fmt.Fprintf(&b, `<div class="product-card"><a class="product-card-photo__link" href="%s"><img src="x.jpg"></a></div>`, link)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func categoryHTML(pageLabels []string, count string) string {
	var b strings.Builder
	b.WriteString(`<html><body><span class="heading-products-count">`)
	b.WriteString(count)
	b.WriteString(`</span><ul class="v-pagination">`)
	for _, label := range pageLabels {
		fmt.Fprintf(&b, `<li><button>%s</button></li>`, label)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}
