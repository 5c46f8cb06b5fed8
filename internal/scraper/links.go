package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/ratelimit"
	"golang.org/x/sync/errgroup"
)

// LinkCollector fetches listing pages over plain HTTP. Listing pages need
// no script execution, so no browser session is involved.
type LinkCollector struct {
	client      *http.Client
	sel         Selectors
	limiter     ratelimit.RateLimiter
	concurrency int
	userAgent   string
	logger      *slog.Logger
}

type LinkCollectorOptions struct {
	Client      *http.Client
	Selectors   Selectors
	Limiter     ratelimit.RateLimiter
	Concurrency int
	UserAgent   string
}

func NewLinkCollector(opts LinkCollectorOptions, logger *slog.Logger) *LinkCollector {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewSimpleRateLimiter(0, 0)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &LinkCollector{
		client:      opts.Client,
		sel:         opts.Selectors,
		limiter:     opts.Limiter,
		concurrency: opts.Concurrency,
		userAgent:   opts.UserAgent,
		logger:      logger.With("component", "link_collector"),
	}
}

// Collect returns the detail links of pages 1..pageCount in page order, then
// card order. Any page failure fails the whole collection.
func (c *LinkCollector) Collect(ctx context.Context, catalog models.CatalogContext, pageCount int) ([]models.DetailLink, error) {
	pages := make([][]models.DetailLink, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := 1; i <= pageCount; i++ {
		page := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			links, err := c.CollectPage(gctx, catalog.ListingURL(page))
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}

			pages[page-1] = links
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var links []models.DetailLink
	for _, pageLinks := range pages {
		links = append(links, pageLinks...)
	}

	c.logger.Info("collected product links", "pages", pageCount, "links", len(links))
	return links, nil
}

// CollectPage fetches one listing page and returns its product card links.
func (c *LinkCollector) CollectPage(ctx context.Context, pageURL string) ([]models.DetailLink, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", ErrFetchFailure, pageURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("fetching listing page", "url", pageURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrFetchFailure, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: unexpected status %d", ErrFetchFailure, pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrFetchFailure, pageURL, err)
	}

	return ExtractLinks(doc, c.sel)
}

// ExtractLinks returns one detail link per product card in document order.
func ExtractLinks(doc *goquery.Document, sel Selectors) ([]models.DetailLink, error) {
	var links []models.DetailLink
	var err error

	doc.Find(sel.ProductCard).EachWithBreak(func(i int, card *goquery.Selection) bool {
		href, ok := card.Find(sel.ProductCardLink).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			err = fmt.Errorf("%w: product card %d has no %q link", ErrFetchFailure, i+1, sel.ProductCardLink)
			return false
		}

		links = append(links, models.DetailLink(href))
		return true
	})
	if err != nil {
		return nil, err
	}

	return links, nil
}

// TruncateLinks keeps at most expected links. It never pads.
func TruncateLinks(links []models.DetailLink, expected int) []models.DetailLink {
	if expected < 0 {
		expected = 0
	}
	if len(links) > expected {
		return links[:expected]
	}
	return links
}
