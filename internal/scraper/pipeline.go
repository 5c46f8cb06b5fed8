package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
)

type Options struct {
	Selectors       Selectors
	Labels          LabelTable
	Timings         Timings
	DuplicatePolicy DuplicatePolicy
}

func DefaultOptions() Options {
	return Options{
		Selectors:       DefaultSelectors(),
		Labels:          DefaultLabels(),
		Timings:         DefaultTimings(),
		DuplicatePolicy: LastWriteWins,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	Catalog    models.Catalog
	Pagination Pagination
	Stats      Stats
	StartedAt  time.Time
	Duration   time.Duration
}

// Pipeline runs one region-scoped extraction of one category.
type Pipeline struct {
	catalog models.CatalogContext
	opener  SessionOpener
	links   *LinkCollector
	opts    Options
	logger  *slog.Logger
}

func NewPipeline(catalog models.CatalogContext, opener SessionOpener, links *LinkCollector, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		opener:  opener,
		links:   links,
		opts:    opts,
		logger:  logger.With("component", "pipeline"),
	}
}

// Run executes the region selection, pagination discovery, link collection
// and detail extraction stages in order. The browsing session is opened at
// the start and closed on every return path.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	sess, err := p.opener.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open browsing session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.logger.Warn("failed to close browsing session", "error", err)
		}
	}()

	categoryURL := p.catalog.CategoryURL()
	p.logger.Info("starting catalog run",
		"category", categoryURL,
		"region", p.catalog.Region.Name)

	if err := sess.Navigate(categoryURL); err != nil {
		return nil, fmt.Errorf("%w: load category page %s: %w", ErrFetchFailure, categoryURL, err)
	}

	region := NewRegionSelector(p.opts.Selectors, p.catalog.Region, p.opts.Timings.RegionSettle, p.logger)
	if err := region.Select(ctx, sess); err != nil {
		return nil, err
	}

	listing, err := p.listingDocument(sess)
	if err != nil {
		return nil, err
	}

	pagination, err := DiscoverPagination(listing, p.opts.Selectors)
	if err != nil {
		return nil, err
	}
	p.logger.Info("discovered pagination",
		"pages", pagination.PageCount,
		"expected_products", pagination.ExpectedProducts)

	links, err := p.links.Collect(ctx, p.catalog, pagination.PageCount)
	if err != nil {
		return nil, err
	}

	kept := TruncateLinks(links, pagination.ExpectedProducts)
	switch {
	case len(kept) < len(links):
		p.logger.Warn("dropping links beyond advertised product count",
			"collected", len(links),
			"expected", pagination.ExpectedProducts)
	case len(links) < pagination.ExpectedProducts:
		p.logger.Warn("collected fewer links than advertised",
			"collected", len(links),
			"expected", pagination.ExpectedProducts)
	}

	loader := NewDetailLoader(p.opts.Selectors, p.opts.Timings, p.logger)
	agg := NewAggregator(NewExtractor(p.opts.Selectors, p.opts.Labels), p.opts.DuplicatePolicy, p.logger)

	for i, link := range kept {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := loader.Load(ctx, sess, p.catalog.ProductURL(link))
		// a cancelled wait shows up as a failed load
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := agg.Add(res); err != nil {
			return nil, err
		}

		p.logger.Debug("processed product", "index", i+1, "total", len(kept), "url", res.URL, "skipped", res.Failed())
	}

	catalog := agg.Catalog()
	for _, id := range catalog.Anomalies() {
		rec := catalog[id]
		p.logger.Warn("discount price above regular price",
			"product_id", id,
			"regular_price", rec.RegularPrice,
			"discount_price", rec.DiscountPrice)
	}

	stats := agg.Stats()
	p.logger.Info("catalog run completed",
		"products", len(catalog),
		"links", stats.Links,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"anomalies", stats.Anomalies)

	return &Result{
		Catalog:    catalog,
		Pagination: pagination,
		Stats:      stats,
		StartedAt:  started,
		Duration:   time.Since(started),
	}, nil
}

func (p *Pipeline) listingDocument(sess Session) (*goquery.Document, error) {
	html, err := sess.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: read listing page: %w", ErrStructureMismatch, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse listing page: %w", ErrStructureMismatch, err)
	}
	return doc, nil
}
