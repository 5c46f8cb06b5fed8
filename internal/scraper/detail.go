package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DetailResult is the outcome of loading one product page: either a parsed
// document or the error that made the loader give up on it.
type DetailResult struct {
	URL string
	Doc *goquery.Document
	Err error
}

// Failed reports whether the product has to be skipped.
func (r DetailResult) Failed() bool {
	return r.Doc == nil
}

// DetailLoader materializes the script-rendered parts of a product page in
// the shared session.
type DetailLoader struct {
	sel     Selectors
	timings Timings
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

func NewDetailLoader(sel Selectors, timings Timings, logger *slog.Logger) *DetailLoader {
	return &DetailLoader{
		sel:     sel,
		timings: timings,
		sleep:   sleepContext,
		logger:  logger.With("component", "detail_loader"),
	}
}

// Load never returns an error: every failure becomes a failed result so that
// a single broken product does not stop the run. There is no retry.
func (l *DetailLoader) Load(ctx context.Context, sess Session, url string) DetailResult {
	doc, err := l.load(ctx, sess, url)
	if err != nil {
		l.logger.Debug("skipping product", "url", url, "error", err)
		return DetailResult{URL: url, Err: err}
	}
	return DetailResult{URL: url, Doc: doc}
}

func (l *DetailLoader) load(ctx context.Context, sess Session, url string) (*goquery.Document, error) {
	if err := sess.Navigate(url); err != nil {
		return nil, err
	}

	// price block is filled by script after the shell has loaded
	if err := sess.WaitVisible(l.sel.PriceTrigger, l.timings.PriceWait); err != nil {
		return nil, err
	}

	// the overlay intercepts clicks on the attribute buttons
	if err := sess.Hide(l.sel.BottomOverlay); err != nil {
		return nil, err
	}

	if err := sess.Click(l.sel.FullAttributesButton); err != nil {
		return nil, err
	}

	if err := sess.Click(l.sel.AllAttributesButton); err != nil {
		return nil, err
	}

	if err := l.sleep(ctx, l.timings.DetailSettle); err != nil {
		return nil, err
	}

	html, err := sess.Content()
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
