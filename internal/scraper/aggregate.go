package scraper

import (
	"fmt"
	"log/slog"

	"github.com/maltedev/catalog-scraper/internal/models"
)

// Stats counts what happened to the links of a run.
type Stats struct {
	Links      int `json:"links"`
	Extracted  int `json:"extracted"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Anomalies  int `json:"anomalies"`
}

// Aggregator builds the catalog from loaded detail pages.
type Aggregator struct {
	extractor *Extractor
	policy    DuplicatePolicy
	catalog   models.Catalog
	stats     Stats
	logger    *slog.Logger
}

func NewAggregator(extractor *Extractor, policy DuplicatePolicy, logger *slog.Logger) *Aggregator {
	if policy == "" {
		policy = LastWriteWins
	}
	return &Aggregator{
		extractor: extractor,
		policy:    policy,
		catalog:   models.NewCatalog(),
		logger:    logger.With("component", "aggregator"),
	}
}

// Add records one detail result. Failed results are skipped. A loaded page
// missing a required field is fatal for the run.
func (a *Aggregator) Add(res DetailResult) error {
	a.stats.Links++

	if res.Failed() {
		a.stats.Skipped++
		return nil
	}

	rec, err := a.extractor.Record(res.Doc, res.URL)
	if err != nil {
		return fmt.Errorf("extract %s: %w", res.URL, err)
	}

	if _, exists := a.catalog[rec.ID]; exists {
		a.stats.Duplicates++
		if a.policy == RejectDuplicate {
			return fmt.Errorf("%w: %s at %s", ErrDuplicateProduct, rec.ID, res.URL)
		}
		a.logger.Warn("duplicate product id, replacing previous record",
			"product_id", rec.ID,
			"url", res.URL,
			"previous_url", a.catalog[rec.ID].URL)
	}

	a.catalog.Put(rec)
	a.stats.Extracted++
	return nil
}

func (a *Aggregator) Catalog() models.Catalog {
	return a.catalog
}

func (a *Aggregator) Stats() Stats {
	stats := a.stats
	stats.Anomalies = len(a.catalog.Anomalies())
	return stats
}
