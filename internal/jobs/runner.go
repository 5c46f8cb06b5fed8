package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/scraper"
)

type Pipeline interface {
	Run(ctx context.Context) (*scraper.Result, error)
}

type ResultSaver interface {
	Save(region string, catalog models.Catalog) (string, error)
}

type CatalogPublisher interface {
	PublishCatalog(ctx context.Context, runID uuid.UUID, region string, catalog models.Catalog, scrapedAt time.Time) error
}

// Outcome describes a finished run.
type Outcome struct {
	OutputPath string
	Products   int
	Stats      scraper.Stats
	Published  bool
}

// Runner executes one pipeline run and stores its catalog.
type Runner struct {
	pipeline  Pipeline
	store     ResultSaver
	publisher CatalogPublisher
	region    string
	logger    *slog.Logger
}

// NewRunner creates a runner writing result files for region. publisher may
// be nil when snapshot persistence is disabled.
func NewRunner(pipeline Pipeline, store ResultSaver, publisher CatalogPublisher, region string, logger *slog.Logger) *Runner {
	return &Runner{
		pipeline:  pipeline,
		store:     store,
		publisher: publisher,
		region:    region,
		logger:    logger.With("component", "runner"),
	}
}

// Execute runs the pipeline. The result file is written only when the run
// succeeded; a failed run leaves any previous file untouched.
func (r *Runner) Execute(ctx context.Context, runID uuid.UUID) (*Outcome, error) {
	res, err := r.pipeline.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog run failed: %w", err)
	}

	path, err := r.store.Save(r.region, res.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	outcome := &Outcome{
		OutputPath: path,
		Products:   len(res.Catalog),
		Stats:      res.Stats,
	}

	r.logger.Info("result written",
		"run_id", runID,
		"path", path,
		"products", outcome.Products)

	if r.publisher == nil {
		return outcome, nil
	}

	if err := r.publisher.PublishCatalog(ctx, runID, r.region, res.Catalog, res.StartedAt); err != nil {
		return outcome, err
	}
	outcome.Published = true

	return outcome, nil
}
