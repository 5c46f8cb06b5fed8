package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/app"
	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/maltedev/catalog-scraper/internal/config"
	"github.com/maltedev/catalog-scraper/internal/jobs"
	"github.com/maltedev/catalog-scraper/internal/logger"
	"github.com/maltedev/catalog-scraper/internal/storage"
)

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := opts.apply(cfg); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("catalog run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := storage.NewResultStore(cfg.Output.Dir)
	if err != nil {
		return err
	}

	ua := app.UserAgent(cfg.Scraper)

	b, err := browser.New(app.BrowserOptions(cfg.Browser, ua), log)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer b.Close()

	var publisher jobs.CatalogPublisher
	if cfg.Database.Enabled {
		p, err := app.OpenPersistence(ctx, cfg, false, log)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p.Publisher
	}

	pipeline := app.NewPipeline(cfg, app.SessionOpener(b), ua, log)
	runner := jobs.NewRunner(pipeline, store, publisher, cfg.Catalog.RegionLabel, log)

	outcome, err := runner.Execute(ctx, uuid.New())
	if err != nil {
		return err
	}

	fmt.Printf("%d products written to %s\n", outcome.Products, outcome.OutputPath)
	return nil
}
