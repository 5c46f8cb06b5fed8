package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/catalog-scraper/internal/api"
	"github.com/maltedev/catalog-scraper/internal/app"
	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/maltedev/catalog-scraper/internal/config"
	"github.com/maltedev/catalog-scraper/internal/jobs"
	"github.com/maltedev/catalog-scraper/internal/logger"
	"github.com/maltedev/catalog-scraper/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewResultStore(cfg.Output.Dir)
	if err != nil {
		log.Error("failed to open result store", "error", err)
		os.Exit(1)
	}

	ua := app.UserAgent(cfg.Scraper)

	b, err := browser.New(app.BrowserOptions(cfg.Browser, ua), log)
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	var (
		publisher jobs.CatalogPublisher
		outbox    api.OutboxStats
		catalog   api.CatalogReader = store
	)
	if cfg.Database.Enabled {
		p, err := app.OpenPersistence(ctx, cfg, true, log)
		if err != nil {
			log.Error("failed to open persistence", "error", err)
			os.Exit(1)
		}
		defer p.Close()

		publisher = p.Publisher
		outbox = p.Relay
		catalog = p.Catalog

		go func() {
			if err := p.Relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	pipeline := app.NewPipeline(cfg, app.SessionOpener(b), ua, log)
	runner := jobs.NewRunner(pipeline, store, publisher, cfg.Catalog.RegionLabel, log)
	manager := jobs.NewManager(runner, cfg.Catalog.RegionLabel, log)

	handlers := api.NewHandlers(manager, catalog, outbox, cfg.Catalog.RegionLabel, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handlers, api.RouterOptions{}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			log.Error("run manager shutdown failed", "error", err)
		}
		cancel()
	}()

	log.Info("server starting", "port", cfg.Server.Port, "region", cfg.Catalog.RegionLabel)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-stopped
	log.Info("server stopped")
}
