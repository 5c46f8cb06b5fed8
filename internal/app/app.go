// Package app builds the catalog pipeline and its optional persistence from
// configuration. It is shared by the command-line and the API server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"

	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/maltedev/catalog-scraper/internal/config"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/events"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/ratelimit"
	"github.com/maltedev/catalog-scraper/internal/scraper"
	"github.com/redis/go-redis/v9"
)

func CatalogContext(cfg config.CatalogConfig) models.CatalogContext {
	return models.NewCatalogContext(cfg.Origin, cfg.CategoryPath, models.Region{
		Name:  cfg.RegionName,
		Label: cfg.RegionLabel,
		Index: cfg.RegionIndex,
	})
}

func ScraperOptions(cfg *config.Config) scraper.Options {
	return scraper.Options{
		Selectors: scraper.DefaultSelectors(),
		Labels:    cfg.Catalog.Labels,
		Timings: scraper.Timings{
			PriceWait:    cfg.Scraper.PriceWaitTimeout,
			DetailSettle: cfg.Scraper.DetailSettleDelay,
			RegionSettle: cfg.Scraper.RegionSettleDelay,
		},
		DuplicatePolicy: cfg.Catalog.DuplicatePolicy,
	}
}

// UserAgent picks one of the configured user agents for the run.
func UserAgent(cfg config.ScraperConfig) string {
	if len(cfg.UserAgents) == 0 {
		return ""
	}
	return cfg.UserAgents[rand.Intn(len(cfg.UserAgents))]
}

func BrowserOptions(cfg config.BrowserConfig, userAgent string) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.Timeout
	opts.ViewportWidth = cfg.ViewportWidth
	opts.ViewportHeight = cfg.ViewportHeight
	opts.AcceptLanguage = cfg.AcceptLanguage
	opts.TimezoneID = cfg.TimezoneID
	opts.Locale = cfg.Locale
	if userAgent != "" {
		opts.UserAgent = userAgent
	}
	return opts
}

func NewLinkCollector(cfg config.ScraperConfig, userAgent string, logger *slog.Logger) *scraper.LinkCollector {
	return scraper.NewLinkCollector(scraper.LinkCollectorOptions{
		Client:      &http.Client{Timeout: cfg.HTTPTimeout},
		Selectors:   scraper.DefaultSelectors(),
		Limiter:     ratelimit.NewSimpleRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax),
		Concurrency: cfg.ListingConcurrency,
		UserAgent:   userAgent,
	}, logger)
}

// SessionOpener opens a fresh page of b for every run.
func SessionOpener(b *browser.Browser) scraper.SessionOpener {
	return scraper.SessionOpenerFunc(func() (scraper.Session, error) {
		sess, err := b.NewSession()
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

// NewPipeline wires the pipeline for one category and region.
func NewPipeline(cfg *config.Config, opener scraper.SessionOpener, userAgent string, logger *slog.Logger) *scraper.Pipeline {
	return scraper.NewPipeline(
		CatalogContext(cfg.Catalog),
		opener,
		NewLinkCollector(cfg.Scraper, userAgent, logger),
		ScraperOptions(cfg),
		logger,
	)
}

// Persistence holds the database-backed components. Relay is nil unless
// requested.
type Persistence struct {
	DB        *database.DB
	Catalog   *database.CatalogRepository
	Publisher *events.Publisher
	Relay     *database.Relay
	redis     *redis.Client
}

// OpenPersistence connects to PostgreSQL, applies the schema and, with
// withRelay, connects to Redis for the outbox relay.
func OpenPersistence(ctx context.Context, cfg *config.Config, withRelay bool, logger *slog.Logger) (*Persistence, error) {
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	outbox := database.NewOutboxRepository(db, cfg.Redis.Stream)
	catalog := database.NewCatalogRepository(db)
	p := &Persistence{
		DB:        db,
		Catalog:   catalog,
		Publisher: events.NewPublisher(db, catalog, outbox, logger),
	}

	if !withRelay {
		return p, nil
	}

	p.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := p.redis.Ping(ctx).Err(); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p.Relay = database.NewRelay(outbox, p.redis, logger, database.RelayConfig{})
	return p, nil
}

func (p *Persistence) Close() {
	if p.redis != nil {
		p.redis.Close()
	}
	p.DB.Close()
}
