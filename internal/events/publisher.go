package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeCatalogProductExtracted is published for every product of a
	// successful run.
	EventTypeCatalogProductExtracted EventType = "CATALOG_PRODUCT_EXTRACTED"

	AggregateTypeCatalogProduct = "catalog_product"
)

// CatalogProductExtractedPayload is the payload of CATALOG_PRODUCT_EXTRACTED.
type CatalogProductExtractedPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	Region        string    `json:"region"`
	ProductID     string    `json:"product_id"`
	Name          string    `json:"product_name"`
	URL           string    `json:"product_url"`
	RegularPrice  int       `json:"product_regular_price"`
	DiscountPrice int       `json:"product_discount_price"`
	Brand         string    `json:"product_brand"`
	Discounted    bool      `json:"discounted"`
	Anomalous     bool      `json:"anomalous"`
	Source        string    `json:"source"`
}

type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

type ProductStore interface {
	UpsertWithTx(ctx context.Context, tx pgx.Tx, p *database.CatalogProduct) error
}

type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Publisher stores run snapshots and their events through the transactional
// outbox.
type Publisher struct {
	db       TxRunner
	products ProductStore
	outbox   OutboxWriter
	logger   *slog.Logger
}

func NewPublisher(db TxRunner, products ProductStore, outbox OutboxWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:       db,
		products: products,
		outbox:   outbox,
		logger:   logger.With("component", "event_publisher"),
	}
}

// PublishCatalog upserts every product of the catalog and queues one event
// per product in a single transaction. Either all of them are stored or
// none.
func (p *Publisher) PublishCatalog(ctx context.Context, runID uuid.UUID, region string, catalog models.Catalog, scrapedAt time.Time) error {
	records := catalog.Records()

	err := p.db.Transaction(ctx, func(tx pgx.Tx) error {
		for i := range records {
			rec := records[i]

			if err := p.products.UpsertWithTx(ctx, tx, &database.CatalogProduct{
				Region:    region,
				Record:    rec,
				RunID:     runID,
				ScrapedAt: scrapedAt,
			}); err != nil {
				return err
			}

			event, err := newProductEvent(runID, region, rec, scrapedAt)
			if err != nil {
				return err
			}

			if err := p.outbox.InsertWithTx(ctx, tx, event); err != nil {
				return fmt.Errorf("failed to insert outbox event for %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish catalog: %w", err)
	}

	p.logger.Info("catalog published to outbox",
		"run_id", runID,
		"region", region,
		"products", len(records))

	return nil
}

func newProductEvent(runID uuid.UUID, region string, rec models.ProductRecord, scrapedAt time.Time) (*database.OutboxEvent, error) {
	payload := CatalogProductExtractedPayload{
		EventID:       uuid.New().String(),
		EventType:     string(EventTypeCatalogProductExtracted),
		Timestamp:     scrapedAt,
		RunID:         runID.String(),
		Region:        region,
		ProductID:     rec.ID,
		Name:          rec.Name,
		URL:           rec.URL,
		RegularPrice:  rec.RegularPrice,
		DiscountPrice: rec.DiscountPrice,
		Brand:         rec.Brand,
		Discounted:    rec.HasDiscount(),
		Anomalous:     rec.IsAnomalous(),
		Source:        "scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &database.OutboxEvent{
		AggregateType: AggregateTypeCatalogProduct,
		AggregateID:   region + ":" + rec.ID,
		EventType:     string(EventTypeCatalogProductExtracted),
		Payload:       data,
	}, nil
}
