package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_DSN and resets the tables. Tests
// are skipped when the variable is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn, Config{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.pool.Exec(ctx, "TRUNCATE catalog_product, outbox_event")
	require.NoError(t, err)

	return db
}

func TestCatalogAndOutbox_Transaction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	catalog := NewCatalogRepository(db)
	outbox := NewOutboxRepository(db, "stream:catalog:test")
	runID := uuid.New()

	product := &CatalogProduct{
		Region: "Saint-Petersburg",
		Record: models.ProductRecord{
			ID: "100", Name: "Кофе", URL: "https://shop.example/p/100",
			RegularPrice: 1200, DiscountPrice: 999, Brand: "Jardin",
		},
		RunID:     runID,
		ScrapedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	t.Run("commit stores product and event", func(t *testing.T) {
		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			if err := catalog.UpsertWithTx(ctx, tx, product); err != nil {
				return err
			}
			return outbox.InsertWithTx(ctx, tx, &OutboxEvent{
				AggregateType: "catalog_product",
				AggregateID:   "Saint-Petersburg:100",
				EventType:     "CATALOG_PRODUCT_EXTRACTED",
				Payload:       json.RawMessage(`{"product_id":"100"}`),
			})
		})
		require.NoError(t, err)

		stored, err := catalog.ListByRegion(ctx, "Saint-Petersburg")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, product.Record, stored[0].Record)
		assert.Equal(t, runID, stored[0].RunID)

		pending, err := outbox.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "stream:catalog:test", pending[0].TargetStream)
	})

	t.Run("upsert replaces snapshot", func(t *testing.T) {
		updated := *product
		updated.Record.DiscountPrice = 899
		updated.RunID = uuid.New()

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return catalog.UpsertWithTx(ctx, tx, &updated)
		})
		require.NoError(t, err)

		stored, err := catalog.ListByRegion(ctx, "Saint-Petersburg")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, 899, stored[0].Record.DiscountPrice)
		assert.Equal(t, updated.RunID, stored[0].RunID)

		snap, err := catalog.Snapshot(ctx, "Saint-Petersburg")
		require.NoError(t, err)
		assert.Equal(t, []string{"100"}, snap.Products.IDs())
		assert.Equal(t, 899, snap.Products["100"].DiscountPrice)
	})

	t.Run("rollback on failure", func(t *testing.T) {
		other := *product
		other.Record.ID = "200"

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			if err := catalog.UpsertWithTx(ctx, tx, &other); err != nil {
				return err
			}
			return outbox.InsertWithTx(ctx, tx, &OutboxEvent{EventType: "CATALOG_PRODUCT_EXTRACTED"})
		})
		assert.ErrorIs(t, err, ErrInvalidEvent)

		stored, err := catalog.ListByRegion(ctx, "Saint-Petersburg")
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewOutboxRepository(db, "")

	event := &OutboxEvent{
		AggregateType: "catalog_product",
		AggregateID:   "Moscow:1",
		EventType:     "CATALOG_PRODUCT_EXTRACTED",
		Payload:       json.RawMessage(`{"product_id":"1"}`),
		RetryCount:    MaxRetryCount - 1,
	}
	require.NoError(t, db.Transaction(ctx, func(tx pgx.Tx) error {
		return repo.InsertWithTx(ctx, tx, event)
	}))

	count, err := repo.CountByStatus(ctx, OutboxStatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, repo.MarkFailed(ctx, event.ID, assert.AnError))

	dead, err := repo.CountByStatus(ctx, OutboxStatusDeadLetter)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)

	assert.Error(t, repo.MarkProcessed(ctx, uuid.New()))
}
