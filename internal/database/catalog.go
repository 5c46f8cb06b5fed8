package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/storage"
)

// CatalogProduct is the stored snapshot of one product in one region.
type CatalogProduct struct {
	Region    string
	Record    models.ProductRecord
	RunID     uuid.UUID
	ScrapedAt time.Time
}

type CatalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// UpsertWithTx stores the product, replacing the region's previous snapshot
// of the same id.
func (r *CatalogRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, p *CatalogProduct) error {
	query := `
		INSERT INTO catalog_product (
			region, product_id, name, url, regular_price,
			discount_price, brand, run_id, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (region, product_id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			regular_price = EXCLUDED.regular_price,
			discount_price = EXCLUDED.discount_price,
			brand = EXCLUDED.brand,
			run_id = EXCLUDED.run_id,
			scraped_at = EXCLUDED.scraped_at`

	_, err := tx.Exec(ctx, query,
		p.Region, p.Record.ID, p.Record.Name, p.Record.URL, p.Record.RegularPrice,
		p.Record.DiscountPrice, p.Record.Brand, p.RunID, p.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.Record.ID, err)
	}

	return nil
}

// ListByRegion returns the stored products of the region ordered by id.
func (r *CatalogRepository) ListByRegion(ctx context.Context, region string) ([]*CatalogProduct, error) {
	query := `
		SELECT
			region, product_id, name, url, regular_price,
			discount_price, brand, run_id, scraped_at
		FROM catalog_product
		WHERE region = $1
		ORDER BY product_id ASC`

	rows, err := r.db.pool.Query(ctx, query, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*CatalogProduct
	for rows.Next() {
		p := &CatalogProduct{}
		err := rows.Scan(
			&p.Region, &p.Record.ID, &p.Record.Name, &p.Record.URL, &p.Record.RegularPrice,
			&p.Record.DiscountPrice, &p.Record.Brand, &p.RunID, &p.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// Snapshot returns the products stored by the region's most recent run.
// Products that the latest run no longer found keep an older run id and are
// left out.
func (r *CatalogRepository) Snapshot(ctx context.Context, region string) (*storage.Snapshot, error) {
	products, err := r.ListByRegion(ctx, region)
	if err != nil {
		return nil, err
	}
	return latestSnapshot(region, products)
}

func latestSnapshot(region string, products []*CatalogProduct) (*storage.Snapshot, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNoResult, region)
	}

	latest := products[0]
	for _, p := range products[1:] {
		if p.ScrapedAt.After(latest.ScrapedAt) {
			latest = p
		}
	}

	catalog := models.NewCatalog()
	for _, p := range products {
		if p.RunID == latest.RunID {
			catalog.Put(p.Record)
		}
	}

	return &storage.Snapshot{
		Region:    region,
		UpdatedAt: latest.ScrapedAt,
		Products:  catalog,
	}, nil
}
