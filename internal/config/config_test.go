package config

import (
	"testing"
	"time"

	"github.com/maltedev/catalog-scraper/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://online.metro-cc.ru", cfg.Catalog.Origin)
	assert.Equal(t, "Saint-Petersburg", cfg.Catalog.RegionLabel)
	assert.Equal(t, -1, cfg.Catalog.RegionIndex)
	assert.Equal(t, scraper.DefaultLabels(), cfg.Catalog.Labels)
	assert.Equal(t, scraper.LastWriteWins, cfg.Catalog.DuplicatePolicy)
	assert.Equal(t, 10*time.Second, cfg.Scraper.PriceWaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.Scraper.DetailSettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Scraper.RegionSettleDelay)
	assert.Equal(t, 1, cfg.Scraper.ListingConcurrency)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATALOG_REGION_NAME", "Москва")
	t.Setenv("CATALOG_REGION_LABEL", "Moscow")
	t.Setenv("CATALOG_LABELS", "Бренд=brand, Страна = country,broken")
	t.Setenv("SCRAPER_PRICE_WAIT_TIMEOUT", "3s")
	t.Setenv("SCRAPER_LISTING_CONCURRENCY", "4")
	t.Setenv("CATALOG_DUPLICATE_POLICY", "reject")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Москва", cfg.Catalog.RegionName)
	assert.Equal(t, "Moscow", cfg.Catalog.RegionLabel)
	assert.Equal(t, scraper.LabelTable{"Бренд": scraper.FieldBrand, "Страна": "country"}, cfg.Catalog.Labels)
	assert.Equal(t, scraper.RejectDuplicate, cfg.Catalog.DuplicatePolicy)
	assert.Equal(t, 3*time.Second, cfg.Scraper.PriceWaitTimeout)
	assert.Equal(t, 4, cfg.Scraper.ListingConcurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "no region",
			mutate:  func(c *Config) { c.Catalog.RegionName = ""; c.Catalog.RegionIndex = -1 },
			wantErr: "CATALOG_REGION_NAME",
		},
		{
			name:   "index only",
			mutate: func(c *Config) { c.Catalog.RegionName = ""; c.Catalog.RegionIndex = 22 },
		},
		{
			name:    "unknown duplicate policy",
			mutate:  func(c *Config) { c.Catalog.DuplicatePolicy = "merge" },
			wantErr: "CATALOG_DUPLICATE_POLICY",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Scraper.ListingConcurrency = 0 },
			wantErr: "SCRAPER_LISTING_CONCURRENCY",
		},
		{
			name: "min delay above max",
			mutate: func(c *Config) {
				c.Scraper.RateLimitMin = 2 * time.Second
				c.Scraper.RateLimitMax = time.Second
			},
			wantErr: "SCRAPER_RATE_LIMIT_MIN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
