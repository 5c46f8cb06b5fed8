package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() models.Catalog {
	c := models.NewCatalog()
	c.Put(models.ProductRecord{
		ID:            "275624",
		Name:          "Кофе Jardin <Colombia> & Co",
		URL:           "https://shop.example/products/275624",
		RegularPrice:  1234,
		DiscountPrice: 999,
		Brand:         "Jardin",
	})
	c.Put(models.ProductRecord{
		ID:            "100",
		Name:          "Кофе без бренда",
		URL:           "https://shop.example/products/100",
		RegularPrice:  500,
		DiscountPrice: 500,
		Brand:         models.NoBrand,
	})
	return c
}

func TestEncode(t *testing.T) {
	data, err := Encode(testCatalog())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Кофе Jardin <Colombia> & Co")
	assert.NotContains(t, out, `\u003c`)
	assert.NotContains(t, out, `\u0026`)
	assert.Contains(t, out, "\n    \"100\": {\n        \"product_name\"")
	assert.Less(t, strings.Index(out, `"100"`), strings.Index(out, `"275624"`))
	assert.NotContains(t, out, `"ID"`)
}

func TestResultStoreSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store, err := NewResultStore(dir)
	require.NoError(t, err)

	path, err := store.Save("Saint-Petersburg", testCatalog())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result_Saint-Petersburg.json"), path)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	snap, err := store.Load("Saint-Petersburg")
	require.NoError(t, err)
	assert.Equal(t, path, snap.Path)
	assert.Len(t, snap.Products, 2)
	assert.Equal(t, 999, snap.Products["275624"].DiscountPrice)
	assert.Equal(t, models.NoBrand, snap.Products["100"].Brand)
}

func TestResultStoreSaveReplaces(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("Moscow", testCatalog())
	require.NoError(t, err)

	smaller := models.NewCatalog()
	smaller.Put(models.ProductRecord{ID: "1", Name: "x", RegularPrice: 1, DiscountPrice: 1, Brand: "-"})
	_, err = store.Save("Moscow", smaller)
	require.NoError(t, err)

	snap, err := store.Load("Moscow")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, snap.Products.IDs())
}

func TestResultStoreLoadMissing(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("Kazan")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestResultStoreSnapshot(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("Saint-Petersburg", testCatalog())
	require.NoError(t, err)

	snap, err := store.Snapshot(context.Background(), "Saint-Petersburg")
	require.NoError(t, err)
	assert.Len(t, snap.Products, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Snapshot(ctx, "Saint-Petersburg")
	assert.ErrorIs(t, err, context.Canceled)
}
