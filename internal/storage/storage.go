package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maltedev/catalog-scraper/internal/models"
)

// ErrNoResult is returned when no result file exists for a region.
var ErrNoResult = errors.New("no result for region")

// ResultStore writes and reads the per-region result files.
type ResultStore struct {
	mu  sync.RWMutex
	dir string
}

// Snapshot is a stored catalog with its file metadata.
type Snapshot struct {
	Region    string         `json:"region"`
	Path      string         `json:"path"`
	UpdatedAt time.Time      `json:"updated_at"`
	Products  models.Catalog `json:"products"`
}

func NewResultStore(dir string) (*ResultStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ResultStore{dir: dir}, nil
}

// Path returns the result file of the region label.
func (s *ResultStore) Path(region string) string {
	return filepath.Join(s.dir, fmt.Sprintf("result_%s.json", region))
}

// Save replaces the region's result file with the catalog.
func (s *ResultStore) Save(region string, catalog models.Catalog) (string, error) {
	data, err := Encode(catalog)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(region)

	// Write to temp file first for atomicity
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return path, nil
}

// Load reads the region's result file back.
func (s *ResultStore) Load(region string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(region)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoResult, region)
	}
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	catalog := models.NewCatalog()
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &Snapshot{
		Region:    region,
		Path:      path,
		UpdatedAt: info.ModTime(),
		Products:  catalog,
	}, nil
}

// Snapshot returns the region's last result file.
func (s *ResultStore) Snapshot(ctx context.Context, region string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Load(region)
}

// Encode renders the catalog as an id-keyed object with four-space
// indentation. Non-ASCII and HTML characters are written as is.
func Encode(catalog models.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(catalog); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}
