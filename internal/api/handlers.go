package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/catalog-scraper/internal/jobs"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/storage"
)

type RunService interface {
	Start() (*jobs.Run, error)
	Get(id string) (*jobs.Run, error)
	List() []*jobs.Run
}

// CatalogReader serves the last catalog of a region, from the result file or
// from the database snapshot.
type CatalogReader interface {
	Snapshot(ctx context.Context, region string) (*storage.Snapshot, error)
}

// OutboxStats reports the outbox backlog. It is nil when persistence is
// disabled.
type OutboxStats interface {
	GetPendingCount(ctx context.Context) (int64, error)
	GetDeadLetterCount(ctx context.Context) (int64, error)
}

type Handlers struct {
	runs    RunService
	results CatalogReader
	outbox  OutboxStats
	region  string
	logger  *slog.Logger
}

func NewHandlers(runs RunService, results CatalogReader, outbox OutboxStats, region string, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:    runs,
		results: results,
		outbox:  outbox,
		region:  region,
		logger:  logger.With("component", "api"),
	}
}

// CatalogResponse is the last stored catalog of a region.
type CatalogResponse struct {
	Region    string         `json:"region"`
	UpdatedAt string         `json:"updated_at"`
	Count     int            `json:"count"`
	Products  []CatalogEntry `json:"products"`
	Anomalies []string       `json:"anomalies"`
}

type CatalogEntry struct {
	ID string `json:"product_id"`
	models.ProductRecord
}

// StartRun starts a catalog run in the background.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Start()
	switch {
	case errors.Is(err, jobs.ErrRunInProgress):
		h.respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, jobs.ErrShuttingDown):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+run.ID)
	h.respondJSON(w, http.StatusAccepted, run)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.Get(runID)
	if errors.Is(err, jobs.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.List())
}

// GetCatalog returns the last catalog of the configured region. The optional
// brand query parameter filters case-insensitively.
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.results.Snapshot(r.Context(), h.region)
	if errors.Is(err, storage.ErrNoResult) {
		h.respondError(w, http.StatusNotFound, "no catalog has been extracted yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to load catalog", "region", h.region, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	brand := strings.TrimSpace(r.URL.Query().Get("brand"))

	resp := CatalogResponse{
		Region:    snap.Region,
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339),
		Products:  []CatalogEntry{},
		Anomalies: []string{},
	}

	for _, rec := range snap.Products.Records() {
		if brand != "" && !strings.EqualFold(rec.Brand, brand) {
			continue
		}
		resp.Products = append(resp.Products, CatalogEntry{ID: rec.ID, ProductRecord: rec})
		if rec.IsAnomalous() {
			resp.Anomalies = append(resp.Anomalies, rec.ID)
		}
	}
	resp.Count = len(resp.Products)

	h.respondJSON(w, http.StatusOK, resp)
}

// Health reports ok unless the outbox backlog indicates a stuck relay.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		pendingCount, _ := h.outbox.GetPendingCount(r.Context())
		deadLetterCount, _ := h.outbox.GetDeadLetterCount(r.Context())

		health["outbox"] = map[string]any{
			"pending":     pendingCount,
			"dead_letter": deadLetterCount,
		}

		if pendingCount > 1000 {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetterCount > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
