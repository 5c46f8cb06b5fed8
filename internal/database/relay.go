package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// OutboxRepo interface for outbox operations (for testing)
type OutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	CountByStatus(ctx context.Context, statuses ...string) (int64, error)
}

// Relay moves events from the outbox table to Redis streams.
type Relay struct {
	redis     RedisClient
	outbox    OutboxRepo
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	source    string
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Source is reported in the metadata of every published event.
	Source string
}

// NewRelay creates a relay over an outbox repository.
func NewRelay(outbox OutboxRepo, redisClient RedisClient, logger *slog.Logger, config RelayConfig) *Relay {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.Source == "" {
		config.Source = "catalog-scraper"
	}

	return &Relay{
		redis:     redisClient,
		outbox:    outbox,
		logger:    logger.With("component", "relay"),
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		source:    config.Source,
	}
}

// Start polls the outbox until ctx is done.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting relay",
		"interval", r.interval,
		"batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.processEvents(ctx); err != nil {
		r.logger.Error("failed to process events on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.processEvents(ctx); err != nil {
				r.logger.Error("failed to process events", "error", err)
			}
		}
	}
}

// processEvents publishes one batch. A failing event does not stop the batch.
func (r *Relay) processEvents(ctx context.Context) error {
	events, err := r.outbox.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	r.logger.Debug("processing events", "count", len(events))

	for _, event := range events {
		if err := r.processEvent(ctx, event); err != nil {
			r.logger.Error("failed to publish catalog event",
				"event_id", event.ID,
				"catalog_product", event.AggregateID,
				"error", err)
		}
	}

	return nil
}

func (r *Relay) processEvent(ctx context.Context, event *OutboxEvent) error {
	if err := r.publishToRedis(ctx, event); err != nil {
		if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
			r.logger.Error("failed to mark event as failed",
				"event_id", event.ID,
				"error", markErr)
		}
		return err
	}

	if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
		r.logger.Error("failed to mark event as processed",
			"event_id", event.ID,
			"error", err)
		return err
	}

	r.logger.Debug("catalog event published",
		"event_id", event.ID,
		"event_type", event.EventType,
		"catalog_product", event.AggregateID,
		"stream", event.TargetStream)

	return nil
}

// streamEnvelope is the JSON document carried in the data field of a stream
// entry.
type streamEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Product   string          `json:"catalog_product"`
	Region    string          `json:"region"`
	ProductID string          `json:"product_id"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  streamMetadata  `json:"metadata"`
}

type streamMetadata struct {
	Source       string `json:"source"`
	OutboxID     string `json:"outbox_id"`
	RetryCount   int    `json:"retry_count"`
	TargetStream string `json:"target_stream"`
}

// productKey is the part of a catalog payload used to key stream entries.
type productKey struct {
	Region    string `json:"region"`
	ProductID string `json:"product_id"`
}

// streamValues builds the stream entry of a catalog product event. Consumers
// can filter on region and product_id without decoding data.
func (r *Relay) streamValues(event *OutboxEvent) (map[string]any, error) {
	var key productKey
	if err := json.Unmarshal(event.Payload, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if key.ProductID == "" {
		return nil, fmt.Errorf("%w: payload has no product_id", ErrInvalidEvent)
	}

	data, err := json.Marshal(streamEnvelope{
		ID:        event.ID.String(),
		Type:      event.EventType,
		Product:   event.AggregateID,
		Region:    key.Region,
		ProductID: key.ProductID,
		Timestamp: event.CreatedAt.Format(time.RFC3339),
		Payload:   event.Payload,
		Metadata: streamMetadata{
			Source:       r.source,
			OutboxID:     event.ID.String(),
			RetryCount:   event.RetryCount,
			TargetStream: event.TargetStream,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream data: %w", err)
	}

	return map[string]any{
		"data":            string(data),
		"event_type":      event.EventType,
		"catalog_product": event.AggregateID,
		"region":          key.Region,
		"product_id":      key.ProductID,
		"outbox_id":       event.ID.String(),
		"created_at":      fmt.Sprintf("%d", event.CreatedAt.UnixNano()),
	}, nil
}

func (r *Relay) publishToRedis(ctx context.Context, event *OutboxEvent) error {
	values, err := r.streamValues(event)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: event.TargetStream,
		Values: values,
	}

	if _, err := r.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	return nil
}

// GetPendingCount returns the number of events still to be published.
func (r *Relay) GetPendingCount(ctx context.Context) (int64, error) {
	return r.outbox.CountByStatus(ctx, OutboxStatusPending, OutboxStatusFailed)
}

// GetDeadLetterCount returns the number of events that exhausted retries.
func (r *Relay) GetDeadLetterCount(ctx context.Context) (int64, error) {
	return r.outbox.CountByStatus(ctx, OutboxStatusDeadLetter)
}
