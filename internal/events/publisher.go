package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventTypeProductSaved is published after a successful upsert.
	EventTypeProductSaved EventType = "PRODUCT_SAVED"
)

// ProductSavedPayload is the stream message for a persisted record.
type ProductSavedPayload struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	Timestamp         time.Time       `json:"timestamp"`
	RunID             string          `json:"run_id,omitempty"`
	ProductURL        string          `json:"product_url"`
	Name              string          `json:"name"`
	Category          models.Category `json:"category"`
	WarehouseLocation string          `json:"warehouse_location"`
	Price             *float64        `json:"price,omitempty"`
	Source            string          `json:"source"`
}

// RedisClient is the subset of redis operations the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Publisher announces saved products on a redis stream. Publishing is
// best-effort: a stream failure never blocks or fails persistence.
type Publisher struct {
	redis  RedisClient
	stream string
	runID  string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream, runID string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		runID:  runID,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductSaved emits a PRODUCT_SAVED event for one record.
func (p *Publisher) PublishProductSaved(ctx context.Context, record *models.ProductRecord) error {
	payload := ProductSavedPayload{
		EventID:           uuid.New().String(),
		EventType:         string(EventTypeProductSaved),
		Timestamp:         time.Now().UTC(),
		RunID:             p.runID,
		ProductURL:        record.ProductURL,
		Name:              record.Name,
		Category:          record.Category,
		WarehouseLocation: record.WarehouseLocation,
		Price:             record.Price,
		Source:            "scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"event_id":   payload.EventID,
			"payload":    string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"product_url", payload.ProductURL,
	)

	return nil
}
