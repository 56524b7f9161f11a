// Package storage drives batch persistence. The sink owns the wire
// protocol; this layer owns the policy: skip unkeyed records, isolate
// per-record failures, report the saved count.
package storage

import (
	"context"
	"log/slog"

	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

// Sink is a keyed upsert destination. Upsert must be idempotent for a
// given product URL since re-runs overlap previously saved data.
type Sink interface {
	Upsert(ctx context.Context, record *models.ProductRecord) error
}

// Publisher announces saved records. Optional and best-effort.
type Publisher interface {
	PublishProductSaved(ctx context.Context, record *models.ProductRecord) error
}

// Upserter writes record batches with per-record failure isolation.
type Upserter struct {
	sink      Sink
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewUpserter(sink Sink, publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Upserter {
	return &Upserter{
		sink:      sink,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With("component", "upserter"),
	}
}

// UpsertBatch persists a batch and returns the number of records written.
// Records without a conflict key are skipped with a diagnostic; one
// record's failure never aborts the rest of the batch.
func (u *Upserter) UpsertBatch(ctx context.Context, records []*models.ProductRecord) int {
	if len(records) == 0 {
		return 0
	}

	u.logger.Info("saving batch", "count", len(records))

	saved := 0
	for _, record := range records {
		if !record.Persistable() {
			u.logger.Warn("skipping record without conflict key",
				"name", record.Name, "category", record.Category)
			u.metrics.IncSkipped("no_conflict_key")
			continue
		}

		if err := u.sink.Upsert(ctx, record); err != nil {
			u.logger.Error("failed to save record",
				"name", record.Name, "product_url", record.ProductURL, "error", err)
			u.metrics.IncSkipped("upsert_failed")
			continue
		}
		saved++
		u.metrics.IncSaved()

		if u.publisher != nil {
			if err := u.publisher.PublishProductSaved(ctx, record); err != nil {
				u.logger.Warn("failed to publish saved event",
					"product_url", record.ProductURL, "error", err)
			}
		}
	}

	u.logger.Info("batch saved", "saved", saved, "total", len(records))
	return saved
}
