// Package session runs one complete crawl: warehouse setup, then every
// configured category in fixed order on a single browser page. Category
// failures are caught, logged and followed by a cooldown; nothing short
// of context cancellation ends the run early.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fuelrx/costco-inventory-scraper/internal/api"
	"github.com/fuelrx/costco-inventory-scraper/internal/config"
	"github.com/fuelrx/costco-inventory-scraper/internal/crawler"
	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

// Crawler is the per-category extraction engine.
type Crawler interface {
	CrawlCategory(ctx context.Context, page crawler.Page, category models.Category, url, warehouse string) ([]*models.ProductRecord, error)
	SetWarehouse(ctx context.Context, page crawler.Page, zipCode string) bool
}

// Saver persists an extracted batch and reports how many records stuck.
type Saver interface {
	UpsertBatch(ctx context.Context, records []*models.ProductRecord) int
}

// StatusReporter publishes run progress. Optional.
type StatusReporter interface {
	SetStatus(status api.RunStatus)
}

type Options struct {
	// RunID tags the session and its events. Generated when empty.
	RunID              string
	WarehouseZip       string
	WarehouseLocation  string
	Categories         []config.CategoryTarget
	InterCategoryDelay time.Duration
	// FailureCooldown runs after a category-level failure before the next
	// category starts.
	FailureCooldown time.Duration
}

// Orchestrator owns the run loop. One orchestrator drives one page; there
// is no concurrency across categories.
type Orchestrator struct {
	opts    Options
	crawler Crawler
	saver   Saver
	status  StatusReporter
	metrics *metrics.Metrics
	logger  *slog.Logger

	sleep func(ctx context.Context, d time.Duration)
}

func NewOrchestrator(opts Options, c Crawler, saver Saver, status StatusReporter, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		opts:    opts,
		crawler: c,
		saver:   saver,
		status:  status,
		metrics: m,
		logger:  logger.With("component", "session"),
		sleep:   sleepCtx,
	}
}

// Run crawls every configured category once and returns the session
// summary. The returned error is non-nil only on context cancellation;
// per-category failures are absorbed into the summary.
func (o *Orchestrator) Run(ctx context.Context, page crawler.Page) (*models.CrawlSession, error) {
	runID := o.opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	session := &models.CrawlSession{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}
	for _, target := range o.opts.Categories {
		session.Categories = append(session.Categories, target.Name)
	}

	logger := o.logger.With("run_id", session.RunID)
	logger.Info("starting crawl session",
		"categories", len(o.opts.Categories), "warehouse", o.opts.WarehouseLocation)

	if !o.crawler.SetWarehouse(ctx, page, o.opts.WarehouseZip) {
		logger.Warn("warehouse selection incomplete, crawling with default locale")
	}

	for i, target := range o.opts.Categories {
		if err := ctx.Err(); err != nil {
			logger.Warn("session cancelled", "remaining", len(o.opts.Categories)-i)
			return session, err
		}

		o.report(api.RunStatus{
			State:           "crawling",
			CurrentCategory: string(target.Name),
			Extracted:       session.Extracted,
			Saved:           session.Saved,
		})

		records, err := o.crawler.CrawlCategory(ctx, page, target.Name, target.URL, o.opts.WarehouseLocation)
		if err != nil {
			logger.Error("category crawl failed, continuing with next",
				"category", target.Name, "error", err)
			o.metrics.IncCategory("failed")
			session.Failed = append(session.Failed, target.Name)
			o.sleep(ctx, o.opts.FailureCooldown)
			continue
		}

		o.metrics.IncCategory("ok")
		o.metrics.AddExtracted(string(target.Name), len(records))
		session.Extracted += len(records)
		session.Saved += o.saver.UpsertBatch(ctx, records)

		if i < len(o.opts.Categories)-1 {
			o.sleep(ctx, o.opts.InterCategoryDelay)
		}
	}

	o.report(api.RunStatus{
		State:     "done",
		Extracted: session.Extracted,
		Saved:     session.Saved,
	})
	logger.Info("crawl session finished",
		"extracted", session.Extracted,
		"saved", session.Saved,
		"failed_categories", len(session.Failed),
		"duration", time.Since(session.StartedAt))
	return session, nil
}

func (o *Orchestrator) report(status api.RunStatus) {
	if o.status != nil {
		o.status.SetStatus(status)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
