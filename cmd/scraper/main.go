package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fuelrx/costco-inventory-scraper/internal/api"
	"github.com/fuelrx/costco-inventory-scraper/internal/browser"
	"github.com/fuelrx/costco-inventory-scraper/internal/config"
	"github.com/fuelrx/costco-inventory-scraper/internal/crawler"
	"github.com/fuelrx/costco-inventory-scraper/internal/database"
	"github.com/fuelrx/costco-inventory-scraper/internal/events"
	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
	"github.com/fuelrx/costco-inventory-scraper/internal/session"
	"github.com/fuelrx/costco-inventory-scraper/internal/storage"
)

func main() {
	var (
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
		skipDetail = flag.Bool("skip-details", false, "Skip per-product detail page fetches")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting costco inventory scraper",
		"categories", len(cfg.Categories), "warehouse", cfg.Warehouse.Location)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := database.NewProductStore(db)

	runID := uuid.New().String()

	var publisher storage.Publisher
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, saved events disabled", "error", err)
		} else {
			publisher = events.NewPublisher(client, cfg.Redis.Stream, runID, logger)
		}
	}

	m := metrics.New()

	var srv *api.Server
	var reporter session.StatusReporter
	if cfg.Server.Enabled {
		srv = api.NewServer(cfg.Server.Port, store, m, logger)
		reporter = srv
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("ops server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown failed", "error", err)
			}
		}()
	}

	b, err := browser.New(&browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	pwPage, err := b.NewPage()
	if err != nil {
		logger.Error("failed to open page", "error", err)
		os.Exit(1)
	}
	page := crawler.NewPlaywrightPage(pwPage,
		cfg.Scraper.NavTimeout, cfg.Scraper.ReadyTimeout, cfg.Scraper.CardFieldTimeout)

	controller := crawler.NewController(crawler.Options{
		FetchDetailPages:      cfg.Scraper.FetchDetailPages && !*skipDetail,
		SkipOnRepeatChallenge: cfg.Scraper.SkipOnRepeatChallenge,
		SettleDelay:           cfg.Scraper.SettleDelay,
		ChallengeCooldown:     cfg.Scraper.ChallengeCooldown,
		ContentGraceDelay:     cfg.Scraper.ContentGraceDelay,
		ScrollSteps:           cfg.Scraper.ScrollSteps,
		ScrollStepPixels:      cfg.Scraper.ScrollStepPixels,
		ScrollPause:           cfg.Scraper.ScrollPause,
		DetailDelayMin:        cfg.Scraper.DetailDelayMin,
		DetailDelayMax:        cfg.Scraper.DetailDelayMax,
	}, m, logger)

	upserter := storage.NewUpserter(store, publisher, m, logger)

	orchestrator := session.NewOrchestrator(session.Options{
		RunID:              runID,
		WarehouseZip:       cfg.Warehouse.ZipCode,
		WarehouseLocation:  cfg.Warehouse.Location,
		Categories:         cfg.Categories,
		InterCategoryDelay: cfg.Scraper.InterCategoryDelay,
		FailureCooldown:    cfg.Scraper.FailureCooldown,
	}, controller, upserter, reporter, m, logger)

	summary, err := orchestrator.Run(ctx, page)
	if err != nil {
		logger.Warn("run ended early", "error", err)
	}
	if summary != nil {
		logger.Info("run summary",
			"run_id", summary.RunID,
			"extracted", summary.Extracted,
			"saved", summary.Saved,
			"failed_categories", summary.Failed,
			"duration", time.Since(summary.StartedAt))
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
