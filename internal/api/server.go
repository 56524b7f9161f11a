package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
)

// StatsSource answers the stats endpoint from persisted data.
type StatsSource interface {
	CountByCategory(ctx context.Context) (map[string]int, error)
}

// Server exposes the operational surface of a crawl run: health,
// Prometheus metrics and persisted row counts. It serves reads only and
// never drives the crawl.
type Server struct {
	http    *http.Server
	source  StatsSource
	metrics *metrics.Metrics
	logger  *slog.Logger

	status atomic.Value
}

type RunStatus struct {
	State           string `json:"state"`
	CurrentCategory string `json:"current_category,omitempty"`
	Extracted       int    `json:"extracted"`
	Saved           int    `json:"saved"`
}

func NewServer(port string, source StatsSource, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		source:  source,
		metrics: m,
		logger:  logger.With("component", "api"),
	}
	s.status.Store(RunStatus{State: "starting"})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/status", s.handleStatus)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	s.http = &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// SetStatus publishes the current run position for /status.
func (s *Server) SetStatus(status RunStatus) {
	if s == nil {
		return
	}
	s.status.Store(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.status.Load())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.source.CountByCategory(r.Context())
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":      total,
		"categories": counts,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
