package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
)

type fakeStatsSource struct {
	counts map[string]int
	err    error
}

func (f *fakeStatsSource) CountByCategory(ctx context.Context) (map[string]int, error) {
	return f.counts, f.err
}

func newTestServer(source StatsSource) *Server {
	return NewServer("0", source, metrics.New(), slog.Default())
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeStatsSource{})

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(&fakeStatsSource{counts: map[string]int{
		"deli":   12,
		"snacks": 30,
	}})

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total      int            `json:"total"`
		Categories map[string]int `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body.Total)
	assert.Equal(t, 12, body.Categories["deli"])
}

func TestStatsEndpointSourceFailure(t *testing.T) {
	s := newTestServer(&fakeStatsSource{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusEndpointTracksRun(t *testing.T) {
	s := newTestServer(&fakeStatsSource{})
	s.SetStatus(RunStatus{State: "crawling", CurrentCategory: "pantry", Extracted: 7})

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "crawling", status.State)
	assert.Equal(t, "pantry", status.CurrentCategory)
	assert.Equal(t, 7, status.Extracted)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	s := newTestServer(&fakeStatsSource{})

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
