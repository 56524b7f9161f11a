package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl on a dedicated
// registry. All methods are nil-safe so wiring stays optional in tests.
type Metrics struct {
	Registry           *prometheus.Registry
	CategoriesCrawled  *prometheus.CounterVec
	RecordsExtracted   *prometheus.CounterVec
	RecordsSaved       prometheus.Counter
	RecordsSkipped     *prometheus.CounterVec
	ChallengesDetected prometheus.Counter
	CategoryDuration   prometheus.Histogram
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	categories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_categories_crawled_total",
			Help: "Categories processed, by outcome.",
		},
		[]string{"outcome"},
	)
	extracted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_extracted_total",
			Help: "Product records extracted from category pages.",
		},
		[]string{"category"},
	)
	saved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_saved_total",
			Help: "Product records successfully upserted.",
		},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_skipped_total",
			Help: "Records not persisted, by reason.",
		},
		[]string{"reason"},
	)
	challenges := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_challenges_detected_total",
			Help: "Bot-detection challenges observed during navigation.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_category_duration_seconds",
			Help:    "Wall time spent crawling one category.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	registry.MustRegister(categories, extracted, saved, skipped, challenges, duration)

	return &Metrics{
		Registry:           registry,
		CategoriesCrawled:  categories,
		RecordsExtracted:   extracted,
		RecordsSaved:       saved,
		RecordsSkipped:     skipped,
		ChallengesDetected: challenges,
		CategoryDuration:   duration,
	}
}

func (m *Metrics) IncCategory(outcome string) {
	if m == nil {
		return
	}
	m.CategoriesCrawled.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddExtracted(category string, n int) {
	if m == nil {
		return
	}
	m.RecordsExtracted.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) IncSaved() {
	if m == nil {
		return
	}
	m.RecordsSaved.Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.RecordsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncChallenge() {
	if m == nil {
		return
	}
	m.ChallengesDetected.Inc()
}

func (m *Metrics) ObserveCategoryDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.CategoryDuration.Observe(d.Seconds())
}
