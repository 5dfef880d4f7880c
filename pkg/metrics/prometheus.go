// Package metrics exposes Prometheus instrumentation for the generation
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the plan generator.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	RepairAttempts     prometheus.Histogram
	ValidationFailures *prometheus.CounterVec
	ModelCallsTotal    *prometheus.CounterVec
	ModelLatency       *prometheus.HistogramVec
	QualityScore       prometheus.Histogram
	DurationDelta      prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	QuotaRejections    prometheus.Counter
}

// New creates and registers the generator metrics with the default
// registry.
func New() *Metrics {
	return &Metrics{
		GenerationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_generations_total",
				Help: "Total number of plan generations by terminal state",
			},
			[]string{"status"}, // "accepted", "rejected"
		),
		RepairAttempts: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coach_repair_attempts",
				Help:    "Repair attempts consumed per accepted plan",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		ValidationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_validation_failures_total",
				Help: "Validation failures by category",
			},
			[]string{"category"}, // "schema", "rules", "duration"
		),
		ModelCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_model_calls_total",
				Help: "Model calls by outcome",
			},
			[]string{"model", "status"}, // "ok", "parse_error", "error"
		),
		ModelLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coach_model_latency_seconds",
				Help:    "Model call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		QualityScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coach_quality_score",
				Help:    "Overall quality score of accepted plans",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		DurationDelta: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coach_duration_delta_minutes",
				Help:    "Signed difference between estimated and target duration",
				Buckets: []float64{-15, -10, -5, -3, 0, 3, 5, 10, 15},
			},
		),
		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coach_cache_hits_total",
				Help: "Total number of result cache hits",
			},
		),
		CacheMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coach_cache_misses_total",
				Help: "Total number of result cache misses",
			},
		),
		QuotaRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coach_quota_rejections_total",
				Help: "Requests short-circuited by the quota collaborator",
			},
		),
	}
}

// ObserveModelCall records one model call outcome with its latency.
func (m *Metrics) ObserveModelCall(model, status string, elapsed time.Duration) {
	m.ModelCallsTotal.WithLabelValues(model, status).Inc()
	m.ModelLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}
