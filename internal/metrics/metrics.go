// Package metrics exposes Prometheus instrumentation for ingestion,
// classification, corrections and the HTTP API.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Ingestion row outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalid        = "invalid"
	OutcomeClassifyFailed = "classification_failed"
	OutcomeStoreFailed    = "store_failed"
	OutcomeCanceled       = "canceled"
)

// Metrics holds Prometheus metrics for the application.
type Metrics struct {
	IngestRowsTotal    *prometheus.CounterVec
	IngestBatchesTotal *prometheus.CounterVec
	IngestTierTotal    *prometheus.CounterVec

	ClassifierRequestsTotal *prometheus.CounterVec
	ClassifierDuration      prometheus.Histogram
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter

	CorrectionsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the metrics on the default registry.
// It is safe to call repeatedly; registration happens once.
//
// Metrics:
//   - fincat_ingest_rows_total{outcome}
//   - fincat_ingest_batches_total{result}
//   - fincat_ingest_tier_total{tier}
//   - fincat_classifier_requests_total{result}
//   - fincat_classifier_duration_seconds
//   - fincat_merchant_cache_hits_total / fincat_merchant_cache_misses_total
//   - fincat_corrections_total{kind}
//   - fincat_http_requests_total{method,route,status}
//   - fincat_http_request_duration_seconds{method,route}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			IngestRowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_ingest_rows_total",
					Help: "Total number of ingested rows by outcome",
				},
				[]string{"outcome"},
			),
			IngestBatchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_ingest_batches_total",
					Help: "Total number of ingestion batches",
				},
				[]string{"result"}, // "processed" or "rejected"
			),
			IngestTierTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_ingest_tier_total",
					Help: "Ingested transactions by confidence tier",
				},
				[]string{"tier"},
			),
			ClassifierRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_classifier_requests_total",
					Help: "Total number of classifier calls",
				},
				[]string{"result"}, // "ok" or "error"
			),
			ClassifierDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "fincat_classifier_duration_seconds",
					Help:    "Duration of classifier calls including retries",
					Buckets: prometheus.DefBuckets,
				},
			),
			CacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "fincat_merchant_cache_hits_total",
					Help: "Merchant mapping cache hits",
				},
			),
			CacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "fincat_merchant_cache_misses_total",
					Help: "Merchant mapping cache misses",
				},
			),
			CorrectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_corrections_total",
					Help: "Total number of user corrections",
				},
				[]string{"kind"}, // "changed" or "verified"
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fincat_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "fincat_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})

	return globalMetrics
}

// RecordRow counts one ingested row. Safe on a nil receiver.
func (m *Metrics) RecordRow(outcome string) {
	if m == nil {
		return
	}
	m.IngestRowsTotal.WithLabelValues(outcome).Inc()
}

// RecordBatch counts one ingestion batch. Safe on a nil receiver.
func (m *Metrics) RecordBatch(result string) {
	if m == nil {
		return
	}
	m.IngestBatchesTotal.WithLabelValues(result).Inc()
}

// RecordTier counts one stored transaction by tier. Safe on a nil receiver.
func (m *Metrics) RecordTier(tier string) {
	if m == nil {
		return
	}
	m.IngestTierTotal.WithLabelValues(tier).Inc()
}

// RecordClassifierCall records a classifier call's result and latency.
// Safe on a nil receiver.
func (m *Metrics) RecordClassifierCall(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ClassifierRequestsTotal.WithLabelValues(result).Inc()
	m.ClassifierDuration.Observe(elapsed.Seconds())
}

// RecordCacheLookup counts a merchant cache hit or miss. Safe on a nil receiver.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// RecordCorrection counts a correction. Safe on a nil receiver.
func (m *Metrics) RecordCorrection(changed bool) {
	if m == nil {
		return
	}
	kind := "verified"
	if changed {
		kind = "changed"
	}
	m.CorrectionsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTP records one served request. route is the registered path
// template, not the raw URL. Safe on a nil receiver.
func (m *Metrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
