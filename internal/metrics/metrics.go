// Package metrics provides Prometheus metrics collection for the house price
// dashboard. It defines the prediction, ranking, dataset and HTTP metrics
// exposed on the metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// Prediction metrics
	MLPredictions prometheus.Counter   // Total number of rows scored by the pipeline
	MLFailures    prometheus.Counter   // Total number of failed pipeline calls
	MLLatency     prometheus.Histogram // Pipeline call latency in seconds
	MLBatchSize   prometheus.Histogram // Rows per batch re-scoring call
	MLCacheHits   prometheus.Counter   // Single-row predictions served from cache
	MLCacheMisses prometheus.Counter   // Single-row predictions that reached the pipeline
	MLModelAge    prometheus.Gauge     // Age of the loaded artifact in seconds

	// Recommendation metrics
	DealsRanked prometheus.Histogram // Deals returned per ranking request

	// Dataset metrics
	DatasetRows prometheus.Gauge // Rows in the loaded dataset

	// Dashboard metrics
	HTTPRequests      *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration      *prometheus.HistogramVec // Request duration by route
	WSConnections     prometheus.Gauge         // Open live-prediction sockets
	PredictionsStored prometheus.Counter       // Predictions written to the history store

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of rows scored by the pipeline",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of failed pipeline calls",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Pipeline call latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		MLBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_batch_size",
			Help:    "Rows per batch re-scoring call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		MLCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_cache_hits_total",
			Help: "Single-row predictions served from cache",
		}),
		MLCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_cache_misses_total",
			Help: "Single-row predictions that reached the pipeline",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		DealsRanked: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deals_ranked",
			Help:    "Deals returned per ranking request",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		DatasetRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_rows",
			Help: "Rows in the loaded dataset",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Dashboard requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Dashboard request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Open live-prediction websocket connections",
		}),
		PredictionsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_stored_total",
			Help: "Predictions written to the history store",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// ObserveRequest records one dashboard request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
