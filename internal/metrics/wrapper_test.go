package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper() (*Metrics, *MetricsWrapper) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	return m, NewWrapper(m)
}

func TestNewWrapper(t *testing.T) {
	m, wrapper := newTestWrapper()

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != m {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_MLMethods(t *testing.T) {
	m, wrapper := newTestWrapper()

	wrapper.MLPredictionsInc()
	wrapper.MLPredictionsInc()
	if v := testutil.ToFloat64(m.MLPredictions); v != 2 {
		t.Errorf("Expected 2 ML predictions, got %f", v)
	}

	wrapper.MLFailuresInc()
	if v := testutil.ToFloat64(m.MLFailures); v != 1 {
		t.Errorf("Expected 1 ML failure, got %f", v)
	}

	wrapper.MLCacheHitInc()
	wrapper.MLCacheMissInc()
	wrapper.MLCacheMissInc()
	if v := testutil.ToFloat64(m.MLCacheHits); v != 1 {
		t.Errorf("Expected 1 cache hit, got %f", v)
	}
	if v := testutil.ToFloat64(m.MLCacheMisses); v != 2 {
		t.Errorf("Expected 2 cache misses, got %f", v)
	}

	wrapper.MLModelAgeSet(3600.0)
	if v := testutil.ToFloat64(m.MLModelAge); v != 3600.0 {
		t.Errorf("Expected model age 3600.0, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	m, wrapper := newTestWrapper()

	for _, v := range []float64{0.001, 0.01, 0.1} {
		wrapper.MLLatencyObserve(v)
	}
	wrapper.MLBatchSizeObserve(250)
	wrapper.DealsRankedObserve(5)

	if n := testutil.CollectAndCount(m.MLLatency); n != 1 {
		t.Errorf("Expected one latency series, got %d", n)
	}

	expected := `
# HELP deals_ranked Deals returned per ranking request
# TYPE deals_ranked histogram
deals_ranked_bucket{le="0"} 0
deals_ranked_bucket{le="5"} 1
deals_ranked_bucket{le="10"} 1
deals_ranked_bucket{le="15"} 1
deals_ranked_bucket{le="20"} 1
deals_ranked_bucket{le="25"} 1
deals_ranked_bucket{le="30"} 1
deals_ranked_bucket{le="35"} 1
deals_ranked_bucket{le="40"} 1
deals_ranked_bucket{le="45"} 1
deals_ranked_bucket{le="50"} 1
deals_ranked_bucket{le="+Inf"} 1
deals_ranked_sum 5
deals_ranked_count 1
`
	if err := testutil.CollectAndCompare(m.DealsRanked, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected deals_ranked output: %v", err)
	}
}

func TestMetricsWrapper_DashboardMethods(t *testing.T) {
	m, wrapper := newTestWrapper()

	wrapper.DatasetRowsSet(1460)
	if v := testutil.ToFloat64(m.DatasetRows); v != 1460 {
		t.Errorf("Expected 1460 dataset rows, got %f", v)
	}

	wrapper.RequestObserve("/predict", 200, 15*time.Millisecond)
	wrapper.RequestObserve("/predict", 200, 5*time.Millisecond)
	wrapper.RequestObserve("/predict", 422, 5*time.Millisecond)
	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/predict", "200")); v != 2 {
		t.Errorf("Expected 2 successful requests, got %f", v)
	}
	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/predict", "422")); v != 1 {
		t.Errorf("Expected 1 rejected request, got %f", v)
	}

	wrapper.WSConnectionsAdd(1)
	wrapper.WSConnectionsAdd(1)
	wrapper.WSConnectionsAdd(-1)
	if v := testutil.ToFloat64(m.WSConnections); v != 1 {
		t.Errorf("Expected 1 open websocket, got %f", v)
	}

	wrapper.PredictionsStoredInc()
	wrapper.ErrorsInc()
	if v := testutil.ToFloat64(m.PredictionsStored); v != 1 {
		t.Errorf("Expected 1 stored prediction, got %f", v)
	}
	if v := testutil.ToFloat64(m.ErrorsTotal); v != 1 {
		t.Errorf("Expected 1 error, got %f", v)
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two registries must not conflict.
	a, _ := newTestWrapper()
	b, _ := newTestWrapper()

	a.MLPredictions.Inc()
	if v := testutil.ToFloat64(b.MLPredictions); v != 0 {
		t.Errorf("Expected isolated registries, got %f", v)
	}
}
