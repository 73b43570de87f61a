package metrics

import "time"

// MetricsWrapper adapts Metrics to the small interfaces the ml, storage and
// dashboard packages depend on, so they do not import Prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

// ML prediction methods

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLBatchSizeObserve(v float64) {
	w.m.MLBatchSize.Observe(v)
}

func (w *MetricsWrapper) MLCacheHitInc() {
	w.m.MLCacheHits.Inc()
}

func (w *MetricsWrapper) MLCacheMissInc() {
	w.m.MLCacheMisses.Inc()
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) DealsRankedObserve(v float64) {
	w.m.DealsRanked.Observe(v)
}

// Dataset and dashboard methods

func (w *MetricsWrapper) DatasetRowsSet(n int) {
	w.m.DatasetRows.Set(float64(n))
}

func (w *MetricsWrapper) RequestObserve(route string, code int, d time.Duration) {
	w.m.ObserveRequest(route, code, d)
}

func (w *MetricsWrapper) WSConnectionsAdd(delta float64) {
	w.m.WSConnections.Add(delta)
}

func (w *MetricsWrapper) PredictionsStoredInc() {
	w.m.PredictionsStored.Inc()
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}
