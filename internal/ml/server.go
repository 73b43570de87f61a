package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ModelServer exposes a loaded pipeline over HTTP so that another process
// can use it as a remote pipeline. Predictions are returned in log space.
type ModelServer struct {
	artifact *Artifact
	server   *http.Server
	timeout  time.Duration
	stats    *serverStats
}

// HealthStatus is served at /health.
type HealthStatus struct {
	Healthy         bool    `json:"healthy"`
	ModelLoaded     bool    `json:"model_loaded"`
	ModelVersion    string  `json:"model_version"`
	PredictionCount int64   `json:"prediction_count"`
	ErrorRate       float64 `json:"error_rate"`
	AverageLatency  float64 `json:"average_latency_ms"`
	LastError       string  `json:"last_error,omitempty"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

type serverStats struct {
	mu           sync.Mutex
	requests     int64
	errors       int64
	totalLatency time.Duration
	lastError    string
	startTime    time.Time
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(artifact *Artifact, port int, timeout time.Duration) *ModelServer {
	ms := &ModelServer{
		artifact: artifact,
		timeout:  timeout,
		stats:    &serverStats{startTime: time.Now()},
	}

	ms.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      ms.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return ms
}

// Handler returns the server's routes.
func (ms *ModelServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", ms.handlePredict)
	mux.HandleFunc("/health", ms.handleHealth)
	mux.HandleFunc("/model/info", ms.handleModelInfo)
	mux.HandleFunc("/model/coefficients", ms.handleCoefficients)
	return mux
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PredictResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if len(req.Columns) == 0 {
		writeJSON(w, http.StatusBadRequest, PredictResponse{Error: "columns cannot be empty", RequestID: req.RequestID})
		return
	}

	ctx := r.Context()
	if ms.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ms.timeout)
		defer cancel()
	}

	preds, err := ms.artifact.Pipeline.Predict(ctx, req.Columns, req.Rows)
	latency := time.Since(start)
	ms.stats.record(latency, err)

	if err != nil {
		log.Error().Err(err).Str("request_id", req.RequestID).Int("rows", len(req.Rows)).Msg("prediction failed")
		status := http.StatusInternalServerError
		if IsSchemaMismatch(err) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, PredictResponse{
			Error:     err.Error(),
			ErrorKind: errorKind(err),
			RequestID: req.RequestID,
		})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Predictions:  preds,
		RequestID:    req.RequestID,
		ModelVersion: ms.artifact.Metadata.Version,
		LatencyMs:    float64(latency.Microseconds()) / 1000,
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := ms.Health()

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info := *ms.artifact.Metadata
	if cols := ms.artifact.InputColumns(); len(cols) > 0 {
		info.Features = cols
	}
	writeJSON(w, http.StatusOK, info)
}

func (ms *ModelServer) handleCoefficients(w http.ResponseWriter, r *http.Request) {
	explainer, ok := ms.artifact.Pipeline.(Explainer)
	if !ok {
		writeJSON(w, http.StatusOK, Explanation{Coefficients: []Coefficient{}})
		return
	}

	exp, err := explainer.Explain(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("explain failed")
		http.Error(w, fmt.Sprintf("explain failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// Health summarizes the server's request history.
func (ms *ModelServer) Health() *HealthStatus {
	ms.stats.mu.Lock()
	defer ms.stats.mu.Unlock()

	var avgLatency, errorRate float64
	if ms.stats.requests > 0 {
		avgLatency = float64(ms.stats.totalLatency.Milliseconds()) / float64(ms.stats.requests)
		errorRate = float64(ms.stats.errors) / float64(ms.stats.requests)
	}

	loaded := ms.artifact != nil && ms.artifact.Pipeline != nil
	version := ""
	if loaded {
		version = ms.artifact.Metadata.Version
	}

	return &HealthStatus{
		Healthy:         loaded && errorRate < 0.1,
		ModelLoaded:     loaded,
		ModelVersion:    version,
		PredictionCount: ms.stats.requests,
		ErrorRate:       errorRate,
		AverageLatency:  avgLatency,
		LastError:       ms.stats.lastError,
		UptimeSeconds:   time.Since(ms.stats.startTime).Seconds(),
	}
}

func (s *serverStats) record(latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.totalLatency += latency
	if err != nil && !IsSchemaMismatch(err) {
		s.errors++
		s.lastError = err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
