// Package dashboard serves the house price explorer: dataset overview,
// model insights, an interactive price predictor and deal recommendations.
//
// Every page has a JSON counterpart under /api, and /ws/predict streams
// predictions for slider positions over a WebSocket.
package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"house-insights/internal/common"
	"house-insights/internal/dataset"
	"house-insights/internal/ml"
	"house-insights/internal/storage"
)

// HistoryStore persists interactive predictions and reads back saved
// batch rankings.
type HistoryStore interface {
	StorePrediction(rec *storage.PredictionRecord) error
	RecentPredictions(n int) ([]storage.PredictionRecord, error)
	LatestRanking() (*storage.RankingSnapshot, error)
}

// Metrics records dashboard traffic.
type Metrics interface {
	RequestObserve(route string, code int, d time.Duration)
	WSConnectionsAdd(delta float64)
	PredictionsStoredInc()
	ErrorsInc()
}

// Config holds the page defaults.
type Config struct {
	Port              int
	TopN              int
	DefaultMaxPrice   float64
	DefaultMinQuality int
	HistoryLimit      int
}

// Option configures optional collaborators.
type Option func(*Dashboard)

// WithHistory stores each interactive prediction and lists recent ones on
// the predict page.
func WithHistory(h HistoryStore) Option {
	return func(d *Dashboard) { d.history = h }
}

// WithMetrics records request counts and latencies.
func WithMetrics(m Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// Dashboard is the web UI over a dataset and a loaded pipeline.
type Dashboard struct {
	table    *dataset.Table
	service  *ml.Service
	artifact *ml.Artifact
	history  HistoryStore
	metrics  Metrics
	cfg      Config

	summary dataset.Summary
	sliders []dataset.SliderRange
	pages   *template.Template

	insightsOnce sync.Once
	insights     *ModelInsights

	router    *mux.Router
	server    *http.Server
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	isRunning bool
	mu        sync.Mutex
}

// New builds the dashboard. The dataset summary and slider bounds are
// computed once here since the table never changes.
func New(table *dataset.Table, service *ml.Service, artifact *ml.Artifact, cfg Config, opts ...Option) *Dashboard {
	if cfg.TopN <= 0 {
		cfg.TopN = common.DefaultTopN
	}
	if cfg.DefaultMaxPrice <= 0 {
		cfg.DefaultMaxPrice = common.DefaultMaxPrice
	}
	if cfg.DefaultMinQuality <= 0 {
		cfg.DefaultMinQuality = common.DefaultMinQuality
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}

	d := &Dashboard{
		table:    table,
		service:  service,
		artifact: artifact,
		cfg:      cfg,
		summary:  table.Summarize(common.DefaultHistogramBins, common.DefaultTopFeatures),
		sliders:  table.SliderRanges(common.SliderFeatures),
		pages:    parsePages(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]bool),
	}
	for _, opt := range opts {
		opt(d)
	}

	r := mux.NewRouter()
	r.Use(d.instrument)

	r.HandleFunc("/", d.handleOverview).Methods("GET")
	r.HandleFunc("/model", d.handleModelPage).Methods("GET")
	r.HandleFunc("/predict", d.handlePredictPage).Methods("GET")
	r.HandleFunc("/predict", d.handlePredictForm).Methods("POST")
	r.HandleFunc("/deals", d.handleDealsPage).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", d.handleSummaryAPI).Methods("GET")
	api.HandleFunc("/boxes", d.handleBoxesAPI).Methods("GET")
	api.HandleFunc("/sliders", d.handleSlidersAPI).Methods("GET")
	api.HandleFunc("/model", d.handleModelAPI).Methods("GET")
	api.HandleFunc("/predict", d.handlePredictAPI).Methods("POST")
	api.HandleFunc("/deals", d.handleDealsAPI).Methods("GET")
	api.HandleFunc("/history", d.handleHistoryAPI).Methods("GET")
	api.HandleFunc("/rankings/latest", d.handleLatestRankingAPI).Methods("GET")

	r.HandleFunc("/ws/predict", d.handleWebSocket).Methods("GET")
	r.HandleFunc("/health", d.handleHealth).Methods("GET")

	d.router = r
	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return d
}

// Handler returns the router, for tests and embedding.
func (d *Dashboard) Handler() http.Handler {
	return d.router
}

// Start starts the dashboard server
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go func() {
		log.Info().
			Str("address", d.server.Addr).
			Msg("Starting dashboard server")

		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Dashboard server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop closes open sockets and shuts the server down.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown dashboard server")
		return err
	}

	d.isRunning = false
	log.Info().Msg("Dashboard stopped")
	return nil
}

// instrument records each request under its route template.
func (d *Dashboard) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		if d.metrics != nil {
			d.metrics.RequestObserve(route, rec.status, time.Since(start))
			if rec.status >= http.StatusInternalServerError {
				d.metrics.ErrorsInc()
			}
		}
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijacking not supported")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
