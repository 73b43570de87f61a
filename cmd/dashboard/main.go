package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"house-insights/internal/app"
	"house-insights/internal/cfg"
	"house-insights/internal/dashboard"
	"house-insights/internal/metrics"
	"house-insights/internal/ml"
	"house-insights/internal/storage"
)

func main() {
	app.LoadEnv()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	app.SetupLogging(c.LogLevel, c.LogFormat)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	startMetricsServer(ctx, c)

	table, err := app.LoadDataset(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("dataset load failed")
	}
	mw.DatasetRowsSet(table.Len())
	log.Info().Int("rows", table.Len()).Int("columns", len(table.Columns)).Msg("Dataset loaded")

	artifact, err := app.LoadArtifact(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	svc, err := app.NewService(c, table, artifact, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("prediction service setup failed")
	}

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	opts := []dashboard.Option{dashboard.WithMetrics(mw)}
	if store != nil {
		opts = append(opts, dashboard.WithHistory(store))
	}
	dash := dashboard.New(table, svc, artifact, dashboard.Config{
		Port:              c.DashboardPort,
		TopN:              c.TopN,
		DefaultMaxPrice:   c.DefaultMaxPrice,
		DefaultMinQuality: c.DefaultMinQual,
	}, opts...)
	if err := dash.Start(); err != nil {
		log.Fatal().Err(err).Msg("dashboard start failed")
	}

	modelServer := startModelServer(c, artifact)
	go trackModelAge(ctx, artifact, mw)

	waitForShutdown(ctx, cancel)

	if err := dash.Stop(); err != nil {
		log.Error().Err(err).Msg("dashboard shutdown failed")
	}
	if modelServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := modelServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("model server shutdown failed")
		}
	}
}

// initializeStorage opens the history store if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startModelServer exposes the loaded pipeline over HTTP when
// ML_SERVER_PORT is configured, so other processes can use it remotely.
func startModelServer(c cfg.Settings, artifact *ml.Artifact) *ml.ModelServer {
	if c.MLServerPort <= 0 {
		return nil
	}
	if c.ModelKind == ml.KindRemote {
		log.Warn().Msg("ML_SERVER_PORT ignored: the model is already remote")
		return nil
	}

	server := ml.NewModelServer(artifact, c.MLServerPort, c.ModelTimeout)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ML server failed")
		}
	}()
	return server
}

// trackModelAge keeps the model age gauge current.
func trackModelAge(ctx context.Context, artifact *ml.Artifact, mw *metrics.MetricsWrapper) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		mw.MLModelAgeSet(artifact.Age().Seconds())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// waitForShutdown blocks until a shutdown signal arrives
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
