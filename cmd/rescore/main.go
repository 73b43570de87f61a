package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"house-insights/internal/app"
	"house-insights/internal/cfg"
	"house-insights/internal/common"
	"house-insights/internal/dataset"
	"house-insights/internal/report"
	"house-insights/internal/storage"
)

func main() {
	var (
		datasetPath  = flag.String("dataset", "", "Dataset CSV (overrides config)")
		modelPath    = flag.String("model", "", "Model artifact (overrides config)")
		outputPath   = flag.String("output", "reports", "Output directory for reports")
		maxPrice     = flag.Float64("max-price", 0, "Maximum listed price (default from config)")
		minQuality   = flag.Int("min-quality", 0, "Minimum overall quality, 1-10 (default from config)")
		neighborhood = flag.String("neighborhood", common.NeighborhoodAll, "Neighborhood, or All")
		topN         = flag.Int("top", 0, "Number of deals to report (default from config)")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
		save         = flag.Bool("save", false, "Store the ranking in the history database under DATA_PATH (needs the dashboard stopped)")
	)
	flag.Parse()

	app.LoadEnv()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Override config with command line arguments
	if *logLevel != "" {
		c.LogLevel = *logLevel
	}
	app.SetupLogging(c.LogLevel, "console")

	if *datasetPath != "" {
		c.DatasetPath = *datasetPath
		c.DatasetDSN = ""
	}
	if *modelPath != "" {
		c.ModelPath = *modelPath
	}
	if *topN > 0 {
		c.TopN = *topN
	}

	filter := dataset.Filter{
		MaxPrice:     c.DefaultMaxPrice,
		MinQuality:   c.DefaultMinQual,
		Neighborhood: *neighborhood,
	}
	if *maxPrice > 0 {
		filter.MaxPrice = *maxPrice
	}
	if *minQuality != 0 {
		if *minQuality < common.MinQuality || *minQuality > common.MaxQuality {
			log.Fatal().Int("min_quality", *minQuality).Msg("min-quality must be between 1 and 10")
		}
		filter.MinQuality = *minQuality
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := app.LoadDataset(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	artifact, err := app.LoadArtifact(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load model")
	}

	svc, err := app.NewService(c, table, artifact, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up prediction service")
	}

	records := table.Filter(filter)
	log.Info().
		Int("rows", table.Len()).
		Int("candidates", len(records)).
		Float64("max_price", filter.MaxPrice).
		Int("min_quality", filter.MinQuality).
		Str("neighborhood", filter.Neighborhood).
		Msg("Re-scoring listings")

	ranking := svc.RankDeals(ctx, records, c.TopN)
	if ctx.Err() != nil {
		log.Fatal().Err(ctx.Err()).Msg("Re-scoring interrupted")
	}

	results := report.NewResults(filter, c.TopN, records, ranking)
	results.ModelVersion = artifact.Metadata.Version

	reporter := report.NewReporter(results, *outputPath)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}

	if *save {
		if err := saveRanking(c, results); err != nil {
			log.Error().Err(err).Msg("Failed to store ranking")
		}
	}

	// Print summary to console
	if err := reporter.WriteSummary(os.Stdout); err != nil {
		log.Error().Err(err).Msg("Failed to print summary")
	}

	log.Info().
		Str("output", *outputPath).
		Int("deals", len(results.Deals)).
		Int("failed", len(results.Failures)).
		Msg("Re-score completed")
}

// saveRanking records the run; the dashboard serves the latest one.
func saveRanking(c cfg.Settings, results *report.Results) error {
	if c.DataPath == "" {
		return fmt.Errorf("DATA_PATH is not configured")
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	snap := &storage.RankingSnapshot{
		Timestamp:    results.GeneratedAt,
		Source:       "rescore",
		Filter:       results.Filter,
		TopN:         results.TopN,
		Candidates:   results.Candidates,
		Failed:       len(results.Failures),
		ModelVersion: results.ModelVersion,
	}
	for _, d := range results.Deals {
		snap.Deals = append(snap.Deals, d.PredictionResult)
	}
	if err := store.StoreRanking(snap); err != nil {
		return err
	}
	log.Info().Str("id", snap.ID).Msg("Ranking stored")
	return nil
}
