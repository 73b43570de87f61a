// Package app wires configuration to the dataset, the model artifact and
// the prediction service. Both the dashboard and the re-score command start
// up through it.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"house-insights/internal/cfg"
	"house-insights/internal/dataset"
	"house-insights/internal/ml"
)

// LoadEnv reads a .env file from the working directory when there is one.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}
}

// SetupLogging applies the configured level and output format.
func SetupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// LoadDataset reads the table from Postgres when a DSN is configured and
// from the CSV file otherwise.
func LoadDataset(ctx context.Context, c cfg.Settings) (*dataset.Table, error) {
	if c.UsesPostgres() {
		return dataset.LoadFromPostgres(ctx, c.DatasetDSN, c.DatasetTable)
	}
	return dataset.LoadFromCSV(c.DatasetPath)
}

// LoadArtifact loads the configured pipeline.
func LoadArtifact(ctx context.Context, c cfg.Settings) (*ml.Artifact, error) {
	return ml.LoadArtifact(ctx, ml.LoadOptions{
		Kind:       c.ModelKind,
		Path:       c.ModelPath,
		PythonPath: c.PythonPath,
		URL:        c.ModelURL,
		Timeout:    c.ModelTimeout,
	})
}

// NewService builds the prediction service for a table and artifact. The
// feature schema is the one the pipeline declares, or the table's feature
// columns when it declares none.
func NewService(c cfg.Settings, table *dataset.Table, artifact *ml.Artifact, m ml.MetricsInterface) (*ml.Service, error) {
	columns := artifact.InputColumns()
	if len(columns) == 0 {
		columns = table.FeatureColumns()
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no feature columns: the pipeline declares none and the dataset has none")
	}
	artifact.CheckColumns(table.FeatureColumns())

	opts := []ml.Option{
		ml.WithTargetTransform(artifact.Metadata.TargetTransform),
		ml.WithCache(c.CacheSize, c.CacheTTL),
	}
	if m != nil {
		opts = append(opts, ml.WithMetrics(m))
	}
	return ml.NewService(artifact.Pipeline, columns, opts...), nil
}
