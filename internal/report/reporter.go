package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Output file names.
const (
	SummaryFile = "deals_summary.txt"
	DealsFile   = "deals.csv"
	PairsFile   = "predictions.csv"
	JSONFile    = "deals_report.json"
)

// Reporter writes a ranking run to disk.
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes every report format into the output directory.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateDealsCSV(); err != nil {
		return err
	}
	if err := r.generatePairsCSV(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	path := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := r.WriteSummary(file); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	log.Info().Str("file", path).Msg("Summary report generated")
	return nil
}

// WriteSummary writes the human-readable summary.
func (r *Reporter) WriteSummary(w io.Writer) error {
	res := r.results
	ew := &errWriter{w: w}

	ew.printf("DEAL RANKING SUMMARY\n")
	ew.printf("====================\n\n")
	ew.printf("Generated: %s\n", res.GeneratedAt.Format("2006-01-02 15:04:05"))
	ew.printf("Model Version: %s\n\n", res.ModelVersion)

	ew.printf("FILTER\n")
	ew.printf("------\n")
	ew.printf("Max Price: %s\n", FormatPrice(res.Filter.MaxPrice))
	ew.printf("Min Quality: %d\n", res.Filter.MinQuality)
	ew.printf("Neighborhood: %s\n\n", res.Filter.Neighborhood)

	ew.printf("SCORING\n")
	ew.printf("-------\n")
	ew.printf("Candidates: %d\n", res.Candidates)
	ew.printf("Scored: %d\n", len(res.Pairs))
	ew.printf("Failed: %d\n", len(res.Failures))
	if res.Fit.Count > 0 {
		ew.printf("MAE: %s\n", FormatPrice(res.Fit.MAE))
		ew.printf("RMSE: %s\n", FormatPrice(res.Fit.RMSE))
		ew.printf("R2: %.4f\n", res.Fit.R2)
		ew.printf("MAPE: %.2f%%\n", res.Fit.MAPE)
	}
	if c := res.Consistency; c != nil {
		ew.printf("Stored vs Fresh: mean %.2f%%, max %.2f%%, KS %.4f\n",
			c.MeanAbsPctDiff, c.MaxAbsPctDiff, c.KS)
	}

	ew.printf("\nTOP %d DEALS\n", res.TopN)
	ew.printf("------------\n")
	if len(res.Deals) == 0 {
		ew.printf("No houses match the filter.\n")
	}
	for _, d := range res.Deals {
		ew.printf("%d. row %d %s: listed %s, predicted %s (%s)\n",
			d.Rank, d.Index, d.Neighborhood,
			FormatPrice(d.ActualPrice), FormatPrice(d.PredictedPrice), FormatPct(d.DeviationPct))
	}
	return ew.err
}

func (r *Reporter) generateDealsCSV() error {
	path := filepath.Join(r.outputPath, DealsFile)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create deals file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Rank", "Index", "Neighborhood", "OverallQual", "GrLivArea", "YearBuilt",
		"SalePrice", "PredictedPrice", "DiffPercent",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, d := range r.results.Deals {
		record := []string{
			fmt.Sprintf("%d", d.Rank),
			fmt.Sprintf("%d", d.Index),
			d.Neighborhood,
			fmt.Sprintf("%.0f", d.OverallQual),
			fmt.Sprintf("%.0f", d.GrLivArea),
			fmt.Sprintf("%.0f", d.YearBuilt),
			fmt.Sprintf("%.2f", d.ActualPrice),
			fmt.Sprintf("%.2f", d.PredictedPrice),
			fmt.Sprintf("%.2f", d.DeviationPct),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write deals file: %w", err)
	}

	log.Info().Str("file", path).Int("deals", len(r.results.Deals)).Msg("Deals table generated")
	return nil
}

func (r *Reporter) generatePairsCSV() error {
	path := filepath.Join(r.outputPath, PairsFile)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create predictions file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Index", "SalePrice", "PredictedPrice"}); err != nil {
		return err
	}
	for _, p := range r.results.Pairs {
		record := []string{
			fmt.Sprintf("%d", p.Index),
			fmt.Sprintf("%.2f", p.Actual),
			fmt.Sprintf("%.2f", p.Predicted),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write predictions file: %w", err)
	}

	log.Info().Str("file", path).Msg("Predictions table generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	path := filepath.Join(r.outputPath, JSONFile)

	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", path).Msg("JSON report generated")
	return nil
}

// errWriter keeps the first write error so the summary can be written
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
