package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"house-insights/internal/report"
	"house-insights/internal/storage"
)

// historyExport is everything stored in a time window.
type historyExport struct {
	Start       time.Time                  `json:"start"`
	End         time.Time                  `json:"end"`
	Predictions []storage.PredictionRecord `json:"predictions"`
	Rankings    []storage.RankingSnapshot  `json:"rankings"`
}

func main() {
	var (
		dataPath   = flag.String("data", "data", "Data directory path")
		outputPath = flag.String("output", "", "Output JSON file path (empty prints a listing only)")
		days       = flag.Int("days", 30, "Number of days to export (0 for all)")
	)
	flag.Parse()

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	end := time.Now()
	start := time.Unix(0, 0)
	if *days > 0 {
		start = end.AddDate(0, 0, -*days)
	}

	predictions, err := store.PredictionsInRange(start, end)
	if err != nil {
		log.Fatalf("Failed to read predictions: %v", err)
	}
	rankings, err := store.RankingsInRange(start, end)
	if err != nil {
		log.Fatalf("Failed to read rankings: %v", err)
	}

	fmt.Printf("Predictions since %s: %d\n", start.Format("2006-01-02"), len(predictions))
	for _, p := range predictions {
		fmt.Printf("  %s  %-9s  %12s  model %s\n",
			p.Timestamp.Format("2006-01-02 15:04:05"), p.Source, report.FormatPrice(p.PredictedPrice), p.ModelVersion)
	}

	fmt.Printf("\nRankings since %s: %d\n", start.Format("2006-01-02"), len(rankings))
	for _, r := range rankings {
		fmt.Printf("  %s  %s  %d deals from %d houses, %d failed (max %s, quality %d+, %s)\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Source, len(r.Deals), r.Candidates, r.Failed,
			report.FormatPrice(r.Filter.MaxPrice), r.Filter.MinQuality, r.Filter.Neighborhood)
	}

	if *outputPath == "" {
		return
	}

	data, err := json.MarshalIndent(historyExport{
		Start:       start,
		End:         end,
		Predictions: predictions,
		Rankings:    rankings,
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal export: %v", err)
	}
	if err := os.WriteFile(*outputPath, data, 0644); err != nil {
		log.Fatalf("Failed to write export: %v", err)
	}
	log.Printf("Exported %d predictions and %d rankings to %s", len(predictions), len(rankings), *outputPath)
}
