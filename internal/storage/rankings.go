package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"house-insights/internal/dataset"
	"house-insights/internal/ml"
)

// RankingSnapshot records one deal ranking run: the filter used, the
// deals returned and how many rows failed to score.
type RankingSnapshot struct {
	ID           string                `json:"id"`
	Timestamp    time.Time             `json:"timestamp"`
	Source       string                `json:"source"`
	Filter       dataset.Filter        `json:"filter"`
	TopN         int                   `json:"top_n"`
	Candidates   int                   `json:"candidates"`
	Failed       int                   `json:"failed"`
	Deals        []ml.PredictionResult `json:"deals"`
	ModelVersion string                `json:"model_version"`
}

// StoreRanking appends a ranking snapshot.
func (s *Store) StoreRanking(snap *RankingSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	return s.put(rankingsBucket, snap.Timestamp, snap.ID, snap)
}

// LatestRanking returns the most recent snapshot, or nil when none exists.
func (s *Store) LatestRanking() (*RankingSnapshot, error) {
	var latest *RankingSnapshot
	err := s.latest(rankingsBucket, 1, func(data []byte) bool {
		var snap RankingSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return false
		}
		latest = &snap
		return true
	})
	return latest, err
}

// RankingsInRange returns snapshots taken between start and end, oldest first.
func (s *Store) RankingsInRange(start, end time.Time) ([]RankingSnapshot, error) {
	out := []RankingSnapshot{}
	err := s.scanRange(rankingsBucket, start, end, func(data []byte) {
		var snap RankingSnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			out = append(out, snap)
		}
	})
	return out, err
}
