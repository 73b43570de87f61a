// Package report turns a deal ranking into the tables and files shown to
// users: the dashboard's recommendations table and the batch re-score
// outputs.
package report

import (
	"time"

	"house-insights/internal/common"
	"house-insights/internal/dataset"
	"house-insights/internal/ml"
)

// Deal is a ranked listing with the attributes shown next to it.
type Deal struct {
	Rank int `json:"rank"`
	ml.PredictionResult
	Neighborhood string  `json:"neighborhood,omitempty"`
	OverallQual  float64 `json:"overall_qual"`
	GrLivArea    float64 `json:"gr_liv_area"`
	YearBuilt    float64 `json:"year_built"`
}

// Pair is one actual vs re-predicted price, for plotting.
type Pair struct {
	Index     int     `json:"index"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// Failure is a row that could not be scored.
type Failure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Results is one deal ranking run with everything needed to render it.
type Results struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	ModelVersion string         `json:"model_version"`
	Filter       dataset.Filter `json:"filter"`
	TopN         int            `json:"top_n"`
	Candidates   int            `json:"candidates"`
	Deals        []Deal         `json:"deals"`
	Pairs        []Pair         `json:"pairs"`
	Failures     []Failure      `json:"failures"`
	Fit          ml.FitSummary  `json:"fit"`

	// Consistency compares fresh predictions with the ones stored in the
	// dataset. Nil when the dataset has no stored predictions.
	Consistency *ml.Consistency `json:"consistency,omitempty"`
}

// NewResults joins a ranking with the filtered records it was computed from.
func NewResults(filter dataset.Filter, topN int, records []dataset.Record, rep ml.DealsReport) *Results {
	byIndex := make(map[int]dataset.Record, len(records))
	for _, r := range records {
		byIndex[r.Index] = r
	}

	res := &Results{
		GeneratedAt: time.Now(),
		Filter:      filter,
		TopN:        topN,
		Candidates:  len(records),
		Deals:       make([]Deal, 0, len(rep.Deals)),
		Pairs:       make([]Pair, 0, len(rep.Scored)),
		Failures:    make([]Failure, 0, len(rep.Failures)),
	}

	for i, d := range rep.Deals {
		deal := Deal{Rank: i + 1, PredictionResult: d}
		if rec, ok := byIndex[d.Index]; ok {
			deal.Neighborhood = rec.String(common.ColNeighborhood)
			deal.OverallQual = floatOrZero(rec, common.ColOverallQual)
			deal.GrLivArea = floatOrZero(rec, common.ColGrLivArea)
			deal.YearBuilt = floatOrZero(rec, common.ColYearBuilt)
		}
		res.Deals = append(res.Deals, deal)
	}

	var actual, predicted, stored, fresh []float64
	for _, s := range rep.Scored {
		if s.HasActual {
			res.Pairs = append(res.Pairs, Pair{Index: s.Index, Actual: s.ActualPrice, Predicted: s.PredictedPrice})
			actual = append(actual, s.ActualPrice)
			predicted = append(predicted, s.PredictedPrice)
		}
		if rec, ok := byIndex[s.Index]; ok {
			if p, ok := rec.Float(common.ColPredictedPrice); ok {
				stored = append(stored, p)
				fresh = append(fresh, s.PredictedPrice)
			}
		}
	}
	res.Fit = ml.SummarizeFit(actual, predicted)
	if len(stored) > 0 {
		c := ml.CompareStored(stored, fresh)
		res.Consistency = &c
	}

	for _, f := range rep.Failures {
		res.Failures = append(res.Failures, Failure{Row: f.Row, Error: f.Err.Error()})
	}
	return res
}

func floatOrZero(r dataset.Record, col string) float64 {
	if v, ok := r.Float(col); ok {
		return v
	}
	return 0
}
