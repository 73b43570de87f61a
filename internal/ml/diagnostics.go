package ml

import (
	"math"
	"sort"
)

// FitSummary compares predicted against actual prices.
type FitSummary struct {
	Count int     `json:"count"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
	MAPE  float64 `json:"mape"`
}

// SummarizeFit computes error statistics over paired prices. Pairs with a
// non-positive or non-finite actual price are skipped; so are pairs with a
// non-finite prediction.
func SummarizeFit(actual, predicted []float64) FitSummary {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}

	var s FitSummary
	var sumAbs, sumSq, sumPct, sumActual float64
	var kept []float64

	for i := 0; i < n; i++ {
		a, p := actual[i], predicted[i]
		if !finite(a) || !finite(p) || a <= 0 {
			continue
		}
		err := p - a
		sumAbs += math.Abs(err)
		sumSq += err * err
		sumPct += math.Abs(err) / a
		sumActual += a
		kept = append(kept, a)
		s.Count++
	}
	if s.Count == 0 {
		return s
	}

	count := float64(s.Count)
	s.MAE = sumAbs / count
	s.RMSE = math.Sqrt(sumSq / count)
	s.MAPE = sumPct / count * 100

	mean := sumActual / count
	var ssTot float64
	for _, a := range kept {
		ssTot += (a - mean) * (a - mean)
	}
	if ssTot > 0 {
		s.R2 = 1 - sumSq/ssTot
	}
	return s
}

// Consistency compares the predictions stored in the dataset with fresh
// ones from the loaded pipeline. A large gap means the dataset was scored
// by a different model.
type Consistency struct {
	Count          int     `json:"count"`
	MeanAbsPctDiff float64 `json:"mean_abs_pct_diff"`
	MaxAbsPctDiff  float64 `json:"max_abs_pct_diff"`
	// KS is the two-sample Kolmogorov-Smirnov statistic between the two
	// price distributions.
	KS float64 `json:"ks"`
}

// CompareStored computes the consistency of stored and fresh predictions.
func CompareStored(stored, fresh []float64) Consistency {
	n := len(stored)
	if len(fresh) < n {
		n = len(fresh)
	}

	var c Consistency
	var a, b []float64
	var sum float64
	for i := 0; i < n; i++ {
		if !finite(stored[i]) || !finite(fresh[i]) || stored[i] == 0 {
			continue
		}
		d := math.Abs(fresh[i]-stored[i]) / math.Abs(stored[i]) * 100
		sum += d
		if d > c.MaxAbsPctDiff {
			c.MaxAbsPctDiff = d
		}
		a = append(a, stored[i])
		b = append(b, fresh[i])
		c.Count++
	}
	if c.Count == 0 {
		return c
	}
	c.MeanAbsPctDiff = sum / float64(c.Count)
	c.KS = kolmogorovSmirnov(a, b)
	return c
}

func kolmogorovSmirnov(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	maxDiff := 0.0
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		v := math.Min(x[i], y[j])
		for i < len(x) && x[i] <= v {
			i++
		}
		for j < len(y) && y[j] <= v {
			j++
		}
		diff := math.Abs(float64(i)/float64(len(x)) - float64(j)/float64(len(y)))
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return maxDiff
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
