package dataset

import (
	"math"
	"sort"

	"house-insights/internal/common"
)

// Bin is one histogram bucket. Hi is exclusive except for the last bucket.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Correlation is a feature's Pearson correlation with the target.
type Correlation struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// BoxStats summarizes the target within one category level.
type BoxStats struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
}

// SliderRange bounds a numeric input on the predict page.
type SliderRange struct {
	Feature string  `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
}

// Summary is everything the EDA page shows.
type Summary struct {
	Rows               int           `json:"rows"`
	PriceHistogram     []Bin         `json:"price_histogram"`
	TopCorrelations    []Correlation `json:"top_correlations"`
	CategoricalColumns []string      `json:"categorical_columns"`
}

// Summarize computes the EDA page's SalePrice histogram and the top
// correlated features.
func (t *Table) Summarize(bins, topN int) Summary {
	return Summary{
		Rows:               t.Len(),
		PriceHistogram:     Histogram(t.FloatColumn(common.ColSalePrice), bins),
		TopCorrelations:    t.Correlations(common.ColSalePrice, topN),
		CategoricalColumns: t.ColumnsOfKind(Categorical),
	}
}

// Histogram splits values into equal-width bins over [min, max].
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return []Bin{}
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// Correlations ranks numeric columns by their correlation with target,
// highest first, and returns at most n of them. The target itself is
// excluded; columns with undefined correlation are skipped.
func (t *Table) Correlations(target string, n int) []Correlation {
	var out []Correlation
	for _, col := range t.ColumnsOfKind(Numeric) {
		if col == target {
			continue
		}

		var xs, ys []float64
		for _, r := range t.Records {
			x, okx := r.Float(col)
			y, oky := r.Float(target)
			if okx && oky {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}

		c := Pearson(xs, ys)
		if math.IsNaN(c) {
			continue
		}
		out = append(out, Correlation{Feature: col, Value: c})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Pearson returns the sample correlation of xs and ys, or NaN when either
// side has no variance.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}

	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// CategoryBoxes summarizes SalePrice per level of a categorical column,
// ordered by level name.
func (t *Table) CategoryBoxes(col string) []BoxStats {
	groups := make(map[string][]float64)
	for _, r := range t.Records {
		level := r.String(col)
		if level == "" {
			continue
		}
		if p, ok := r.Float(common.ColSalePrice); ok {
			groups[level] = append(groups[level], p)
		}
	}

	out := make([]BoxStats, 0, len(groups))
	for level, prices := range groups {
		sort.Float64s(prices)
		out = append(out, BoxStats{
			Category: level,
			Count:    len(prices),
			Min:      prices[0],
			Q1:       Quantile(prices, 0.25),
			Median:   Quantile(prices, 0.5),
			Q3:       Quantile(prices, 0.75),
			Max:      prices[len(prices)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Quantile interpolates linearly between closest ranks of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// SliderRanges returns integer-truncated min, max and median for each
// feature, the bounds the predict page offers.
func (t *Table) SliderRanges(features []string) []SliderRange {
	out := make([]SliderRange, 0, len(features))
	for _, f := range features {
		values := t.FloatColumn(f)
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		out = append(out, SliderRange{
			Feature: f,
			Min:     math.Trunc(values[0]),
			Max:     math.Trunc(values[len(values)-1]),
			Median:  math.Trunc(Quantile(values, 0.5)),
		})
	}
	return out
}
