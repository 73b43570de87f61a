package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"house-insights/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcPipeline scores each row independently with fn. Like a real pipeline
// it fails the whole call when any row fails.
type funcPipeline struct {
	mu    sync.Mutex
	calls int
	fn    func(row map[string]any) (float64, error)
}

func (p *funcPipeline) Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	out := make([]float64, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(columns))
		for j, c := range columns {
			m[c] = row[j]
		}
		y, err := p.fn(m)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

func (p *funcPipeline) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// targetPipeline returns log1p of the row's "Target" column.
func targetPipeline() *funcPipeline {
	return &funcPipeline{fn: func(row map[string]any) (float64, error) {
		v, _ := row["Target"].(float64)
		return math.Log1p(v), nil
	}}
}

func dealRecords(actual, predicted []float64) []dataset.Record {
	records := make([]dataset.Record, len(actual))
	for i := range actual {
		records[i] = dataset.Record{
			Index: i,
			Fields: map[string]any{
				"SalePrice":      actual[i],
				"PredictedPrice": predicted[i],
				"Target":         predicted[i],
				"Neighborhood":   "CollgCr",
			},
		}
	}
	return records
}

func TestAlign(t *testing.T) {
	expected := []string{"OverallQual", "GrLivArea", "Neighborhood", "PoolArea"}
	input := map[string]any{
		"OverallQual":  7.0,
		"Neighborhood": "CollgCr",
		"GrLivArea":    nil,
		"SalePrice":    200000.0,
	}

	v := Align(input, expected)

	require.Equal(t, expected, v.Columns)
	require.Len(t, v.Values, len(expected))
	assert.Equal(t, 7.0, v.Values[0])
	assert.Nil(t, v.Values[1], "present values are kept, even when nil")
	assert.Equal(t, "CollgCr", v.Values[2])
	assert.Equal(t, 0.0, v.Values[3])

	_, ok := v.Get("SalePrice")
	assert.False(t, ok, "columns the pipeline does not expect are dropped")
}

func TestAlign_Properties(t *testing.T) {
	expected := []string{"A", "B", "C", "D", "E"}
	inputs := []map[string]any{
		{},
		{"A": 1.0},
		{"A": 1.0, "B": "x", "C": 3.5, "D": -2.0, "E": 0.0},
		{"Z": 9.0, "C": 42.0},
	}

	for i, input := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			m := Align(input, expected).Map()
			assert.Len(t, m, len(expected))
			for _, col := range expected {
				got, ok := m[col]
				require.True(t, ok, "column %s missing", col)
				if want, present := input[col]; present {
					assert.Equal(t, want, got)
				} else {
					assert.Equal(t, 0.0, got)
				}
			}
		})
	}
}

func TestAlignTable(t *testing.T) {
	records := dealRecords([]float64{100000, 150000}, []float64{120000, 140000})
	vectors := AlignTable(records, []string{"Target", "Missing"})

	require.Len(t, vectors, 2)
	assert.Equal(t, []any{120000.0, 0.0}, vectors[0].Values)
	assert.Equal(t, []any{140000.0, 0.0}, vectors[1].Values)
}

func TestPredictPrice_InvertsLogTransform(t *testing.T) {
	svc := NewService(targetPipeline(), []string{"Target"})

	price, err := svc.PredictPrice(context.Background(), svc.Align(map[string]any{"Target": 250000.0}))
	require.NoError(t, err)
	assert.InDelta(t, 250000.0, price, 1e-6)
}

func TestPredictPrice_Monotonic(t *testing.T) {
	raw := 0.0
	p := &funcPipeline{fn: func(map[string]any) (float64, error) { return raw, nil }}
	svc := NewService(p, []string{"x"})

	prev := math.Inf(-1)
	for raw = -2; raw <= 15; raw += 0.25 {
		price, err := svc.PredictPrice(context.Background(), svc.Align(nil))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, price, prev, "raw=%v", raw)
		prev = price
	}
}

func TestPredictPrice_TransformNone(t *testing.T) {
	p := &funcPipeline{fn: func(map[string]any) (float64, error) { return 123456, nil }}
	svc := NewService(p, []string{"x"}, WithTargetTransform(TransformNone))

	price, err := svc.PredictPrice(context.Background(), svc.Align(nil))
	require.NoError(t, err)
	assert.Equal(t, 123456.0, price)
}

func TestPredictPrice_Errors(t *testing.T) {
	tests := []struct {
		name   string
		raw    float64
		err    error
		schema bool
	}{
		{"pipeline error", 0, errors.New("boom"), false},
		{"unseen level", 0, &SchemaMismatchError{Column: "Neighborhood", Value: "Atlantis", Reason: "unknown"}, true},
		{"nan output", math.NaN(), nil, false},
		{"overflow", 1e6, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &MockMetrics{}
			p := &funcPipeline{fn: func(map[string]any) (float64, error) { return tt.raw, tt.err }}
			svc := NewService(p, []string{"x"}, WithMetrics(metrics))

			_, err := svc.PredictPrice(context.Background(), svc.Align(nil))
			require.Error(t, err)

			var pe *PredictionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, -1, pe.Row)
			assert.Equal(t, tt.schema, IsSchemaMismatch(err))
			assert.Equal(t, 1, metrics.failures)
		})
	}
}

func TestPredictPrice_DegradedNotClamped(t *testing.T) {
	// log1p(-0.5) maps back to a negative price
	p := &funcPipeline{fn: func(map[string]any) (float64, error) { return math.Log1p(-0.5), nil }}
	svc := NewService(p, []string{"x"})

	res, err := svc.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, res.PredictedPrice, 1e-9)
	assert.True(t, res.Degraded)
	assert.False(t, res.HasActual)
}

func TestPredict_SliderScenario(t *testing.T) {
	export := sampleExport()
	pipeline, err := NewLinearPipeline(export)
	require.NoError(t, err)

	// Expected columns include ones the user does not set; they default to 0.
	columns := []string{"OverallQual", "GrLivArea", "GarageCars", "TotalBsmtSF", "YearBuilt", "LotArea", "Neighborhood"}
	svc := NewService(pipeline, columns)

	res, err := svc.Predict(context.Background(), map[string]any{
		"OverallQual": 7.0,
		"GrLivArea":   1800.0,
		"GarageCars":  2.0,
		"TotalBsmtSF": 900.0,
		"YearBuilt":   2005.0,
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.PredictedPrice) || math.IsInf(res.PredictedPrice, 0))
	assert.Greater(t, res.PredictedPrice, 0.0)
	assert.False(t, res.Degraded)
}

func TestPredict_Cache(t *testing.T) {
	metrics := &MockMetrics{}
	p := targetPipeline()
	svc := NewService(p, []string{"Target"}, WithCache(10, time.Minute), WithMetrics(metrics))

	input := map[string]any{"Target": 99000.0}
	first, err := svc.Predict(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.Predict(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.callCount())
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestPredict_NoCacheCallsEveryTime(t *testing.T) {
	p := targetPipeline()
	svc := NewService(p, []string{"Target"})

	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), map[string]any{"Target": 1.0})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.callCount())
}

func TestRankDeals_Scenario(t *testing.T) {
	records := dealRecords(
		[]float64{100000, 150000, 200000},
		[]float64{120000, 140000, 190000},
	)
	svc := NewService(targetPipeline(), []string{"Target"})

	report := svc.RankDeals(context.Background(), records, 2)

	require.Len(t, report.Scored, 3)
	assert.InDelta(t, 20.0, report.Scored[0].DeviationPct, 1e-6)
	assert.InDelta(t, -6.67, report.Scored[1].DeviationPct, 0.005)
	assert.InDelta(t, -5.0, report.Scored[2].DeviationPct, 1e-6)

	require.Len(t, report.Deals, 2)
	assert.Equal(t, 0, report.Deals[0].Index)
	assert.Equal(t, 2, report.Deals[1].Index)
	assert.Empty(t, report.Failures)
}

func TestRankDeals_SortedAndBounded(t *testing.T) {
	actual := []float64{100000, 200000, 150000, 300000, 250000, 120000}
	predicted := []float64{110000, 180000, 150000, 330000, 200000, 150000}
	records := dealRecords(actual, predicted)
	svc := NewService(targetPipeline(), []string{"Target"})

	for topN := 0; topN <= len(records)+2; topN++ {
		deals := svc.RankDeals(context.Background(), records, topN).Deals

		want := topN
		if want > len(records) {
			want = len(records)
		}
		assert.Len(t, deals, want, "topN=%d", topN)
		for i := 1; i < len(deals); i++ {
			assert.GreaterOrEqual(t, deals[i-1].DeviationPct, deals[i].DeviationPct)
		}
	}
}

func TestRankDeals_StableTies(t *testing.T) {
	records := dealRecords(
		[]float64{100000, 200000, 100000, 50000},
		[]float64{110000, 220000, 110000, 40000},
	)
	// Skip the log round trip so equal deviations compare equal.
	raw := &funcPipeline{fn: func(row map[string]any) (float64, error) {
		v, _ := row["Target"].(float64)
		return v, nil
	}}
	svc := NewService(raw, []string{"Target"}, WithTargetTransform(TransformNone))

	deals := svc.RankDeals(context.Background(), records, 4).Deals
	require.Len(t, deals, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{deals[0].Index, deals[1].Index, deals[2].Index, deals[3].Index})
}

func TestRankDeals_Empty(t *testing.T) {
	p := targetPipeline()
	svc := NewService(p, []string{"Target"})

	report := svc.RankDeals(context.Background(), nil, 5)
	assert.NotNil(t, report.Deals)
	assert.Empty(t, report.Deals)
	assert.Empty(t, report.Scored)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 0, p.callCount(), "empty input must not reach the pipeline")
}

func TestRankDeals_IsolatesFailingRow(t *testing.T) {
	p := &funcPipeline{fn: func(row map[string]any) (float64, error) {
		if row["Neighborhood"] == "Atlantis" {
			return 0, &SchemaMismatchError{Column: "Neighborhood", Value: "Atlantis", Reason: "category not seen during training"}
		}
		v, _ := row["Target"].(float64)
		return math.Log1p(v), nil
	}}
	records := dealRecords(
		[]float64{100000, 150000, 200000},
		[]float64{120000, 140000, 190000},
	)
	records[1].Fields["Neighborhood"] = "Atlantis"

	metrics := &MockMetrics{}
	svc := NewService(p, []string{"Target", "Neighborhood"}, WithMetrics(metrics))
	report := svc.RankDeals(context.Background(), records, 5)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Row)
	assert.True(t, IsSchemaMismatch(report.Failures[0]))

	require.Len(t, report.Deals, 2)
	assert.Equal(t, 0, report.Deals[0].Index)
	assert.Equal(t, 2, report.Deals[1].Index)

	// one failed batch call plus one call per row
	assert.Equal(t, 4, p.callCount())
	assert.Equal(t, []float64{3}, metrics.batchSizes)
	assert.Equal(t, []float64{2}, metrics.dealsRanked)
}

func TestPredictRecords_CancelledContext(t *testing.T) {
	p := &funcPipeline{fn: func(map[string]any) (float64, error) { return 0, errors.New("unavailable") }}
	svc := NewService(p, []string{"Target"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := svc.PredictRecords(ctx, dealRecords([]float64{1, 2}, []float64{1, 2}))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRankByDeviation_DoesNotModifyInput(t *testing.T) {
	in := []PredictionResult{{Index: 0, DeviationPct: -1}, {Index: 1, DeviationPct: 5}}
	out := RankByDeviation(in, 1)

	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Index)
	assert.Equal(t, 0, in[0].Index)
}

func TestService_ConcurrentPredict(t *testing.T) {
	metrics := &MockMetrics{}
	svc := NewService(targetPipeline(), []string{"Target"}, WithCache(100, time.Minute), WithMetrics(metrics))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := svc.Predict(context.Background(), map[string]any{"Target": float64(id*1000 + j%5)})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, metrics.cacheHits+metrics.cacheMisses)
}
