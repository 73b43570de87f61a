package ml

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"house-insights/internal/dataset"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the prediction service
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLBatchSizeObserve(float64)
	MLCacheHitInc()
	MLCacheMissInc()
	DealsRankedObserve(float64)
}

// TargetTransform names the transform applied to SalePrice at training time.
type TargetTransform string

const (
	TransformLog1p TargetTransform = "log1p"
	TransformNone  TargetTransform = "none"
)

// Invert maps a raw pipeline output back to price units.
func (t TargetTransform) Invert(raw float64) float64 {
	if t == TransformNone {
		return raw
	}
	return math.Expm1(raw)
}

// PredictionResult is a price prediction for one record. DeviationPct is
// only meaningful when HasActual is set.
type PredictionResult struct {
	Index          int     `json:"index"`
	PredictedPrice float64 `json:"predicted_price"`
	ActualPrice    float64 `json:"actual_price,omitempty"`
	DeviationPct   float64 `json:"deviation_pct"`
	HasActual      bool    `json:"has_actual"`
	// Degraded is set when the pipeline produced a non-positive price.
	Degraded bool `json:"degraded,omitempty"`
}

// RowResult is the outcome of predicting one row of a batch.
type RowResult struct {
	PredictionResult
	Err error `json:"-"`
}

// DealsReport is the outcome of ranking a filtered table.
type DealsReport struct {
	// Deals holds at most topN results, best deal first.
	Deals []PredictionResult `json:"deals"`
	// Scored holds every successfully scored row in input order.
	Scored []PredictionResult `json:"scored"`
	// Failures holds rows the pipeline could not score.
	Failures []*PredictionError `json:"-"`
}

// Service is the prediction-serving core. The pipeline and expected columns
// are fixed at construction and shared read-only, so a Service is safe for
// concurrent use.
type Service struct {
	pipeline  Pipeline
	columns   []string
	transform TargetTransform
	cache     *PredictionCache
	metrics   MetricsInterface
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the single-row prediction cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) { s.cache = NewPredictionCache(size, ttl) }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m MetricsInterface) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTargetTransform overrides the default log1p inversion.
func WithTargetTransform(t TargetTransform) Option {
	return func(s *Service) {
		if t != "" {
			s.transform = t
		}
	}
}

// NewService wires a loaded pipeline to the feature schema it was fit on.
func NewService(pipeline Pipeline, columns []string, opts ...Option) *Service {
	s := &Service{
		pipeline:  pipeline,
		columns:   columns,
		transform: TransformLog1p,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Columns returns the expected feature schema.
func (s *Service) Columns() []string {
	return s.columns
}

// Pipeline returns the underlying artifact.
func (s *Service) Pipeline() Pipeline {
	return s.pipeline
}

// Align projects input onto the service's feature schema.
func (s *Service) Align(input map[string]any) FeatureVector {
	return Align(input, s.columns)
}

// PredictPrice scores one aligned vector and returns the price in currency
// units. The result is not clamped: a non-positive price is returned as-is.
func (s *Service) PredictPrice(ctx context.Context, v FeatureVector) (float64, error) {
	prices, err := s.predictVectors(ctx, []FeatureVector{v})
	if err != nil {
		return 0, &PredictionError{Row: -1, Err: err}
	}
	return prices[0], nil
}

// Predict aligns user-chosen feature values and predicts a price, using the
// cache when enabled.
func (s *Service) Predict(ctx context.Context, input map[string]any) (PredictionResult, error) {
	v := s.Align(input)

	key := s.cache.Key(v)
	if price, ok := s.cache.Get(key); ok {
		s.cacheHit()
		return newResult(-1, price, 0, false), nil
	}
	s.cacheMiss()

	price, err := s.PredictPrice(ctx, v)
	if err != nil {
		return PredictionResult{}, err
	}
	s.cache.Put(key, price)

	return newResult(-1, price, 0, false), nil
}

// PredictRecords re-scores dataset records. The batch is first sent to the
// pipeline in one call; when that fails, rows are retried one at a time so a
// single bad row does not fail the others.
func (s *Service) PredictRecords(ctx context.Context, records []dataset.Record) []RowResult {
	results := make([]RowResult, len(records))
	if len(records) == 0 {
		return results
	}

	vectors := AlignTable(records, s.columns)
	if s.metrics != nil {
		s.metrics.MLBatchSizeObserve(float64(len(records)))
	}

	prices, err := s.predictVectors(ctx, vectors)
	if err == nil {
		for i, r := range records {
			results[i] = RowResult{PredictionResult: newResult(r.Index, prices[i], r.SalePrice(), true)}
		}
		return results
	}

	log.Warn().Err(err).Int("rows", len(records)).Msg("Batch prediction failed, scoring rows individually")

	for i, r := range records {
		if ctx.Err() != nil {
			results[i] = RowResult{
				PredictionResult: PredictionResult{Index: r.Index},
				Err:              &PredictionError{Row: r.Index, Err: ctx.Err()},
			}
			continue
		}

		price, err := s.predictVectors(ctx, vectors[i:i+1])
		if err != nil {
			results[i] = RowResult{
				PredictionResult: PredictionResult{Index: r.Index},
				Err:              &PredictionError{Row: r.Index, Err: err},
			}
			continue
		}
		results[i] = RowResult{PredictionResult: newResult(r.Index, price[0], r.SalePrice(), true)}
	}
	return results
}

// RankDeals scores every record, sorts by deviation from the listed price,
// largest first, and keeps the first topN. Ties keep input order. An empty
// input yields an empty report.
func (s *Service) RankDeals(ctx context.Context, records []dataset.Record, topN int) DealsReport {
	report := DealsReport{
		Deals:  []PredictionResult{},
		Scored: make([]PredictionResult, 0, len(records)),
	}

	for _, rr := range s.PredictRecords(ctx, records) {
		if rr.Err != nil {
			report.Failures = append(report.Failures, rr.Err.(*PredictionError))
			continue
		}
		report.Scored = append(report.Scored, rr.PredictionResult)
	}

	report.Deals = RankByDeviation(report.Scored, topN)
	if s.metrics != nil {
		s.metrics.DealsRankedObserve(float64(len(report.Deals)))
	}
	return report
}

// RankByDeviation returns at most topN results ordered by DeviationPct
// descending, ties broken by input order. The input is not modified.
func RankByDeviation(results []PredictionResult, topN int) []PredictionResult {
	if topN <= 0 || len(results) == 0 {
		return []PredictionResult{}
	}

	ranked := make([]PredictionResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DeviationPct > ranked[j].DeviationPct
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// DeviationPct is the signed gap between predicted and actual price as a
// percentage of the actual price.
func DeviationPct(predicted, actual float64) float64 {
	return (predicted - actual) / actual * 100
}

func newResult(index int, price, actual float64, hasActual bool) PredictionResult {
	r := PredictionResult{
		Index:          index,
		PredictedPrice: price,
		Degraded:       price <= 0,
	}
	if hasActual && actual > 0 {
		r.ActualPrice = actual
		r.DeviationPct = DeviationPct(price, actual)
		r.HasActual = true
	}
	return r
}

// predictVectors calls the pipeline and inverts the target transform.
func (s *Service) predictVectors(ctx context.Context, vectors []FeatureVector) ([]float64, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	rows := make([][]any, len(vectors))
	for i, v := range vectors {
		rows[i] = v.Values
	}

	raw, err := s.pipeline.Predict(ctx, s.columns, rows)
	if err != nil {
		s.failure()
		return nil, err
	}
	if len(raw) != len(vectors) {
		s.failure()
		return nil, fmt.Errorf("pipeline returned %d predictions for %d rows", len(raw), len(vectors))
	}

	prices := make([]float64, len(raw))
	for i, r := range raw {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			s.failure()
			return nil, fmt.Errorf("pipeline returned non-finite value %v for row %d", r, i)
		}
		p := s.transform.Invert(r)
		if math.IsInf(p, 0) {
			s.failure()
			return nil, fmt.Errorf("price overflow for log value %v in row %d", r, i)
		}
		prices[i] = p
	}

	if s.metrics != nil {
		for range prices {
			s.metrics.MLPredictionsInc()
		}
	}
	return prices, nil
}

func (s *Service) failure() {
	if s.metrics != nil {
		s.metrics.MLFailuresInc()
	}
}

func (s *Service) cacheHit() {
	if s.metrics != nil && s.cache != nil {
		s.metrics.MLCacheHitInc()
	}
}

func (s *Service) cacheMiss() {
	if s.metrics != nil && s.cache != nil {
		s.metrics.MLCacheMissInc()
	}
}
