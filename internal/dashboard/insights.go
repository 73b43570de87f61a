package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"house-insights/internal/common"
	"house-insights/internal/dataset"
	"house-insights/internal/ml"
	"house-insights/internal/report"
)

const explainTimeout = 30 * time.Second

// ModelInsights is what the model page shows.
type ModelInsights struct {
	Metadata        *ml.ModelMetadata  `json:"metadata"`
	AgeSeconds      float64            `json:"age_seconds"`
	Fit             ml.FitSummary      `json:"fit"`
	TopFeatures     []ml.FeatureWeight `json:"top_features"`
	HasCoefficients bool               `json:"has_coefficients"`
	Warning         string             `json:"warning,omitempty"`
}

// modelInsights computes the insights on first use. The stored
// predictions never change and neither does the pipeline.
func (d *Dashboard) modelInsights(ctx context.Context) *ModelInsights {
	d.insightsOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), explainTimeout)
		defer cancel()
		d.insights = d.buildInsights(ctx)
	})

	out := *d.insights
	if d.artifact != nil {
		out.AgeSeconds = d.artifact.Age().Seconds()
	}
	return &out
}

func (d *Dashboard) buildInsights(ctx context.Context) *ModelInsights {
	mi := &ModelInsights{}
	if d.artifact != nil {
		mi.Metadata = d.artifact.Metadata
	}

	var actual, predicted []float64
	for _, r := range d.table.Records {
		a, okA := r.Float(common.ColSalePrice)
		p, okP := r.Float(common.ColPredictedPrice)
		if okA && okP {
			actual = append(actual, a)
			predicted = append(predicted, p)
		}
	}
	mi.Fit = ml.SummarizeFit(actual, predicted)

	exp, err := d.explain(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to read model coefficients")
		mi.Warning = fmt.Sprintf("Could not read model coefficients: %v", err)
	case !exp.HasCoefficients:
		mi.Warning = "The model has no linear coefficients; feature weights are shown as zero."
	default:
		mi.HasCoefficients = true
		mi.TopFeatures = ml.TopFeatures(exp, common.DefaultTopFeatures)
	}

	if !mi.HasCoefficients {
		mi.TopFeatures = zeroWeights(d.service.Columns(), common.DefaultTopFeatures)
	}
	return mi
}

func (d *Dashboard) explain(ctx context.Context) (*ml.Explanation, error) {
	explainer, ok := d.service.Pipeline().(ml.Explainer)
	if !ok {
		return &ml.Explanation{}, nil
	}
	return explainer.Explain(ctx)
}

func zeroWeights(columns []string, n int) []ml.FeatureWeight {
	if n > len(columns) {
		n = len(columns)
	}
	out := make([]ml.FeatureWeight, n)
	for i := 0; i < n; i++ {
		out[i] = ml.FeatureWeight{Feature: columns[i]}
	}
	return out
}

// parseFilter reads the recommendation criteria, falling back to the
// configured defaults for absent parameters.
func (d *Dashboard) parseFilter(q url.Values) (dataset.Filter, error) {
	f := dataset.Filter{
		MaxPrice:     d.cfg.DefaultMaxPrice,
		MinQuality:   d.cfg.DefaultMinQuality,
		Neighborhood: common.NeighborhoodAll,
	}

	if s := strings.TrimSpace(q.Get("max_price")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return f, fmt.Errorf("max_price must be a positive number, got %q", s)
		}
		f.MaxPrice = v
	}
	if s := strings.TrimSpace(q.Get("min_quality")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < common.MinQuality || v > common.MaxQuality {
			return f, fmt.Errorf("min_quality must be an integer between %d and %d, got %q",
				common.MinQuality, common.MaxQuality, s)
		}
		f.MinQuality = v
	}
	if s := strings.TrimSpace(q.Get("neighborhood")); s != "" {
		f.Neighborhood = s
	}
	return f, nil
}

// rankDeals filters the table and ranks what is left.
func (d *Dashboard) rankDeals(ctx context.Context, f dataset.Filter) *report.Results {
	records := d.table.Filter(f)
	rep := d.service.RankDeals(ctx, records, d.cfg.TopN)
	if len(rep.Failures) > 0 {
		log.Warn().Int("failed", len(rep.Failures)).Int("candidates", len(records)).Msg("Some listings could not be scored")
	}

	res := report.NewResults(f, d.cfg.TopN, records, rep)
	if d.artifact != nil {
		res.ModelVersion = d.artifact.Metadata.Version
	}
	return res
}

// sliderInput converts slider values to model input. Unknown features are
// rejected; features left out default to the dataset median.
func (d *Dashboard) sliderInput(values map[string]float64) (map[string]any, error) {
	known := make(map[string]dataset.SliderRange, len(d.sliders))
	for _, s := range d.sliders {
		known[s.Feature] = s
	}
	for name := range values {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
	}

	input := make(map[string]any, len(d.sliders))
	for _, s := range d.sliders {
		if v, ok := values[s.Feature]; ok {
			input[s.Feature] = v
		} else {
			input[s.Feature] = s.Median
		}
	}
	return input, nil
}

// formValues reads slider values from a submitted form.
func (d *Dashboard) formValues(r *http.Request) (map[string]float64, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	values := make(map[string]float64, len(d.sliders))
	for _, s := range d.sliders {
		raw := strings.TrimSpace(r.PostForm.Get(s.Feature))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", s.Feature, raw)
		}
		values[s.Feature] = v
	}
	return values, nil
}
