package dashboard

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"house-insights/internal/dataset"
	"house-insights/internal/report"
	"house-insights/internal/storage"
)

type page struct {
	Title  string
	Active string
	Flash  string
}

type overviewPage struct {
	page
	Summary dataset.Summary
	MaxBin  int
	Column  string
	Boxes   []dataset.BoxStats
}

type modelPage struct {
	page
	Insights *ModelInsights
	MaxCoef  float64
}

type slider struct {
	dataset.SliderRange
	Value float64
}

type predictPage struct {
	page
	Sliders []slider
	Result  *PredictResponse
	History []storage.PredictionRecord
}

type dealsPage struct {
	page
	Filter        dataset.Filter
	Neighborhoods []string
	Results       *report.Results
	Saved         *storage.RankingSnapshot
}

func parsePages() *template.Template {
	funcs := template.FuncMap{
		"price": report.FormatPrice,
		"pct":   report.FormatPct,
		"share": share,
		"abs": func(v float64) float64 {
			if v < 0 {
				return -v
			}
			return v
		},
	}
	t := template.New("pages").Funcs(funcs)
	for _, src := range []string{layoutTemplate, overviewTemplate, modelTemplate, predictTemplate, dealsTemplate} {
		template.Must(t.Parse(src))
	}
	return t
}

// share returns v as a percentage of max, for bar widths. Templates pass
// both ints and floats.
func share(v, max any) float64 {
	fv, fm := toFloat(v), toFloat(max)
	if fm <= 0 || fv <= 0 {
		return 0
	}
	if fv >= fm {
		return 100
	}
	return fv / fm * 100
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func (d *Dashboard) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := d.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (d *Dashboard) handleOverview(w http.ResponseWriter, r *http.Request) {
	data := overviewPage{
		page:    page{Title: "Dataset Overview", Active: "overview"},
		Summary: d.summary,
	}
	for _, b := range d.summary.PriceHistogram {
		if b.Count > data.MaxBin {
			data.MaxBin = b.Count
		}
	}

	status := http.StatusOK
	column, err := d.boxColumn(r.URL.Query().Get("column"))
	if err != nil {
		data.Flash = err.Error()
		status = http.StatusBadRequest
		column, _ = d.boxColumn("")
	}
	data.Column = column
	data.Boxes = d.boxes(column)

	d.render(w, status, "overview", data)
}

func (d *Dashboard) handleModelPage(w http.ResponseWriter, r *http.Request) {
	data := modelPage{
		page:     page{Title: "Model Insights", Active: "model"},
		Insights: d.modelInsights(r.Context()),
	}
	for _, f := range data.Insights.TopFeatures {
		c := f.Coefficient
		if c < 0 {
			c = -c
		}
		if c > data.MaxCoef {
			data.MaxCoef = c
		}
	}
	d.render(w, http.StatusOK, "model", data)
}

func (d *Dashboard) newPredictPage(values map[string]float64) predictPage {
	data := predictPage{page: page{Title: "Price Predictor", Active: "predict"}}
	for _, s := range d.sliders {
		v := s.Median
		if chosen, ok := values[s.Feature]; ok {
			v = chosen
		}
		data.Sliders = append(data.Sliders, slider{SliderRange: s, Value: v})
	}

	history, err := d.recentPredictions(d.cfg.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read prediction history")
	}
	data.History = history
	return data
}

func (d *Dashboard) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	d.render(w, http.StatusOK, "predict", d.newPredictPage(nil))
}

func (d *Dashboard) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	values, err := d.formValues(r)
	if err != nil {
		data := d.newPredictPage(nil)
		data.Flash = err.Error()
		d.render(w, http.StatusBadRequest, "predict", data)
		return
	}

	resp, err := d.predict(r.Context(), values, sourceForm)
	if err != nil {
		status, body := predictError(err)
		data := d.newPredictPage(values)
		data.Flash = body.Error
		d.render(w, status, "predict", data)
		return
	}

	data := d.newPredictPage(values)
	data.Result = resp
	d.render(w, http.StatusOK, "predict", data)
}

func (d *Dashboard) handleDealsPage(w http.ResponseWriter, r *http.Request) {
	data := dealsPage{
		page:          page{Title: "Deal Recommendations", Active: "deals"},
		Neighborhoods: d.table.NeighborhoodOptions(),
	}

	f, err := d.parseFilter(r.URL.Query())
	data.Filter = f
	if err != nil {
		data.Flash = err.Error()
		d.render(w, http.StatusBadRequest, "deals", data)
		return
	}

	data.Results = d.rankDeals(r.Context(), f)
	if data.Saved, err = d.latestRanking(); err != nil {
		log.Warn().Err(err).Msg("Failed to read latest ranking")
	}
	d.render(w, http.StatusOK, "deals", data)
}
