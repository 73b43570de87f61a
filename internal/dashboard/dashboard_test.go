package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"house-insights/internal/dataset"
	"house-insights/internal/ml"
	"house-insights/internal/report"
	"house-insights/internal/storage"
)

var testColumns = []string{"OverallQual", "GrLivArea", "GarageCars", "TotalBsmtSF", "YearBuilt", "Neighborhood"}

func testExport(handleUnknown string) ml.LinearExport {
	return ml.LinearExport{
		Version:   "test-1",
		Model:     "Ridge",
		Intercept: 12.0,
		Numeric: []ml.NumericStep{
			{Name: "OverallQual", Impute: 6, Mean: 6, Scale: 1.4},
			{Name: "GrLivArea", Impute: 1460, Mean: 1500, Scale: 500},
			{Name: "GarageCars", Impute: 2, Mean: 1.8, Scale: 0.75},
			{Name: "TotalBsmtSF", Impute: 990, Mean: 1050, Scale: 440},
			{Name: "YearBuilt", Impute: 1973, Mean: 1971, Scale: 30},
		},
		Categorical: []ml.CategoricalStep{
			{Name: "Neighborhood", Impute: "NAmes", Categories: []string{"CollgCr", "NAmes", "NridgHt"}, HandleUnknown: handleUnknown},
		},
		Coefficients: []float64{0.12, 0.10, 0.04, 0.05, 0.06, 0.02, -0.03, 0.15},
	}
}

func testTable() *dataset.Table {
	row := func(i int, qual, area, garage, bsmt, year float64, hood string, sale, pred float64) dataset.Record {
		return dataset.Record{Index: i, Fields: map[string]any{
			"OverallQual": qual, "GrLivArea": area, "GarageCars": garage, "TotalBsmtSF": bsmt,
			"YearBuilt": year, "Neighborhood": hood, "SalePrice": sale, "PredictedPrice": pred,
		}}
	}
	return &dataset.Table{
		Columns: append(append([]string{}, testColumns...), "SalePrice", "PredictedPrice"),
		Kinds: map[string]dataset.ColumnKind{
			"OverallQual": dataset.Numeric, "GrLivArea": dataset.Numeric, "GarageCars": dataset.Numeric,
			"TotalBsmtSF": dataset.Numeric, "YearBuilt": dataset.Numeric, "Neighborhood": dataset.Categorical,
			"SalePrice": dataset.Numeric, "PredictedPrice": dataset.Numeric,
		},
		Records: []dataset.Record{
			row(0, 6, 1500, 2, 1000, 1990, "NAmes", 150000, 160000),
			row(1, 8, 2200, 3, 1500, 2005, "NridgHt", 280000, 270000),
			row(2, 4, 900, 1, 600, 1950, "NAmes", 90000, 95000),
			row(3, 7, 1800, 2, 1200, 2000, "CollgCr", 210000, 200000),
			row(4, 9, 3000, 3, 2000, 2008, "NridgHt", 450000, 440000),
		},
	}
}

type fakeHistory struct {
	mu      sync.Mutex
	records []storage.PredictionRecord
	ranking *storage.RankingSnapshot
}

func (h *fakeHistory) StorePrediction(rec *storage.PredictionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec.ID = "id"
	rec.Timestamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.records = append(h.records, *rec)
	return nil
}

func (h *fakeHistory) RecentPredictions(n int) ([]storage.PredictionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []storage.PredictionRecord{}
	for i := len(h.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}

func (h *fakeHistory) LatestRanking() (*storage.RankingSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ranking, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	routes   []string
	codes    []int
	stored   int
	errors   int
	wsActive float64
}

func (m *fakeMetrics) RequestObserve(route string, code int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
	m.codes = append(m.codes, code)
}

func (m *fakeMetrics) WSConnectionsAdd(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsActive += delta
}

func (m *fakeMetrics) PredictionsStoredInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored++
}

func (m *fakeMetrics) ErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

type fixture struct {
	dash    *Dashboard
	history *fakeHistory
	metrics *fakeMetrics
}

func newFixture(t *testing.T, pipeline ml.Pipeline) *fixture {
	t.Helper()
	artifact := &ml.Artifact{
		Pipeline: pipeline,
		Metadata: &ml.ModelMetadata{Version: "test-1", Model: "Ridge", TargetTransform: ml.TransformLog1p},
	}
	svc := ml.NewService(pipeline, testColumns)
	f := &fixture{history: &fakeHistory{}, metrics: &fakeMetrics{}}
	f.dash = New(testTable(), svc, artifact, Config{Port: 0, TopN: 2},
		WithHistory(f.history), WithMetrics(f.metrics))
	return f
}

func newLinearFixture(t *testing.T, handleUnknown string) *fixture {
	t.Helper()
	p, err := ml.NewLinearPipeline(testExport(handleUnknown))
	require.NoError(t, err)
	return newFixture(t, p)
}

func (f *fixture) do(method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.dash.Handler().ServeHTTP(rec, req)
	return rec
}

// constPipeline returns the same log-price for every row and has no
// coefficients.
type constPipeline struct{ logPrice float64 }

func (p constPipeline) Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error) {
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = p.logPrice
	}
	return out, nil
}

func TestOverviewPage(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dataset Overview")
	assert.Contains(t, body, "SalePrice by Neighborhood")
	assert.Contains(t, body, "NridgHt")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestOverviewPage_UnknownColumn(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/?column=Nope", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown categorical column")
	assert.Contains(t, rec.Body.String(), "SalePrice by Neighborhood")
}

func TestSummaryAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/summary", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dataset.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, []string{"Neighborhood"}, summary.CategoricalColumns)
	assert.NotEmpty(t, summary.PriceHistogram)
}

func TestBoxesAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/boxes", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BoxesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Neighborhood", resp.Column)
	assert.Len(t, resp.Boxes, 3)

	rec = f.do("GET", "/api/boxes?column=SalePrice", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlidersAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/sliders", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sliders []dataset.SliderRange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sliders))
	require.Len(t, sliders, 5)
	assert.Equal(t, dataset.SliderRange{Feature: "OverallQual", Min: 4, Max: 9, Median: 7}, sliders[0])
}

func TestPredictAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("POST", "/api/predict", `{"features": {"OverallQual": 8}}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.PredictedPrice, 0.0)
	assert.Equal(t, report.FormatPrice(resp.PredictedPrice), resp.Formatted)
	assert.True(t, strings.HasPrefix(resp.Formatted, "$"))
	assert.Equal(t, "test-1", resp.ModelVersion)

	// Features left out take the dataset median.
	assert.Equal(t, 8.0, resp.Inputs["OverallQual"])
	assert.Equal(t, 1800.0, resp.Inputs["GrLivArea"])

	require.Len(t, f.history.records, 1)
	assert.Equal(t, sourceAPI, f.history.records[0].Source)
	assert.Equal(t, resp.PredictedPrice, f.history.records[0].PredictedPrice)
	assert.Equal(t, 1, f.metrics.stored)
}

func TestPredictAPI_HigherQualityCostsMore(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	price := func(qual string) float64 {
		rec := f.do("POST", "/api/predict", `{"features": {"OverallQual": `+qual+`}}`, "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp PredictResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.PredictedPrice
	}
	assert.Greater(t, price("9"), price("5"))
}

func TestPredictAPI_BadRequests(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("POST", "/api/predict", `{"features": `, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("POST", "/api/predict", `{"features": {"PoolArea": 1}}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PoolArea")

	assert.Empty(t, f.history.records)
}

func TestPredictAPI_SchemaMismatch(t *testing.T) {
	// Neighborhood is not a slider, so it is filled with 0, a level the
	// strict encoder has never seen.
	f := newLinearFixture(t, ml.HandleUnknownError)

	rec := f.do("POST", "/api/predict", `{"features": {"OverallQual": 7}}`, "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "schema", body["kind"])
	assert.Contains(t, body["error"], "Neighborhood")
	assert.Empty(t, f.history.records)
}

func TestPredictPage(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/predict", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="OverallQual"`)
	assert.Contains(t, body, `min="4"`)
	assert.Contains(t, body, `value="7"`)
	assert.Contains(t, body, "/ws/predict")
}

func TestPredictForm(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	form := url.Values{"OverallQual": {"8"}, "GrLivArea": {"2000"}}
	rec := f.do("POST", "/predict", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.history.records, 1)
	stored := f.history.records[0]
	assert.Equal(t, sourceForm, stored.Source)
	assert.Equal(t, 2000.0, stored.Inputs["GrLivArea"])

	body := rec.Body.String()
	assert.Contains(t, body, report.FormatPrice(stored.PredictedPrice))
	assert.Contains(t, body, "Recent Predictions")
	assert.Contains(t, body, `value="2000"`)
}

func TestPredictForm_Errors(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	form := url.Values{"OverallQual": {"lots"}}
	rec := f.do("POST", "/predict", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "OverallQual must be a number")

	strict := newLinearFixture(t, ml.HandleUnknownError)
	rec = strict.do("POST", "/predict", url.Values{"OverallQual": {"7"}}.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "class=\"flash\"")
}

func TestDealsAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/deals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res report.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, dataset.Filter{MaxPrice: 300000, MinQuality: 5, Neighborhood: "All"}, res.Filter)
	assert.Equal(t, 3, res.Candidates)
	assert.Len(t, res.Pairs, 3)
	require.Len(t, res.Deals, 2)
	assert.GreaterOrEqual(t, res.Deals[0].DeviationPct, res.Deals[1].DeviationPct)
	assert.Equal(t, 1, res.Deals[0].Rank)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "test-1", res.ModelVersion)

	for _, d := range res.Deals {
		assert.InDelta(t, ml.DeviationPct(d.PredictedPrice, d.ActualPrice), d.DeviationPct, 1e-9)
	}
}

func TestDealsAPI_Filters(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/deals?neighborhood=NridgHt&max_price=500000&min_quality=9", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res report.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Candidates)
	require.Len(t, res.Deals, 1)
	assert.Equal(t, 4, res.Deals[0].Index)
	assert.Equal(t, "NridgHt", res.Deals[0].Neighborhood)

	// An empty selection is a success with no deals.
	rec = f.do("GET", "/api/deals?max_price=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = report.Results{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Candidates)
	assert.NotNil(t, res.Deals)
	assert.Empty(t, res.Deals)

	for _, q := range []string{"min_quality=11", "min_quality=0", "min_quality=x", "max_price=-5", "max_price=abc"} {
		rec = f.do("GET", "/api/deals?"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDealsAPI_FailingRows(t *testing.T) {
	// One listing has a level the strict encoder never saw; the others are
	// still ranked.
	f := newLinearFixture(t, ml.HandleUnknownError)
	f.dash.table.Records[0].Fields["Neighborhood"] = "Blueste"

	rec := f.do("GET", "/api/deals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res report.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Candidates)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 0, res.Failures[0].Row)
	assert.Len(t, res.Deals, 2)
}

func TestDealsPage(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/deals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Top 2 Deals")
	assert.Contains(t, body, "3 houses match")
	assert.Contains(t, body, `<option value="All" selected>`)

	rec = f.do("GET", "/deals?max_price=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No houses match the filter.")

	rec = f.do("GET", "/deals?min_quality=42", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "min_quality must be an integer between 1 and 10")
}

func TestModelAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/model", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mi ModelInsights
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mi))
	assert.True(t, mi.HasCoefficients)
	assert.Empty(t, mi.Warning)
	assert.Equal(t, "test-1", mi.Metadata.Version)
	assert.Equal(t, 5, mi.Fit.Count)

	require.Len(t, mi.TopFeatures, 8)
	assert.Equal(t, "Neighborhood_NridgHt", mi.TopFeatures[0].Feature)
	assert.Equal(t, 0.15, mi.TopFeatures[0].Coefficient)
	for _, fw := range mi.TopFeatures {
		assert.NotContains(t, fw.Feature, "__")
	}

	rec = f.do("GET", "/model", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Neighborhood_NridgHt")
}

func TestModelAPI_NoCoefficients(t *testing.T) {
	f := newFixture(t, constPipeline{logPrice: 12})

	rec := f.do("GET", "/api/model", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mi ModelInsights
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mi))
	assert.False(t, mi.HasCoefficients)
	assert.NotEmpty(t, mi.Warning)
	require.Len(t, mi.TopFeatures, len(testColumns))
	for _, fw := range mi.TopFeatures {
		assert.Equal(t, 0.0, fw.Coefficient)
	}
}

func TestHistoryAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	for _, q := range []string{"5", "6", "7"} {
		rec := f.do("POST", "/api/predict", `{"features": {"OverallQual": `+q+`}}`, "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do("GET", "/api/history?limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recent []storage.PredictionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Len(t, recent, 2)
	assert.Equal(t, 7.0, recent[0].Inputs["OverallQual"])

	rec = f.do("GET", "/api/history?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryAPI_NoStore(t *testing.T) {
	p, err := ml.NewLinearPipeline(testExport(ml.HandleUnknownIgnore))
	require.NoError(t, err)
	d := New(testTable(), ml.NewService(p, testColumns), nil, Config{})

	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/predict", strings.NewReader(`{"features": {}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestRankingAPI(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/api/rankings/latest", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.history.ranking = &storage.RankingSnapshot{
		ID:           "snap",
		Timestamp:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Source:       "rescore",
		Filter:       dataset.Filter{MaxPrice: 250000, MinQuality: 6, Neighborhood: "NAmes"},
		Candidates:   12,
		Deals:        []ml.PredictionResult{{Index: 3, PredictedPrice: 120000, ActualPrice: 100000, DeviationPct: 20, HasActual: true}},
		ModelVersion: "v0",
	}

	rec = f.do("GET", "/api/rankings/latest", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap storage.RankingSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "snap", snap.ID)
	require.Len(t, snap.Deals, 1)

	rec = f.do("GET", "/deals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Last Saved Ranking")
	assert.Contains(t, rec.Body.String(), "1 deals from 12 houses")
}

func TestRequestMetrics(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	f.do("GET", "/api/deals?min_quality=6", "", "")
	f.do("GET", "/api/deals?min_quality=99", "", "")

	require.Len(t, f.metrics.routes, 2)
	assert.Equal(t, []string{"/api/deals", "/api/deals"}, f.metrics.routes)
	assert.Equal(t, []int{http.StatusOK, http.StatusBadRequest}, f.metrics.codes)
	assert.Equal(t, 0, f.metrics.errors)
}

func TestWebSocketPredict(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)
	srv := httptest.NewServer(f.dash.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/predict"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(PredictRequest{Features: map[string]float64{"OverallQual": 8}}))
	var resp PredictResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Greater(t, resp.PredictedPrice, 0.0)
	assert.Equal(t, 8.0, resp.Inputs["OverallQual"])

	// A malformed message is answered, not fatal.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var bad map[string]string
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Contains(t, bad["error"], "invalid message")

	require.NoError(t, conn.WriteJSON(PredictRequest{Features: map[string]float64{"PoolArea": 1}}))
	bad = nil
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Contains(t, bad["error"], "PoolArea")

	require.NoError(t, conn.WriteJSON(PredictRequest{Features: map[string]float64{"OverallQual": 5}}))
	var again PredictResponse
	require.NoError(t, conn.ReadJSON(&again))
	assert.Less(t, again.PredictedPrice, resp.PredictedPrice)

	// Slider traffic is not written to the history.
	assert.Empty(t, f.history.records)
}

func TestHealth(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	rec := f.do("GET", "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":5`)
}

func TestStartStop(t *testing.T) {
	f := newLinearFixture(t, ml.HandleUnknownIgnore)

	require.NoError(t, f.dash.Start())
	assert.Error(t, f.dash.Start())
	require.NoError(t, f.dash.Stop())
	require.NoError(t, f.dash.Stop())
}
