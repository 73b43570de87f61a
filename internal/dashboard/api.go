package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"house-insights/internal/common"
	"house-insights/internal/dataset"
	"house-insights/internal/ml"
	"house-insights/internal/report"
	"house-insights/internal/storage"
)

// Prediction sources recorded in the history.
const (
	sourceForm   = "form"
	sourceAPI    = "api"
	sourceSocket = "websocket"
)

// PredictRequest carries slider values keyed by feature name.
type PredictRequest struct {
	Features map[string]float64 `json:"features"`
}

// PredictResponse is a single interactive prediction.
type PredictResponse struct {
	PredictedPrice float64            `json:"predicted_price"`
	Formatted      string             `json:"formatted"`
	Degraded       bool               `json:"degraded,omitempty"`
	Inputs         map[string]float64 `json:"inputs"`
	ModelVersion   string             `json:"model_version"`
}

// BoxesResponse holds per-category price spreads for one column.
type BoxesResponse struct {
	Column string             `json:"column"`
	Boxes  []dataset.BoxStats `json:"boxes"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// predict runs one interactive prediction and records it.
func (d *Dashboard) predict(ctx context.Context, values map[string]float64, source string) (*PredictResponse, error) {
	input, err := d.sliderInput(values)
	if err != nil {
		return nil, err
	}

	result, err := d.service.Predict(ctx, input)
	if err != nil {
		return nil, err
	}

	inputs := make(map[string]float64, len(input))
	for k, v := range input {
		inputs[k] = v.(float64)
	}

	resp := &PredictResponse{
		PredictedPrice: result.PredictedPrice,
		Formatted:      report.FormatPrice(result.PredictedPrice),
		Degraded:       result.Degraded,
		Inputs:         inputs,
		ModelVersion:   d.modelVersion(),
	}
	d.record(resp, source)
	return resp, nil
}

func (d *Dashboard) record(resp *PredictResponse, source string) {
	// Slider drags are not recorded.
	if d.history == nil || source == sourceSocket {
		return
	}
	err := d.history.StorePrediction(&storage.PredictionRecord{
		Source:         source,
		Inputs:         resp.Inputs,
		PredictedPrice: resp.PredictedPrice,
		ModelVersion:   resp.ModelVersion,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to store prediction")
		return
	}
	if d.metrics != nil {
		d.metrics.PredictionsStoredInc()
	}
}

func (d *Dashboard) modelVersion() string {
	if d.artifact == nil || d.artifact.Metadata == nil {
		return ""
	}
	return d.artifact.Metadata.Version
}

func (d *Dashboard) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.summary)
}

func (d *Dashboard) handleBoxesAPI(w http.ResponseWriter, r *http.Request) {
	column, err := d.boxColumn(r.URL.Query().Get("column"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BoxesResponse{Column: column, Boxes: d.boxes(column)})
}

func (d *Dashboard) handleSlidersAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.sliders)
}

func (d *Dashboard) handleModelAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.modelInsights(r.Context()))
}

func (d *Dashboard) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	resp, err := d.predict(r.Context(), req.Features, sourceAPI)
	if err != nil {
		status, body := predictError(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dashboard) handleDealsAPI(w http.ResponseWriter, r *http.Request) {
	f, err := d.parseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d.rankDeals(r.Context(), f))
}

func (d *Dashboard) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	limit := d.cfg.HistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	recent, err := d.recentPredictions(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read prediction history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read history"})
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (d *Dashboard) handleLatestRankingAPI(w http.ResponseWriter, r *http.Request) {
	snap, err := d.latestRanking()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read latest ranking")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read rankings"})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no saved ranking"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"rows":          d.table.Len(),
		"model_version": d.modelVersion(),
	})
}

func (d *Dashboard) recentPredictions(n int) ([]storage.PredictionRecord, error) {
	if d.history == nil {
		return []storage.PredictionRecord{}, nil
	}
	return d.history.RecentPredictions(n)
}

func (d *Dashboard) latestRanking() (*storage.RankingSnapshot, error) {
	if d.history == nil {
		return nil, nil
	}
	return d.history.LatestRanking()
}

// boxColumn picks the categorical column for the box plot: the requested
// one, else Neighborhood, else the first categorical column.
func (d *Dashboard) boxColumn(requested string) (string, error) {
	cats := d.summary.CategoricalColumns
	if requested != "" {
		for _, c := range cats {
			if c == requested {
				return c, nil
			}
		}
		return "", errors.New("unknown categorical column " + strconv.Quote(requested))
	}
	for _, c := range cats {
		if c == common.ColNeighborhood {
			return c, nil
		}
	}
	if len(cats) > 0 {
		return cats[0], nil
	}
	return "", nil
}

func (d *Dashboard) boxes(column string) []dataset.BoxStats {
	if column == "" {
		return []dataset.BoxStats{}
	}
	return d.table.CategoryBoxes(column)
}

// predictError maps a prediction failure to a status. Pipeline failures
// are 422; input outside the slider set is 400.
func predictError(err error) (int, errorResponse) {
	var pe *ml.PredictionError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error()}
	case ml.IsSchemaMismatch(err):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "schema"}
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "prediction"}
	default:
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
