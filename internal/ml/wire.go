package ml

import (
	"errors"
	"fmt"
	"math"
)

// PredictRequest is the JSON body shared by the Python inference script,
// the model server and the remote pipeline client.
type PredictRequest struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RequestID string   `json:"request_id,omitempty"`
}

// PredictResponse carries log-scale predictions, or an error. ErrorKind is
// "schema" when the artifact rejected the input's schema.
type PredictResponse struct {
	Predictions  []float64 `json:"predictions"`
	Error        string    `json:"error,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	ModelVersion string    `json:"model_version,omitempty"`
	LatencyMs    float64   `json:"latency_ms,omitempty"`
}

const errorKindSchema = "schema"

// sanitizeRows makes rows JSON-encodable: non-finite floats become null and
// integer types become float64.
func sanitizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		clean := make([]any, len(row))
		for j, v := range row {
			clean[j] = sanitizeValue(v)
		}
		out[i] = clean
	}
	return out
}

func sanitizeValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return sanitizeValue(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	default:
		return v
	}
}

// responseError turns an error reported by an artifact backend into a Go
// error, keeping schema mismatches recognizable.
func responseError(kind, msg string) error {
	if kind == errorKindSchema {
		return &SchemaMismatchError{Reason: msg}
	}
	return errors.New(msg)
}

// errorKind classifies an error for the wire.
func errorKind(err error) string {
	if IsSchemaMismatch(err) {
		return errorKindSchema
	}
	return ""
}

func toString(v any) string {
	return fmt.Sprint(v)
}
