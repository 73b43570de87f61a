package ml

import (
	"errors"
	"fmt"
)

// PredictionError reports a failed prediction. Row is the dataset index of
// the failing record, or -1 for interactive single-row predictions.
type PredictionError struct {
	Row int
	Err error
}

func (e *PredictionError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("prediction failed: %v", e.Err)
	}
	return fmt.Sprintf("prediction failed for row %d: %v", e.Row, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError means the input does not fit the schema the pipeline
// was fit on: a required column is missing or a categorical level was never
// seen in training.
type SchemaMismatchError struct {
	Column string
	Value  any
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column == "" {
		return "schema mismatch: " + e.Reason
	}
	if e.Value == nil {
		return fmt.Sprintf("schema mismatch on column %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("schema mismatch on column %s (value %v): %s", e.Column, e.Value, e.Reason)
}

// ArtifactLoadError means the trained pipeline could not be loaded. It is
// fatal for the process.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("failed to load pipeline artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// IsSchemaMismatch reports whether err was caused by a schema mismatch.
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	return errors.As(err, &sm)
}
