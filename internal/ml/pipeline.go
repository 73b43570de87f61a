// Package ml serves predictions from a trained house-price pipeline.
// The pipeline itself is an opaque artifact trained offline; this package
// aligns records to the pipeline's feature schema, calls it, undoes the
// log transform applied to the training target and ranks listings by how
// far the model's price is from the listed one.
//
// Three artifact backends are supported: a native evaluator for exported
// linear pipelines, a Python subprocess that loads the joblib artifact, and
// a remote model server reached over HTTP.
package ml

import "context"

// Pipeline is the trained preprocessing + regression artifact.
type Pipeline interface {
	// Predict returns one log-price per row. rows[i][j] holds the value of
	// columns[j] for row i: float64 for numeric features, string for
	// categorical ones, nil when missing.
	Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error)
}

// Explainer is implemented by pipelines that can report the regression
// coefficients of their final estimator. Only the model insights page uses it.
type Explainer interface {
	Explain(ctx context.Context) (*Explanation, error)
}

// Coefficient pairs an output feature of the preprocessor with its weight.
type Coefficient struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Explanation lists the estimator's coefficients in preprocessor output
// order. When the estimator has none, HasCoefficients is false and every
// value is zero.
type Explanation struct {
	Coefficients    []Coefficient `json:"coefficients"`
	HasCoefficients bool          `json:"has_coefficients"`
}
