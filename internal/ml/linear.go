package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Unknown-category policies of the exported one-hot encoder.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// NumericStep describes the imputer + scaler applied to one numeric column.
type NumericStep struct {
	Name   string  `json:"name"`
	Impute float64 `json:"impute"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoricalStep describes the imputer + one-hot encoder applied to one
// categorical column.
type CategoricalStep struct {
	Name          string   `json:"name"`
	Impute        string   `json:"impute"`
	Categories    []string `json:"categories"`
	HandleUnknown string   `json:"handle_unknown"`
}

// LinearExport is the JSON form of a fitted ColumnTransformer + linear
// regressor. Coefficients follow the transformer's output order: every
// numeric column, then every level of every categorical column.
type LinearExport struct {
	Version      string            `json:"version"`
	Model        string            `json:"model"`
	Intercept    float64           `json:"intercept"`
	Numeric      []NumericStep     `json:"numeric"`
	Categorical  []CategoricalStep `json:"categorical"`
	Coefficients []float64         `json:"coefficients"`
}

// LinearPipeline evaluates an exported linear pipeline natively.
type LinearPipeline struct {
	export   LinearExport
	names    []string
	levelIdx []map[string]int
}

// LoadLinearPipeline reads and validates an exported linear pipeline.
func LoadLinearPipeline(path string) (*LinearPipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}

	var export LinearExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: fmt.Errorf("decode export: %w", err)}
	}

	p, err := NewLinearPipeline(export)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	return p, nil
}

// NewLinearPipeline builds a pipeline from an in-memory export.
func NewLinearPipeline(export LinearExport) (*LinearPipeline, error) {
	if len(export.Numeric)+len(export.Categorical) == 0 {
		return nil, fmt.Errorf("export has no input columns")
	}

	p := &LinearPipeline{export: export}
	p.export.Categorical = append([]CategoricalStep(nil), export.Categorical...)
	seen := make(map[string]bool)

	for _, n := range export.Numeric {
		if seen[n.Name] {
			return nil, fmt.Errorf("duplicate input column %s", n.Name)
		}
		seen[n.Name] = true
		p.names = append(p.names, "num__"+n.Name)
	}

	for i, c := range p.export.Categorical {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate input column %s", c.Name)
		}
		seen[c.Name] = true

		switch c.HandleUnknown {
		case "":
			p.export.Categorical[i].HandleUnknown = HandleUnknownError
		case HandleUnknownError, HandleUnknownIgnore:
		default:
			return nil, fmt.Errorf("column %s: unsupported handle_unknown %q", c.Name, c.HandleUnknown)
		}

		idx := make(map[string]int, len(c.Categories))
		for j, level := range c.Categories {
			idx[level] = j
			p.names = append(p.names, "cat__"+c.Name+"_"+level)
		}
		p.levelIdx = append(p.levelIdx, idx)
	}

	if len(export.Coefficients) != len(p.names) {
		return nil, fmt.Errorf("expected %d coefficients for the encoded features, got %d",
			len(p.names), len(export.Coefficients))
	}

	return p, nil
}

// InputColumns returns the raw columns the pipeline reads, numeric first.
func (p *LinearPipeline) InputColumns() []string {
	cols := make([]string, 0, len(p.export.Numeric)+len(p.export.Categorical))
	for _, n := range p.export.Numeric {
		cols = append(cols, n.Name)
	}
	for _, c := range p.export.Categorical {
		cols = append(cols, c.Name)
	}
	return cols
}

// Version returns the export's version string.
func (p *LinearPipeline) Version() string {
	return p.export.Version
}

// Predict implements Pipeline.
func (p *LinearPipeline) Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	for _, c := range p.InputColumns() {
		if _, ok := pos[c]; !ok {
			return nil, &SchemaMismatchError{Column: c, Reason: "column missing from input"}
		}
	}

	out := make([]float64, len(rows))
	for r, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != len(columns) {
			return nil, &SchemaMismatchError{
				Reason: fmt.Sprintf("row %d has %d values for %d columns", r, len(row), len(columns)),
			}
		}

		y, err := p.predictRow(row, pos)
		if err != nil {
			return nil, err
		}
		out[r] = y
	}
	return out, nil
}

func (p *LinearPipeline) predictRow(row []any, pos map[string]int) (float64, error) {
	y := p.export.Intercept
	k := 0

	for _, n := range p.export.Numeric {
		x, err := numericValue(n, row[pos[n.Name]])
		if err != nil {
			return 0, err
		}
		scale := n.Scale
		if scale == 0 {
			scale = 1
		}
		y += p.export.Coefficients[k] * (x - n.Mean) / scale
		k++
	}

	for i, c := range p.export.Categorical {
		level, ok := categoricalValue(c, row[pos[c.Name]])
		j, known := p.levelIdx[i][level]
		if !known && c.HandleUnknown == HandleUnknownError {
			return 0, &SchemaMismatchError{Column: c.Name, Value: level, Reason: "category not seen during training"}
		}
		if ok && known {
			y += p.export.Coefficients[k+j]
		}
		k += len(c.Categories)
	}

	return y, nil
}

func numericValue(n NumericStep, v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return n.Impute, nil
	case float64:
		if math.IsNaN(x) {
			return n.Impute, nil
		}
		return x, nil
	case float32:
		return numericValue(n, float64(x))
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &SchemaMismatchError{Column: n.Name, Value: x, Reason: "numeric column holds a non-numeric value"}
		}
		return f, nil
	default:
		return 0, &SchemaMismatchError{Column: n.Name, Value: v, Reason: fmt.Sprintf("unsupported value type %T", v)}
	}
}

// categoricalValue returns the level for v; missing values take the
// imputed level. Numbers are matched by their text form.
func categoricalValue(c CategoricalStep, v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return c.Impute, c.Impute != ""
	case string:
		if x == "" {
			return c.Impute, c.Impute != ""
		}
		return x, true
	case float64:
		if math.IsNaN(x) {
			return c.Impute, c.Impute != ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return toString(v), true
	}
}

// Explain implements Explainer.
func (p *LinearPipeline) Explain(ctx context.Context) (*Explanation, error) {
	exp := &Explanation{
		Coefficients:    make([]Coefficient, len(p.names)),
		HasCoefficients: true,
	}
	for i, name := range p.names {
		exp.Coefficients[i] = Coefficient{Feature: name, Value: p.export.Coefficients[i]}
	}
	return exp, nil
}
