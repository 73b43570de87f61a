package ml

import "house-insights/internal/dataset"

// FeatureVector holds values for exactly the columns the pipeline expects,
// in the order it expects them.
type FeatureVector struct {
	Columns []string
	Values  []any
}

// Get returns the value of a column.
func (v FeatureVector) Get(col string) (any, bool) {
	for i, c := range v.Columns {
		if c == col {
			return v.Values[i], true
		}
	}
	return nil, false
}

// Map returns the vector as a column -> value map.
func (v FeatureVector) Map() map[string]any {
	m := make(map[string]any, len(v.Columns))
	for i, c := range v.Columns {
		m[c] = v.Values[i]
	}
	return m
}

// Align projects input onto the expected columns. Every expected column
// absent from input is set to 0; present values are kept as-is, including
// nil; columns the pipeline does not expect are dropped.
func Align(input map[string]any, expected []string) FeatureVector {
	values := make([]any, len(expected))
	for i, col := range expected {
		if v, ok := input[col]; ok {
			values[i] = v
		} else {
			values[i] = 0.0
		}
	}
	return FeatureVector{Columns: expected, Values: values}
}

// AlignTable aligns a batch of dataset records.
func AlignTable(records []dataset.Record, expected []string) []FeatureVector {
	out := make([]FeatureVector, len(records))
	for i, r := range records {
		out[i] = Align(r.Fields, expected)
	}
	return out
}
