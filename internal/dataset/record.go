// Package dataset holds the housing-price table the dashboard works on.
// The table is loaded once at startup from a CSV file or a Postgres table and
// is treated as read-only afterwards, so it can be shared between request
// handlers without locking.
package dataset

import (
	"math"
	"sort"

	"house-insights/internal/common"
)

// ColumnKind tells numeric columns from categorical ones.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

func (k ColumnKind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Record is one row of the dataset. Field values are float64 for numeric
// columns, string for categorical columns and nil when missing.
type Record struct {
	Index  int            `json:"index"`
	Fields map[string]any `json:"fields"`
}

// Float returns a numeric field. Missing and non-numeric fields report false.
func (r Record) Float(col string) (float64, bool) {
	v, ok := r.Fields[col].(float64)
	if !ok || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// String returns a categorical field, or "" when it is missing.
func (r Record) String(col string) string {
	s, _ := r.Fields[col].(string)
	return s
}

// SalePrice is the listed transaction price.
func (r Record) SalePrice() float64 {
	v, _ := r.Float(common.ColSalePrice)
	return v
}

// PredictedPrice is the price the model predicted at training time.
func (r Record) PredictedPrice() float64 {
	v, _ := r.Float(common.ColPredictedPrice)
	return v
}

// Table is the immutable in-memory dataset.
type Table struct {
	Columns []string
	Kinds   map[string]ColumnKind
	Records []Record
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Records)
}

// FeatureColumns returns the columns the pipeline was fit on: every dataset
// column except the target and its derivatives, in dataset order.
func (t *Table) FeatureColumns() []string {
	excluded := make(map[string]bool, len(common.TargetColumns))
	for _, c := range common.TargetColumns {
		excluded[c] = true
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !excluded[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnsOfKind returns the columns of the given kind in dataset order.
func (t *Table) ColumnsOfKind(kind ColumnKind) []string {
	var cols []string
	for _, c := range t.Columns {
		if t.Kinds[c] == kind {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasColumn reports whether the dataset has the column.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.Kinds[col]
	return ok
}

// Distinct returns the sorted distinct non-empty values of a categorical column.
func (t *Table) Distinct(col string) []string {
	seen := make(map[string]bool)
	for _, r := range t.Records {
		if s := r.String(col); s != "" {
			seen[s] = true
		}
	}

	values := make([]string, 0, len(seen))
	for s := range seen {
		values = append(values, s)
	}
	sort.Strings(values)
	return values
}

// FloatColumn returns the non-missing values of a numeric column.
func (t *Table) FloatColumn(col string) []float64 {
	values := make([]float64, 0, len(t.Records))
	for _, r := range t.Records {
		if v, ok := r.Float(col); ok {
			values = append(values, v)
		}
	}
	return values
}
