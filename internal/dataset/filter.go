package dataset

import (
	"house-insights/internal/common"
)

// Filter holds the recommendation page's listing criteria. Zero values
// disable the corresponding criterion.
type Filter struct {
	MaxPrice     float64 `json:"max_price"`
	MinQuality   int     `json:"min_quality"`
	Neighborhood string  `json:"neighborhood"`
}

// Matches reports whether a record satisfies every active criterion.
func (f Filter) Matches(r Record) bool {
	if f.Neighborhood != "" && f.Neighborhood != common.NeighborhoodAll {
		if r.String(common.ColNeighborhood) != f.Neighborhood {
			return false
		}
	}
	if f.MaxPrice > 0 && r.SalePrice() > f.MaxPrice {
		return false
	}
	if f.MinQuality > 0 {
		q, ok := r.Float(common.ColOverallQual)
		if !ok || q < float64(f.MinQuality) {
			return false
		}
	}
	return true
}

// Filter returns the matching records in dataset order. The result shares
// field maps with the table and must not be mutated.
func (t *Table) Filter(f Filter) []Record {
	out := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// NeighborhoodOptions returns "All" followed by the sorted neighborhoods.
func (t *Table) NeighborhoodOptions() []string {
	return append([]string{common.NeighborhoodAll}, t.Distinct(common.ColNeighborhood)...)
}
