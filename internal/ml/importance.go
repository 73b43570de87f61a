package ml

import (
	"math"
	"sort"
	"strings"
)

// FeatureWeight is a coefficient with its display name.
type FeatureWeight struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
}

// TopFeatures returns the n coefficients with the largest magnitude, largest
// first. Transformer prefixes such as "num__" and "cat__" are stripped from
// the names.
func TopFeatures(exp *Explanation, n int) []FeatureWeight {
	if exp == nil || n <= 0 {
		return []FeatureWeight{}
	}

	features := make([]FeatureWeight, len(exp.Coefficients))
	for i, c := range exp.Coefficients {
		features[i] = FeatureWeight{Feature: DisplayName(c.Feature), Coefficient: c.Value}
	}

	sort.SliceStable(features, func(i, j int) bool {
		return math.Abs(features[i].Coefficient) > math.Abs(features[j].Coefficient)
	})

	if n > len(features) {
		n = len(features)
	}
	return features[:n]
}

// DisplayName strips the transformer prefix from an encoded feature name.
func DisplayName(feature string) string {
	if i := strings.Index(feature, "__"); i >= 0 {
		return feature[i+2:]
	}
	return feature
}
