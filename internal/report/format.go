package report

import (
	"math"
	"strconv"
	"strings"
)

// FormatPrice renders a price rounded to whole dollars with thousands
// separators, e.g. "$123,456". Negative prices keep their sign.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}

	sign := ""
	r := math.Round(v)
	if r < 0 {
		sign = "-"
		r = -r
	}

	digits := strconv.FormatFloat(r, 'f', 0, 64)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String()
}

// FormatPct renders a signed percentage with one decimal.
func FormatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
