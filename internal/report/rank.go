package report

import (
	"fmt"
	"math"
	"sort"
)

// RankToColor maps a 0-1 percentile rank to a cell background. Only the
// top 30% (green) and bottom 30% (red) are colored; opacity scales with
// distance from the threshold. Invert flips the scale for metrics where
// lower is better, like markdown depth.
func RankToColor(rank float64, invert bool) string {
	if math.IsNaN(rank) {
		return "transparent"
	}
	if invert {
		rank = 1 - rank
	}
	switch {
	case rank <= 0.30:
		intensity := (0.30 - rank) / 0.30
		return fmt.Sprintf("rgba(255, 107, 107, %.2f)", 0.3+intensity*0.5)
	case rank >= 0.70:
		intensity := (rank - 0.70) / 0.30
		return fmt.Sprintf("rgba(46, 204, 113, %.2f)", 0.3+intensity*0.5)
	default:
		return "transparent"
	}
}

// PercentileRanks returns each value's percentile rank in (0, 1]. Ties
// share their average rank. NaN values rank above every real value, so
// unmatched rows surface rather than hide at the bottom.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := values[idx[a]], values[idx[b]]
		if math.IsNaN(va) {
			return false
		}
		if math.IsNaN(vb) {
			return true
		}
		return va < vb
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && sameValue(values[idx[j]], values[idx[i]]) {
			j++
		}
		// 1-based ranks i+1..j averaged across the tie group.
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg / float64(n)
		}
		i = j
	}
	return ranks
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// Quantile returns the q-th quantile of the non-NaN values using
// linear interpolation. NaN when no values remain.
func Quantile(values []float64, q float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if len(clean) == 1 {
		return clean[0]
	}

	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo]*(1-frac) + clean[hi]*frac
}

// RelativeRank places a value on a 0-1 scale anchored to another
// cohort's 30th and 70th percentiles. Buried collection items are
// colored against the top positions this way, so their cells read on
// the same scale.
func RelativeRank(val, p30, p70 float64) float64 {
	switch {
	case math.IsNaN(val):
		return 0.5
	case val <= p30:
		if p30 > 0 {
			return 0.15 * (val / p30)
		}
		return 0
	case val >= p70:
		if p70 > 0 {
			return 0.70 + 0.30*math.Min((val-p70)/(p70*0.5), 1)
		}
		return 1
	default:
		if p70 > p30 {
			return 0.30 + 0.40*(val-p30)/(p70-p30)
		}
		return 0.5
	}
}
