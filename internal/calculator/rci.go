package calculator

import (
	"cmp"
	"fmt"
	"slices"
)

// RCI computes the rank correlation index over a rolling window of period
// observations. Time ranks run 1..n oldest to newest; tied prices share the
// mean of their ranks. Output lies in [-100, 100]; the first period-1 entries
// and any window containing a missing close are NaN.
func RCI(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("%w: rci period must be >= 2, got %d", ErrInvalidPeriod, period)
	}
	out := undefinedSeries(len(closes))
	n := float64(period)
	denom := n * (n*n - 1)
	ranks := make([]float64, period)
	order := make([]int, period)

	for end := period - 1; end < len(closes); end++ {
		window := closes[end-period+1 : end+1]
		if slices.ContainsFunc(window, func(v float64) bool { return !isFinite(v) }) {
			continue
		}
		averageRanks(window, order, ranks)

		var dSq float64
		for i, r := range ranks {
			d := float64(i+1) - r
			dSq += d * d
		}
		rci := (1 - 6*dSq/denom) * 100
		out[end] = min(max(rci, -100), 100)
	}
	return out, nil
}

// averageRanks writes the 1-based rank of each value into ranks, giving tied
// values the mean of the ranks they span.
func averageRanks(values []float64, order []int, ranks []float64) {
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(values[a], values[b])
	})
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
}
