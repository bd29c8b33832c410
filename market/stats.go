package market

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData is returned when fewer than two prices survive
// filtering. Consumers must treat the missing summary as "no statistics
// available", not as a failure of the cycle.
var ErrInsufficientData = errors.New("insufficient data for statistics")

// Statistics is a robust distribution summary over one poll's converted
// price series. Recomputed every cycle, never persisted as an entity.
type Statistics struct {
	Median      float64 `json:"median"`
	Q1          float64 `json:"q1"`
	Q3          float64 `json:"q3"`
	P05         float64 `json:"p05"`
	P10         float64 `json:"p10"`
	P90         float64 `json:"p90"`
	P95         float64 `json:"p95"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sample_count"`
}

// ComputeStatistics summarizes a sanity-filtered price list. Raw prices are
// divided by peg first (a non-positive peg means the peg feed failed and a
// neutral 1.0 is used). Min and Max are the extremes of the filtered set.
func ComputeStatistics(prices []float64, peg float64) (*Statistics, error) {
	if len(prices) < 2 {
		return nil, ErrInsufficientData
	}
	if peg <= 0 {
		peg = 1
	}

	adj := make([]float64, len(prices))
	for i, p := range prices {
		adj[i] = p / peg
	}
	sort.Float64s(adj)
	n := len(adj)

	st := &Statistics{
		Min:         adj[0],
		Max:         adj[n-1],
		SampleCount: n,
	}

	if n < 4 {
		// Too few samples for interpolation to mean anything; fall back to
		// index approximations so a coarse summary is still produced.
		st.Median = medianOf(adj)
		st.P05 = adj[indexRank(n, 0.05)]
		st.P10 = adj[indexRank(n, 0.10)]
		st.Q1 = adj[indexRank(n, 0.25)]
		st.Q3 = adj[indexRank(n, 0.75)]
		st.P90 = adj[indexRank(n, 0.90)]
		st.P95 = adj[indexRank(n, 0.95)]
		return st, nil
	}

	st.P05 = quantile(adj, 0.05)
	st.P10 = quantile(adj, 0.10)
	st.Q1 = quantile(adj, 0.25)
	st.Median = quantile(adj, 0.50)
	st.Q3 = quantile(adj, 0.75)
	st.P90 = quantile(adj, 0.90)
	st.P95 = quantile(adj, 0.95)
	return st, nil
}

// quantile interpolates linearly between order statistics of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func indexRank(n int, q float64) int {
	idx := int(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return idx
}
