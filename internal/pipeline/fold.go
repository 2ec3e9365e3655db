package pipeline

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Fold names an aggregation applied to the points of a rollup bucket (or, for
// cross-sensor aggregation, to the values sharing a timestamp).
type Fold string

// Folds understood by Rollup, MultiRollup, Find and Aggregate.
const (
	Mean   Fold = "mean"
	Sum    Fold = "sum"
	Min    Fold = "min"
	Max    Fold = "max"
	Count  Fold = "count"
	StdDev Fold = "stddev"
	First  Fold = "first"
	Last   Fold = "last"
	Range  Fold = "range"
	P50    Fold = "p50"
	P85    Fold = "p85"
	P95    Fold = "p95"
	P99    Fold = "p99"
)

// ValidFolds lists every fold accepted on the wire, in display order.
var ValidFolds = []Fold{Mean, Sum, Min, Max, Count, StdDev, First, Last, Range, P50, P85, P95, P99}

// IsValid reports whether f names a known fold.
func (f Fold) IsValid() bool {
	for _, v := range ValidFolds {
		if f == v {
			return true
		}
	}
	return false
}

// quantiles maps percentile folds to their probability.
var quantiles = map[Fold]float64{P50: 0.50, P85: 0.85, P95: 0.95, P99: 0.99}

// apply reduces the values of a bucket to a single number. The slice must be
// non-empty and ordered by time (First/Last depend on it). values may be
// reordered in place by percentile folds.
func (f Fold) apply(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("fold %q applied to empty bucket", f)
	}

	switch f {
	case Mean:
		return stat.Mean(values, nil), nil
	case Sum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case Min:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	case Max:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	case Count:
		return float64(len(values)), nil
	case StdDev:
		if len(values) < 2 {
			return 0, nil
		}
		return stat.StdDev(values, nil), nil
	case First:
		return values[0], nil
	case Last:
		return values[len(values)-1], nil
	case Range:
		min, max := values[0], values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return max - min, nil
	case P50, P85, P95, P99:
		// stat.Quantile requires an ascending slice.
		sort.Float64s(values)
		return stat.Quantile(quantiles[f], stat.Empirical, values, nil), nil
	}

	return 0, fmt.Errorf("unknown fold %q", f)
}

// pick returns the index of the bucket point selected by a Find fold. Only the
// order statistics folds make sense here; aggregating folds are rejected at
// pipeline construction.
func (f Fold) pick(points []Point) (int, error) {
	if len(points) == 0 {
		return 0, fmt.Errorf("fold %q applied to empty bucket", f)
	}

	switch f {
	case First:
		return 0, nil
	case Last:
		return len(points) - 1, nil
	case Min:
		idx := 0
		for i, p := range points {
			if p.Value < points[idx].Value {
				idx = i
			}
		}
		return idx, nil
	case Max:
		idx := 0
		for i, p := range points {
			if p.Value > points[idx].Value {
				idx = i
			}
		}
		return idx, nil
	}

	return 0, fmt.Errorf("fold %q cannot select a point; use min, max, first or last", f)
}
