package pipeline

import (
	"sort"
	"time"
)

// Aggregate combines several series into one by folding the values that share
// a timestamp. The read layer uses this to answer cross-sensor queries after
// per-sensor pipelines have aligned the streams (typically via Rollup).
// Timestamps present in only some of the inputs are folded over the values
// that do exist.
func Aggregate(fold Fold, series ...Series) (Series, error) {
	grouped := make(map[int64][]float64)
	for _, s := range series {
		for _, p := range s {
			key := p.Ts.UnixNano()
			grouped[key] = append(grouped[key], p.Value)
		}
	}

	keys := make([]int64, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(Series, 0, len(keys))
	for _, k := range keys {
		v, err := fold.apply(grouped[k])
		if err != nil {
			return nil, err
		}
		out = append(out, Point{Ts: time.Unix(0, k).UTC(), Value: v})
	}
	return out, nil
}
