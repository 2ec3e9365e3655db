package pipeline

import (
	"time"
)

// rollupOp downsamples a series to one folded point per bucket.
type rollupOp struct {
	period time.Duration
	fold   Fold
}

func (op *rollupOp) apply(s Series, loc *time.Location) (map[string]Series, error) {
	buckets := bucketize(s, op.period, loc)
	out := make(Series, 0, len(buckets))
	for _, b := range buckets {
		v, err := op.fold.apply(values(b.points))
		if err != nil {
			return nil, err
		}
		out = append(out, Point{Ts: b.start, Value: v})
	}
	return map[string]Series{"": out}, nil
}

func (op *rollupOp) describe() opDescriptor {
	return opDescriptor{Op: "rollup", Period: formatPeriod(op.period), Fold: op.fold}
}

// multiRollupOp downsamples into one output series per fold.
type multiRollupOp struct {
	period time.Duration
	folds  []Fold
}

func (op *multiRollupOp) apply(s Series, loc *time.Location) (map[string]Series, error) {
	buckets := bucketize(s, op.period, loc)
	out := make(map[string]Series, len(op.folds))
	for _, f := range op.folds {
		series := make(Series, 0, len(buckets))
		for _, b := range buckets {
			v, err := f.apply(values(b.points))
			if err != nil {
				return nil, err
			}
			series = append(series, Point{Ts: b.start, Value: v})
		}
		out[string(f)] = series
	}
	return out, nil
}

func (op *multiRollupOp) describe() opDescriptor {
	return opDescriptor{Op: "multi_rollup", Period: formatPeriod(op.period), Folds: op.folds}
}

// findOp selects one original point per bucket, timestamp preserved.
type findOp struct {
	period time.Duration
	fold   Fold
}

func (op *findOp) apply(s Series, loc *time.Location) (map[string]Series, error) {
	buckets := bucketize(s, op.period, loc)
	out := make(Series, 0, len(buckets))
	for _, b := range buckets {
		idx, err := op.fold.pick(b.points)
		if err != nil {
			return nil, err
		}
		out = append(out, b.points[idx])
	}
	return map[string]Series{"": out}, nil
}

func (op *findOp) describe() opDescriptor {
	return opDescriptor{Op: "find", Period: formatPeriod(op.period), Fold: op.fold}
}

// interpolateOp resamples a series onto a fixed grid spanning the input.
type interpolateOp struct {
	period time.Duration
	method InterpolateMethod
}

func (op *interpolateOp) apply(s Series, loc *time.Location) (map[string]Series, error) {
	if len(s) == 0 {
		return map[string]Series{"": nil}, nil
	}

	start := floorTime(s[0].Ts, op.period, loc)
	end := s[len(s)-1].Ts
	var out Series

	// i indexes the last input point at or before the grid timestamp.
	i := 0
	for ts := start; !ts.After(end); ts = ts.Add(op.period) {
		for i+1 < len(s) && !s[i+1].Ts.After(ts) {
			i++
		}
		if s[i].Ts.After(ts) {
			// Grid point precedes the first sample; nothing to hold.
			continue
		}

		switch op.method {
		case ZOH:
			out = append(out, Point{Ts: ts, Value: s[i].Value})
		case Linear:
			if s[i].Ts.Equal(ts) || i+1 >= len(s) {
				out = append(out, Point{Ts: ts, Value: s[i].Value})
				continue
			}
			span := s[i+1].Ts.Sub(s[i].Ts).Seconds()
			frac := ts.Sub(s[i].Ts).Seconds() / span
			v := s[i].Value + frac*(s[i+1].Value-s[i].Value)
			out = append(out, Point{Ts: ts, Value: v})
		}
	}
	return map[string]Series{"": out}, nil
}

func (op *interpolateOp) describe() opDescriptor {
	return opDescriptor{Op: "interpolate", Period: formatPeriod(op.period), Method: op.method}
}

func values(points []Point) []float64 {
	vs := make([]float64, len(points))
	for i, p := range points {
		vs[i] = p.Value
	}
	return vs
}
