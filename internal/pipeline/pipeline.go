// Package pipeline implements the analytics pipeline applied to sensor data
// streams. A Pipeline is a named sequence of operations (rollup, interpolate,
// find, ...) built fluently and executed against an ordered series of points:
//
//	p := pipeline.Start().
//		Rollup(time.Hour, pipeline.Mean).
//		Interpolate(time.Hour, pipeline.Linear)
//	out, err := p.Execute(series)
//
// Operations apply strictly in builder order. Construction never fails
// mid-chain; invalid arguments are recorded and surfaced by Validate or
// Execute so call sites keep the fluent shape.
package pipeline

import (
	"fmt"
	"time"
)

// Point is a single sensor reading.
type Point struct {
	Ts    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// Series is a sequence of points ordered ascending by timestamp.
type Series []Point

// Result maps an output name to a series. Single-output pipelines use the
// DefaultOutput key; MultiRollup fans out into one entry per fold.
type Result map[string]Series

// DefaultOutput is the result key used until a MultiRollup splits the stream.
const DefaultOutput = "value"

// InterpolateMethod selects how Interpolate fills resampled points.
type InterpolateMethod string

const (
	// Linear interpolates proportionally between the two neighbouring points.
	Linear InterpolateMethod = "linear"
	// ZOH holds the most recent earlier value (zero-order hold).
	ZOH InterpolateMethod = "zoh"
)

// operation transforms one series into one or more named output series. An
// empty output name means "keep the current name". The location is supplied
// at execution time so In may be called after operations are built.
type operation interface {
	apply(Series, *time.Location) (map[string]Series, error)
	describe() opDescriptor
}

// Pipeline is an immutable ordered sequence of operations. The zero value (or
// Start()) is the identity pipeline.
type Pipeline struct {
	ops []operation
	loc *time.Location
	err error
}

// Start returns an empty pipeline aligned to UTC.
func Start() *Pipeline {
	return &Pipeline{loc: time.UTC}
}

// In returns a pipeline whose bucket boundaries are aligned to the given
// location. A nil location keeps UTC.
func (p *Pipeline) In(loc *time.Location) *Pipeline {
	next := p.clone()
	if loc != nil {
		next.loc = loc
	}
	return next
}

// Location reports the bucket alignment location.
func (p *Pipeline) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

func (p *Pipeline) clone() *Pipeline {
	ops := make([]operation, len(p.ops))
	copy(ops, p.ops)
	return &Pipeline{ops: ops, loc: p.Location(), err: p.err}
}

// fail records the first construction error and returns the pipeline so the
// chain stays fluent.
func (p *Pipeline) fail(err error) *Pipeline {
	next := p.clone()
	if next.err == nil {
		next.err = err
	}
	return next
}

func (p *Pipeline) push(op operation) *Pipeline {
	next := p.clone()
	next.ops = append(next.ops, op)
	return next
}

// Rollup appends a downsampling step: points are grouped into period-sized
// buckets aligned to the pipeline location and each bucket is reduced with
// fold. The output carries one point per non-empty bucket, stamped at the
// bucket start.
func (p *Pipeline) Rollup(period time.Duration, fold Fold) *Pipeline {
	if period <= 0 {
		return p.fail(fmt.Errorf("rollup: period must be positive, got %v", period))
	}
	if !fold.IsValid() {
		return p.fail(fmt.Errorf("rollup: unknown fold %q", fold))
	}
	return p.push(&rollupOp{period: period, fold: fold})
}

// MultiRollup appends a downsampling step that reduces each bucket with every
// given fold, producing one output series per fold.
func (p *Pipeline) MultiRollup(period time.Duration, folds ...Fold) *Pipeline {
	if period <= 0 {
		return p.fail(fmt.Errorf("multi_rollup: period must be positive, got %v", period))
	}
	if len(folds) == 0 {
		return p.fail(fmt.Errorf("multi_rollup: at least one fold required"))
	}
	seen := make(map[Fold]bool, len(folds))
	for _, f := range folds {
		if !f.IsValid() {
			return p.fail(fmt.Errorf("multi_rollup: unknown fold %q", f))
		}
		if seen[f] {
			return p.fail(fmt.Errorf("multi_rollup: duplicate fold %q", f))
		}
		seen[f] = true
	}
	return p.push(&multiRollupOp{period: period, folds: append([]Fold(nil), folds...)})
}

// Interpolate appends a resampling step producing one point per period across
// the span of the input, filling gaps with the given method.
func (p *Pipeline) Interpolate(period time.Duration, method InterpolateMethod) *Pipeline {
	if period <= 0 {
		return p.fail(fmt.Errorf("interpolate: period must be positive, got %v", period))
	}
	if method != Linear && method != ZOH {
		return p.fail(fmt.Errorf("interpolate: unknown method %q", method))
	}
	return p.push(&interpolateOp{period: period, method: method})
}

// Find appends a point-selection step: within each period-sized bucket the
// original point chosen by fold (min, max, first, last) is emitted with its
// timestamp preserved.
func (p *Pipeline) Find(period time.Duration, fold Fold) *Pipeline {
	if period <= 0 {
		return p.fail(fmt.Errorf("find: period must be positive, got %v", period))
	}
	if _, err := fold.pick([]Point{{}}); err != nil {
		return p.fail(fmt.Errorf("find: %w", err))
	}
	return p.push(&findOp{period: period, fold: fold})
}

// Len reports the number of operations in the pipeline.
func (p *Pipeline) Len() int { return len(p.ops) }

// Validate reports the first construction error, if any.
func (p *Pipeline) Validate() error { return p.err }

// Execute runs every operation in order over the input series. An empty input
// yields an empty (but keyed) result. The input is never modified.
func (p *Pipeline) Execute(s Series) (Result, error) {
	if p.err != nil {
		return nil, p.err
	}

	loc := p.Location()
	current := Result{DefaultOutput: s}
	for i, op := range p.ops {
		next := make(Result, len(current))
		for name, series := range current {
			outputs, err := op.apply(series, loc)
			if err != nil {
				return nil, fmt.Errorf("operation %d (%s): %w", i, op.describe().Op, err)
			}
			for outName, out := range outputs {
				next[joinName(name, outName)] = out
			}
		}
		current = next
	}
	return current, nil
}

// joinName composes result keys when an operation fans out. The base name
// "value" is dropped so a single MultiRollup yields plain fold names.
func joinName(base, out string) string {
	if out == "" {
		return base
	}
	if base == DefaultOutput {
		return out
	}
	return base + "." + out
}

// floorTime returns the start of the period-sized bucket containing ts.
// Sub-day periods truncate on the Unix epoch; whole-day periods align to
// midnight in the pipeline location so daily rollups follow the local
// calendar.
func floorTime(ts time.Time, period time.Duration, loc *time.Location) time.Time {
	if period%(24*time.Hour) == 0 {
		days := int(period / (24 * time.Hour))
		local := ts.In(loc)
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if days > 1 {
			// Align multi-day buckets to the epoch day number.
			dayIndex := int(midnight.Unix() / 86400)
			offset := dayIndex % days
			midnight = midnight.AddDate(0, 0, -offset)
		}
		return midnight
	}
	return ts.Truncate(period)
}

// bucketize groups a series into ordered buckets of period-aligned points.
// Input order is preserved within buckets.
func bucketize(s Series, period time.Duration, loc *time.Location) []bucket {
	var out []bucket
	for _, pt := range s {
		start := floorTime(pt.Ts, period, loc)
		if n := len(out); n > 0 && out[n-1].start.Equal(start) {
			out[n-1].points = append(out[n-1].points, pt)
			continue
		}
		out = append(out, bucket{start: start, points: []Point{pt}})
	}
	return out
}

type bucket struct {
	start  time.Time
	points []Point
}
