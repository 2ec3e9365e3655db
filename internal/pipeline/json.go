package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// opDescriptor is the wire form of a single operation:
//
//	{"op":"rollup","period":"1h","fold":"mean"}
//	{"op":"multi_rollup","period":"1d","folds":["min","max"]}
//	{"op":"interpolate","period":"15m","method":"linear"}
//	{"op":"find","period":"1d","fold":"max"}
//
// Periods use Go duration syntax extended with a "d" suffix for whole days.
type opDescriptor struct {
	Op     string            `json:"op"`
	Period string            `json:"period"`
	Fold   Fold              `json:"fold,omitempty"`
	Folds  []Fold            `json:"folds,omitempty"`
	Method InterpolateMethod `json:"method,omitempty"`
}

type pipelineJSON struct {
	Operations []opDescriptor `json:"operations"`
}

// MarshalJSON encodes the pipeline as its ordered operation list.
func (p *Pipeline) MarshalJSON() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	ops := make([]opDescriptor, 0, len(p.ops))
	for _, op := range p.ops {
		ops = append(ops, op.describe())
	}
	return json.Marshal(pipelineJSON{Operations: ops})
}

// UnmarshalJSON decodes an operation list, rebuilding the pipeline through the
// fluent builder so wire input gets the same validation as code.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var wire pipelineJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	built := Start().In(p.loc)
	for _, d := range wire.Operations {
		period, err := ParsePeriod(d.Period)
		if err != nil {
			return fmt.Errorf("pipeline op %q: %w", d.Op, err)
		}
		switch d.Op {
		case "rollup":
			built = built.Rollup(period, d.Fold)
		case "multi_rollup":
			built = built.MultiRollup(period, d.Folds...)
		case "interpolate":
			built = built.Interpolate(period, d.Method)
		case "find":
			built = built.Find(period, d.Fold)
		default:
			return fmt.Errorf("pipeline: unknown operation %q", d.Op)
		}
	}
	if err := built.Validate(); err != nil {
		return err
	}

	*p = *built
	return nil
}

// ParsePeriod parses a rollup period: Go duration syntax ("90s", "15m", "1h")
// plus a "d" suffix for whole days ("1d", "7d").
func ParsePeriod(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty period")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid period %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("period %q must be positive", s)
	}
	return d, nil
}

// formatPeriod renders a period in the wire syntax, preferring the day form
// for whole days.
func formatPeriod(d time.Duration) string {
	if d > 0 && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	return d.String()
}
