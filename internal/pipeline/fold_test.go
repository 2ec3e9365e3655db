package pipeline

import (
	"math"
	"testing"
)

func TestFoldApply(t *testing.T) {
	values := []float64{4, 1, 7, 2, 6}

	cases := []struct {
		fold Fold
		want float64
	}{
		{Mean, 4},
		{Sum, 20},
		{Min, 1},
		{Max, 7},
		{Count, 5},
		{First, 4},
		{Last, 6},
		{Range, 6},
	}

	for _, tc := range cases {
		t.Run(string(tc.fold), func(t *testing.T) {
			vs := append([]float64(nil), values...)
			got, err := tc.fold.apply(vs)
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("%s = %v, want %v", tc.fold, got, tc.want)
			}
		})
	}
}

func TestFoldStdDev(t *testing.T) {
	got, err := StdDev.apply([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	// Sample standard deviation of the classic example set.
	want := 2.138089935299395
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("stddev = %v, want %v", got, want)
	}
}

func TestFoldPercentiles(t *testing.T) {
	vs := make([]float64, 100)
	for i := range vs {
		vs[i] = float64(i + 1) // 1..100
	}

	p50, err := P50.apply(append([]float64(nil), vs...))
	if err != nil {
		t.Fatalf("p50 failed: %v", err)
	}
	if p50 < 50 || p50 > 51 {
		t.Errorf("p50 = %v, want ~50", p50)
	}

	p95, err := P95.apply(append([]float64(nil), vs...))
	if err != nil {
		t.Fatalf("p95 failed: %v", err)
	}
	if p95 < 95 || p95 > 96 {
		t.Errorf("p95 = %v, want ~95", p95)
	}
}

func TestFoldEmptyBucket(t *testing.T) {
	if _, err := Mean.apply(nil); err == nil {
		t.Fatal("expected error folding empty bucket")
	}
}

func TestFoldIsValid(t *testing.T) {
	for _, f := range ValidFolds {
		if !f.IsValid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if Fold("avg").IsValid() {
		t.Error("\"avg\" should not be a valid fold name")
	}
}
