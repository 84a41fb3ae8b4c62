package telemetry

import (
	"errors"
	"math"
	"testing"

	"github.com/skaops/thermalwatch/internal/chron"
)

func TestNearestIndices(t *testing.T) {
	src := []chron.Secs{0, 10, 20}
	dst := []chron.Secs{-5, 4, 5, 6, 25}

	got := NearestIndices(src, dst)

	// The tie at 5 goes to the earlier sample.
	want := []int{0, 0, 0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices %v, want %v", got, want)
		}
	}
}

func TestResampleNearestNoInterpolation(t *testing.T) {
	src := []chron.Secs{0, 328, 656}
	vals := []float64{10, 20, 30}

	got := ResampleNearest(src, vals, []chron.Secs{100, 300, 657})

	want := []float64{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resampled %v, want %v", got, want)
		}
	}
}

func TestResampleSet(t *testing.T) {
	s := &MSIDSet{
		Times: []chron.Secs{0, 10, 20},
		Values: map[string][]float64{
			"a": {1, 2, 3},
			"b": {4, 5, 6},
		},
	}
	out := s.Resample([]chron.Secs{0, 9, 19})
	if out.Values["a"][1] != 2 || out.Values["b"][2] != 6 {
		t.Fatalf("resampled columns %v", out.Values)
	}
	if len(out.Times) != 3 {
		t.Fatalf("times %v", out.Times)
	}
}

func TestCheckInsufficientSamples(t *testing.T) {
	s := &MSIDSet{Times: []chron.Secs{0, 1, 2}, Values: map[string][]float64{"a": {1, 2, 3}}}
	if err := s.Check(); !errors.Is(err, ErrInsufficientTelemetry) {
		t.Fatalf("got %v, want ErrInsufficientTelemetry", err)
	}
}

func TestCheckColumnLengthMismatch(t *testing.T) {
	s := &MSIDSet{
		Times:  []chron.Secs{0, 1, 2, 3},
		Values: map[string][]float64{"a": {1, 2}},
	}
	if err := s.Check(); err == nil {
		t.Fatal("expected length-mismatch error")
	}
}

func TestColumnMissing(t *testing.T) {
	s := &MSIDSet{Times: []chron.Secs{0}, Values: map[string][]float64{}}
	if _, err := s.Column("nope"); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestMeanAround(t *testing.T) {
	s := &MSIDSet{
		Times:  []chron.Secs{0, 328, 656, 984, 1312},
		Values: map[string][]float64{"a": {10, 20, 30, 40, 50}},
	}
	got, err := s.MeanAround("a", 656, 350)
	if err != nil {
		t.Fatalf("MeanAround: %v", err)
	}
	// Samples at 0 and 1312 sit outside the +/-350 s window.
	if math.Abs(got-30) > 1e-9 {
		t.Fatalf("mean %g, want 30", got)
	}

	if _, err := s.MeanAround("a", 1e6, 700); !errors.Is(err, ErrInsufficientTelemetry) {
		t.Fatalf("empty window: got %v", err)
	}
}
