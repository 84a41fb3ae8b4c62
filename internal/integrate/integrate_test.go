package integrate

import (
	"math"
	"testing"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/modelspec"
	"github.com/skaops/thermalwatch/internal/timeline"
)

func singleInterval(stop chron.Secs, attrs map[string]string) *timeline.Timeline {
	return &timeline.Timeline{
		Keys: []string{"ccd_count", "pitch"},
		Intervals: []timeline.Interval{{
			TStart: 0, TStop: stop,
			DateStart: chron.Date(0), DateStop: chron.Date(stop),
			Attrs: attrs,
		}},
	}
}

func TestStepModelApproachesEquilibrium(t *testing.T) {
	m := NewStepModel(modelspec.Spec{
		TauHours: 1, Ambient: 10, HeatPerCCD: 2, StepSecs: 100,
	})
	tl := singleInterval(1000, map[string]string{"ccd_count": "4", "pitch": "90.00"})

	times, vals, err := m.Run(tl, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(times) != 11 || times[0] != 0 || times[10] != 1000 {
		t.Fatalf("grid %v", times)
	}
	if vals[0] != 10 {
		t.Fatalf("initial value %g, want 10", vals[0])
	}
	// Equilibrium is ambient + 4 CCDs * 2 = 18; the lag must approach
	// it monotonically from below without crossing.
	for i := 1; i < len(vals); i++ {
		if vals[i] <= vals[i-1] {
			t.Fatalf("not monotone at %d: %g -> %g", i, vals[i-1], vals[i])
		}
		if vals[i] > 18 {
			t.Fatalf("overshoot at %d: %g", i, vals[i])
		}
	}
	// One step of the closed form.
	want := 18 + (10-18)*math.Exp(-100.0/3600.0)
	if math.Abs(vals[1]-want) > 1e-12 {
		t.Fatalf("first step %g, want %g", vals[1], want)
	}
}

func TestStepModelPitchTerm(t *testing.T) {
	m := NewStepModel(modelspec.Spec{
		TauHours: 0.001, Ambient: 0, PitchRef: 90, PitchSlope: 0.1, StepSecs: 328,
	})
	tl := singleInterval(32800, map[string]string{"ccd_count": "0", "pitch": "130.00"})

	_, vals, err := m.Run(tl, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Tiny tau: the series converges to the pitch-driven equilibrium.
	if got := vals[len(vals)-1]; math.Abs(got-4.0) > 1e-6 {
		t.Fatalf("final value %g, want 4", got)
	}
}

func TestStepModelStateChanges(t *testing.T) {
	m := NewStepModel(modelspec.Spec{
		TauHours: 0.01, Ambient: 0, HeatPerCCD: 1, StepSecs: 328,
	})
	tl := &timeline.Timeline{
		Keys: []string{"ccd_count", "pitch"},
		Intervals: []timeline.Interval{
			{TStart: 0, TStop: 3280, Attrs: map[string]string{"ccd_count": "6", "pitch": "90.00"}},
			{TStart: 3280, TStop: 6560, Attrs: map[string]string{"ccd_count": "0", "pitch": "90.00"}},
		},
	}
	_, vals, err := m.Run(tl, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	mid := vals[len(vals)/2]
	final := vals[len(vals)-1]
	if mid < 5.9 {
		t.Fatalf("mid-run value %g, want near 6", mid)
	}
	if final > 0.1 {
		t.Fatalf("final value %g, want near 0 after shutdown", final)
	}
}

func TestStepModelBadAttrs(t *testing.T) {
	m := NewStepModel(modelspec.Spec{TauHours: 1, StepSecs: 328})
	tl := singleInterval(1000, map[string]string{"ccd_count": "many", "pitch": "90.00"})
	if _, _, err := m.Run(tl, 0); err == nil {
		t.Fatal("expected error for non-numeric ccd_count")
	}
}

func TestStepModelInvalidTimeline(t *testing.T) {
	m := NewStepModel(modelspec.Spec{TauHours: 1, StepSecs: 328})
	tl := &timeline.Timeline{Keys: []string{"ccd_count"}}
	if _, _, err := m.Run(tl, 0); err == nil {
		t.Fatal("expected error for empty timeline")
	}
}
