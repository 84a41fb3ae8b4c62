// Package integrate defines the thermal integrator boundary. The real
// physics is out of scope for this repo: the pipeline treats the
// integrator as an opaque deterministic function from a commanded-state
// timeline and an initial condition to a temperature series. StepModel
// is a deliberately simple first-order stand-in that keeps the pipeline
// runnable end to end; a production model drops in behind the same
// interface.
package integrate

import (
	"fmt"
	"math"
	"strconv"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/modelspec"
	"github.com/skaops/thermalwatch/internal/timeline"
)

// #region interface

// Integrator evolves a temperature forward over a commanded-state
// timeline from an initial condition.
type Integrator interface {
	Run(tl *timeline.Timeline, initialTemp float64) (times []chron.Secs, vals []float64, err error)
}

// #endregion interface

// #region step-model

// StepModel is a first-order lag toward a per-interval equilibrium
// temperature derived from CCD count and pitch.
type StepModel struct {
	Spec modelspec.Spec
}

// NewStepModel wraps a validated model spec.
func NewStepModel(spec modelspec.Spec) *StepModel {
	return &StepModel{Spec: spec}
}

// Run marches across the timeline at the spec's fixed step. The output
// grid starts at the timeline start and includes the timeline stop.
func (m *StepModel) Run(tl *timeline.Timeline, initialTemp float64) ([]chron.Secs, []float64, error) {
	if err := tl.Validate(); err != nil {
		return nil, nil, fmt.Errorf("integrate: %w", err)
	}
	step := m.Spec.StepSecs
	if step <= 0 {
		step = 328.0
	}
	tau := m.Spec.TauHours * 3600.0

	var times []chron.Secs
	var vals []float64
	temp := initialTemp
	t := tl.Start()
	idx := 0
	for {
		for idx < len(tl.Intervals)-1 && t >= tl.Intervals[idx].TStop {
			idx++
		}
		times = append(times, t)
		vals = append(vals, temp)
		if t >= tl.Stop() {
			break
		}
		eq, err := m.equilibrium(tl.Intervals[idx])
		if err != nil {
			return nil, nil, err
		}
		dt := math.Min(step, tl.Stop()-t)
		temp = eq + (temp-eq)*math.Exp(-dt/tau)
		t += dt
	}
	return times, vals, nil
}

// equilibrium is the asymptotic temperature for one interval's state.
func (m *StepModel) equilibrium(iv timeline.Interval) (float64, error) {
	ccd, err := strconv.Atoi(iv.Attrs["ccd_count"])
	if err != nil {
		return 0, fmt.Errorf("integrate: ccd_count %q: %w", iv.Attrs["ccd_count"], err)
	}
	eq := m.Spec.Ambient + m.Spec.HeatPerCCD*float64(ccd)
	if m.Spec.PitchSlope != 0 {
		pitch, err := iv.Float("pitch")
		if err != nil {
			return 0, fmt.Errorf("integrate: %w", err)
		}
		eq += m.Spec.PitchSlope * (pitch - m.Spec.PitchRef)
	}
	return eq, nil
}

// #endregion step-model
