// Package telemetry defines the record set returned by a telemetry
// provider and the alignment helpers the validator is built on. The
// provider itself is an external collaborator; the archive package
// supplies the sqlite-backed implementation.
package telemetry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/skaops/thermalwatch/internal/chron"
)

// MinSamples is the fewest aligned samples a run can proceed with.
const MinSamples = 4

// ErrInsufficientTelemetry means the provider returned fewer than
// MinSamples aligned samples for the requested span.
var ErrInsufficientTelemetry = errors.New("telemetry: insufficient samples")

// #region types

// MSIDSet holds telemetry for one or more MSIDs on a shared time grid.
type MSIDSet struct {
	Times  []chron.Secs
	Values map[string][]float64
}

// Provider fetches telemetry for a set of MSIDs over a time span.
type Provider interface {
	Fetch(msids []string, start, stop chron.Secs) (*MSIDSet, error)
}

// #endregion types

// #region accessors

// Len returns the number of samples in the set.
func (s *MSIDSet) Len() int { return len(s.Times) }

// Column returns the value series for one MSID.
func (s *MSIDSet) Column(msid string) ([]float64, error) {
	vals, ok := s.Values[msid]
	if !ok {
		return nil, fmt.Errorf("telemetry: no column %q", msid)
	}
	return vals, nil
}

// Check verifies the set is well-formed and large enough for a run.
func (s *MSIDSet) Check() error {
	if len(s.Times) < MinSamples {
		return fmt.Errorf("%w: got %d, want at least %d",
			ErrInsufficientTelemetry, len(s.Times), MinSamples)
	}
	for msid, vals := range s.Values {
		if len(vals) != len(s.Times) {
			return fmt.Errorf("telemetry: column %q has %d values for %d times",
				msid, len(vals), len(s.Times))
		}
	}
	return nil
}

// MeanAround averages an MSID over times within halfWidth seconds of t.
// Used to seed the initial model temperature from telemetry.
func (s *MSIDSet) MeanAround(msid string, t chron.Secs, halfWidth float64) (float64, error) {
	vals, err := s.Column(msid)
	if err != nil {
		return 0, err
	}
	sum, n := 0.0, 0
	for i, tt := range s.Times {
		if tt >= t-halfWidth && tt <= t+halfWidth {
			sum += vals[i]
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no %s samples within %.0f s of %s",
			ErrInsufficientTelemetry, msid, halfWidth, chron.Date(t))
	}
	return sum / float64(n), nil
}

// #endregion accessors

// #region resample

// NearestIndices maps each destination time to the index of the nearest
// source time. Source times must be ascending.
func NearestIndices(src []chron.Secs, dst []chron.Secs) []int {
	out := make([]int, len(dst))
	for i, t := range dst {
		j := sort.SearchFloat64s(src, t)
		switch {
		case j == 0:
			out[i] = 0
		case j == len(src):
			out[i] = len(src) - 1
		case t-src[j-1] <= src[j]-t:
			out[i] = j - 1
		default:
			out[i] = j
		}
	}
	return out
}

// ResampleNearest selects, for each destination time, the source value
// at the nearest source time. Values are never interpolated: telemetry
// stays quantized to its native cadence.
func ResampleNearest(srcTimes []chron.Secs, srcVals []float64, dstTimes []chron.Secs) []float64 {
	idx := NearestIndices(srcTimes, dstTimes)
	out := make([]float64, len(dstTimes))
	for i, j := range idx {
		out[i] = srcVals[j]
	}
	return out
}

// Resample returns a new set with every column selected onto the given
// time grid by nearest-neighbor.
func (s *MSIDSet) Resample(times []chron.Secs) *MSIDSet {
	idx := NearestIndices(s.Times, times)
	out := &MSIDSet{
		Times:  append([]chron.Secs(nil), times...),
		Values: make(map[string][]float64, len(s.Values)),
	}
	for msid, vals := range s.Values {
		col := make([]float64, len(idx))
		for i, j := range idx {
			col[i] = vals[j]
		}
		out.Values[msid] = col
	}
	return out
}

// #endregion resample
