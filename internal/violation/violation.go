// Package violation turns a temperature series and a scalar limit into
// the maximal contiguous intervals where the limit is exceeded, clipped
// to the review window so pre-existing exceedances inherited from
// continuity are not charged to the load under review.
package violation

import (
	"fmt"

	"github.com/skaops/thermalwatch/internal/chron"
)

// #region mode

// Mode selects the comparison direction.
type Mode int

const (
	// ExceedsAbove flags samples at or above the limit.
	ExceedsAbove Mode = iota
	// ExceedsBelow flags samples at or below the limit.
	ExceedsBelow
)

func (m Mode) String() string {
	if m == ExceedsBelow {
		return "below"
	}
	return "above"
}

// ExtremeKey is the fixed findings key for the run extreme: "maxtemp"
// for an upper-limit violation, "mintemp" for a lower-limit one.
func (m Mode) ExtremeKey() string {
	if m == ExceedsBelow {
		return "mintemp"
	}
	return "maxtemp"
}

// #endregion mode

// #region interval

// Interval is one reportable violation run. Exactly one of MaxTemp or
// MinTemp is set, matching the comparison direction.
type Interval struct {
	DateStart string     `json:"datestart"`
	DateStop  string     `json:"datestop"`
	MaxTemp   *float64   `json:"maxtemp,omitempty"`
	MinTemp   *float64   `json:"mintemp,omitempty"`
	TStart    chron.Secs `json:"-"`
	TStop     chron.Secs `json:"-"`
}

// Extreme returns whichever extreme value is set.
func (v Interval) Extreme() float64 {
	if v.MaxTemp != nil {
		return *v.MaxTemp
	}
	return *v.MinTemp
}

func (v Interval) String() string {
	return fmt.Sprintf("%s to %s (%.2f)", v.DateStart, v.DateStop, v.Extreme())
}

// #endregion interval

// #region detect

// Detect scans (times, vals) against limit and returns the ordered
// maximal runs where the comparison holds. A run is reportable only if
// it starts after windowStart, or straddles it, in which case the
// reported start is clamped to windowStart. A single-sample run is a
// valid interval with start == stop.
func Detect(times []chron.Secs, vals []float64, limit float64, mode Mode,
	windowStart chron.Secs) []Interval {

	// Pad the exceedance mask with false sentinels on both ends so
	// every run, including ones touching the edges, produces a
	// rising/falling index pair.
	mask := make([]bool, len(vals)+2)
	for i, v := range vals {
		switch mode {
		case ExceedsBelow:
			mask[i+1] = v <= limit
		default:
			mask[i+1] = v >= limit
		}
	}

	var edges []int
	for i := 0; i+1 < len(mask); i++ {
		if mask[i] != mask[i+1] {
			edges = append(edges, i)
		}
	}

	var out []Interval
	for i := 0; i+1 < len(edges); i += 2 {
		s, e := edges[i], edges[i+1] // run covers vals[s : e]
		runStart := times[s]
		runStop := times[e-1]

		inWindow := runStart > windowStart ||
			(runStart < windowStart && windowStart < runStop)
		if !inWindow {
			continue
		}
		start := runStart
		if start < windowStart {
			start = windowStart
		}

		extreme := vals[s]
		for _, v := range vals[s:e] {
			if (mode == ExceedsBelow && v < extreme) ||
				(mode == ExceedsAbove && v > extreme) {
				extreme = v
			}
		}

		iv := Interval{
			TStart:    start,
			TStop:     runStop,
			DateStart: chron.Date(start),
			DateStop:  chron.Date(runStop),
		}
		ex := extreme
		if mode == ExceedsBelow {
			iv.MinTemp = &ex
		} else {
			iv.MaxTemp = &ex
		}
		out = append(out, iv)
	}
	return out
}

// #endregion detect
