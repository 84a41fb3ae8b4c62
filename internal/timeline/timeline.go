// Package timeline holds the commanded-state timeline: an ordered,
// gap-free, non-overlapping sequence of state intervals built from a
// command history. A timeline is built once per run and read-only
// afterwards.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
)

// #region errors

var (
	// ErrEmptyCommandSet means no commands fell inside the requested span.
	ErrEmptyCommandSet = errors.New("timeline: no commands in requested span")
	// ErrUnboundedTimeline means the first interval's start could not be
	// determined from the inputs.
	ErrUnboundedTimeline = errors.New("timeline: start boundary undetermined")
)

// #endregion errors

// #region types

// Interval is one commanded-state interval. Attrs holds the tracked
// state attributes as canonical strings, keyed by state key.
type Interval struct {
	TStart    chron.Secs        `json:"tstart"`
	TStop     chron.Secs        `json:"tstop"`
	DateStart string            `json:"datestart"`
	DateStop  string            `json:"datestop"`
	Attrs     map[string]string `json:"attrs"`
}

// Timeline is the ordered interval sequence plus the tracked key list
// in output column order.
type Timeline struct {
	Keys      []string
	Intervals []Interval
}

// #endregion types

// #region build

// FromCommands converts an ordered command sequence into a timeline
// over [start, stop). Interval boundaries occur exactly at command
// times that change at least one tracked attribute; attribute values
// are the most recently commanded value for each key as of each
// interval's start. The initial interval is seeded from initial.
//
// With mergeIdentical set, consecutive intervals with equal attribute
// sets are coalesced.
func FromCommands(cmds []command.Command, start, stop chron.Secs,
	initial map[string]string, keys []string, mergeIdentical bool) (*Timeline, error) {

	if math.IsNaN(start) || math.IsNaN(stop) || start >= stop {
		return nil, fmt.Errorf("%w: span [%v, %v)", ErrUnboundedTimeline, start, stop)
	}

	cmds = command.SortStable(cmds)

	cur := make(map[string]string, len(keys))
	for _, k := range keys {
		cur[k] = initial[k]
	}

	tl := &Timeline{Keys: append([]string(nil), keys...)}
	curStart := start
	seen := 0
	for _, c := range cmds {
		if c.Time <= start || c.Time > stop {
			continue
		}
		seen++
		if c.Time == stop {
			// The command at the stop boundary marks the end of the
			// span; it cannot open a new interval.
			continue
		}
		next, changed := applySets(cur, c.Sets, keys)
		if !changed {
			continue
		}
		if c.Time > curStart {
			tl.Intervals = append(tl.Intervals, newInterval(curStart, c.Time, cur))
			curStart = c.Time
		}
		cur = next
	}
	if seen == 0 {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrEmptyCommandSet,
			chron.Date(start), chron.Date(stop))
	}
	tl.Intervals = append(tl.Intervals, newInterval(curStart, stop, cur))

	if mergeIdentical {
		tl.Intervals = coalesce(tl.Intervals, keys)
	}
	return tl, nil
}

func newInterval(start, stop chron.Secs, attrs map[string]string) Interval {
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return Interval{
		TStart:    start,
		TStop:     stop,
		DateStart: chron.Date(start),
		DateStop:  chron.Date(stop),
		Attrs:     cp,
	}
}

// applySets returns a copy of cur with the tracked assignments from
// sets applied, and whether anything changed.
func applySets(cur map[string]string, sets map[string]string, keys []string) (map[string]string, bool) {
	changed := false
	next := cur
	for _, k := range keys {
		v, ok := sets[k]
		if !ok || cur[k] == v {
			continue
		}
		if !changed {
			next = make(map[string]string, len(cur))
			for kk, vv := range cur {
				next[kk] = vv
			}
			changed = true
		}
		next[k] = v
	}
	return next, changed
}

func coalesce(ivals []Interval, keys []string) []Interval {
	var out []Interval
	for _, iv := range ivals {
		if n := len(out); n > 0 && sameAttrs(out[n-1].Attrs, iv.Attrs, keys) {
			out[n-1].TStop = iv.TStop
			out[n-1].DateStop = iv.DateStop
			continue
		}
		out = append(out, iv)
	}
	return out
}

func sameAttrs(a, b map[string]string, keys []string) bool {
	for _, k := range keys {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// #endregion build

// #region helpers

// Start returns the timeline's first boundary.
func (t *Timeline) Start() chron.Secs { return t.Intervals[0].TStart }

// Stop returns the timeline's last boundary.
func (t *Timeline) Stop() chron.Secs { return t.Intervals[len(t.Intervals)-1].TStop }

// StretchEnds widens the first and last boundaries by dt seconds. Used
// by the validation run so edge samples stay inside the state span
// despite date round-tripping precision.
func (t *Timeline) StretchEnds(dt float64) {
	first := &t.Intervals[0]
	first.TStart -= dt
	first.DateStart = chron.Date(first.TStart)
	last := &t.Intervals[len(t.Intervals)-1]
	last.TStop += dt
	last.DateStop = chron.Date(last.TStop)
}

// Validate checks the structural invariants: every interval has
// start < stop and each stop equals the next start.
func (t *Timeline) Validate() error {
	if len(t.Intervals) == 0 {
		return ErrEmptyCommandSet
	}
	for i, iv := range t.Intervals {
		if iv.TStart >= iv.TStop {
			return fmt.Errorf("timeline: interval %d has start %s >= stop %s",
				i, iv.DateStart, iv.DateStop)
		}
		if i > 0 && t.Intervals[i-1].TStop != iv.TStart {
			return fmt.Errorf("timeline: gap or overlap between interval %d and %d", i-1, i)
		}
	}
	return nil
}

// Float reads a tracked attribute of iv as a float.
func (iv Interval) Float(key string) (float64, error) {
	v, ok := iv.Attrs[key]
	if !ok {
		return 0, fmt.Errorf("timeline: no attribute %q", key)
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return 0, fmt.Errorf("timeline: attribute %q=%q not numeric: %w", key, v, err)
	}
	return f, nil
}

// #endregion helpers
