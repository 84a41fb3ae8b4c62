// Package command defines the timestamped directives that load documents
// are made of, plus the ordering and filtering helpers the merge rules
// and the timeline builder are built on. Commands are immutable: helpers
// return fresh slices and never modify their inputs in place.
package command

import (
	"sort"

	"github.com/skaops/thermalwatch/internal/chron"
)

// #region kind

// Kind tags a command as state-changing or as one of the two scheduling
// sentinels carried inside a load.
type Kind string

const (
	// KindState is an ordinary state-changing command.
	KindState Kind = "state"
	// KindRLTT marks the running-load termination time: the last moment
	// of previously approved commanding that the load under review
	// still expects to run.
	KindRLTT Kind = "running_load_termination_time"
	// KindScheduledStop marks the scheduled stop time, the end of
	// propagation for a load.
	KindScheduledStop Kind = "scheduled_stop_time"
)

// #endregion kind

// #region command

// Command is a single timestamped directive.
type Command struct {
	Time     chron.Secs        `json:"time"`
	Date     string            `json:"date"`
	Kind     Kind              `json:"kind"`
	Mnemonic string            `json:"mnemonic"`
	// Sets holds the tracked state-attribute assignments this command
	// makes, keyed by state key. Empty for sentinels.
	Sets map[string]string `json:"sets,omitempty"`
}

// StateKeys is the fixed set of tracked state attributes, in output
// column order.
var StateKeys = []string{
	"ccd_count", "clocking", "fep_count", "pitch",
	"power_cmd", "si_mode", "simpos", "vid_board",
}

// #endregion command

// #region ordering

// SortStable orders commands by time, preserving the original relative
// order of equal timestamps.
func SortStable(cmds []Command) []Command {
	out := append([]Command(nil), cmds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// #endregion ordering

// #region filters

// Before returns the commands with Time strictly before t.
func Before(cmds []Command, t chron.Secs) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Time < t {
			out = append(out, c)
		}
	}
	return out
}

// From returns the commands with Time at or after t.
func From(cmds []Command, t chron.Secs) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Time >= t {
			out = append(out, c)
		}
	}
	return out
}

// After returns the commands with Time strictly after t.
func After(cmds []Command, t chron.Secs) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Time > t {
			out = append(out, c)
		}
	}
	return out
}

// #endregion filters

// #region sentinels

// ScheduledStop returns the time of the last scheduled-stop sentinel in
// cmds, or the last command's time when no sentinel is present. The
// second return is false only for an empty input.
func ScheduledStop(cmds []Command) (chron.Secs, bool) {
	if len(cmds) == 0 {
		return 0, false
	}
	stop := cmds[len(cmds)-1].Time
	for _, c := range cmds {
		if c.Kind == KindScheduledStop {
			stop = c.Time
		}
	}
	return stop, true
}

// RLTT returns the running-load termination time of cmds: the first
// RLTT sentinel if one exists, else the first command's time. The
// second return is false only for an empty input.
func RLTT(cmds []Command) (chron.Secs, bool) {
	if len(cmds) == 0 {
		return 0, false
	}
	for _, c := range cmds {
		if c.Kind == KindRLTT {
			return c.Time, true
		}
	}
	return cmds[0].Time, true
}

// #endregion sentinels
