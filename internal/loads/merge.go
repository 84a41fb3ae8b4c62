package loads

import (
	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
)

// The merge rules below are pure: they build a fresh ordered command
// sequence from their inputs and never mutate them. Output ordering is
// non-decreasing in time with ties keeping their original relative
// order.

// #region normal

// MergeNormal prepends the continuity commands that fall strictly
// before the current load's first command. Nothing is truncated.
func MergeNormal(cont, cur []command.Command) []command.Command {
	if len(cur) == 0 {
		return command.SortStable(cont)
	}
	out := append([]command.Command(nil), command.Before(cont, cur[0].Time)...)
	out = append(out, cur...)
	return command.SortStable(out)
}

// #endregion normal

// #region too

// MergeTOO handles an interrupt load: the current commands may begin
// before the nominal end of continuity, in which case continuity is
// truncated at the current load's first command time. Current commands
// win on overlap.
func MergeTOO(cont, cur []command.Command) []command.Command {
	if len(cur) == 0 {
		return command.SortStable(cont)
	}
	out := append([]command.Command(nil), command.Before(cont, cur[0].Time)...)
	out = append(out, cur...)
	return command.SortStable(out)
}

// #endregion too

// #region stop

// MergeStop truncates continuity at the moment the stop action was
// asserted, inserts the shutdown state at that moment, and appends the
// current commands. No continuity command survives at or after cutoff.
func MergeStop(cont, cur []command.Command, cutoff chron.Secs) []command.Command {
	out := append([]command.Command(nil), command.Before(cont, cutoff)...)
	out = append(out, shutdownCommand(cutoff))
	out = append(out, cur...)
	return command.SortStable(out)
}

// #endregion stop

// #region scs107

// MergeSCS107 models an autonomous safing action at cutoff: continuity
// runs to cutoff, the shutdown state is asserted there, then only the
// vehicle-only subset of continuity commanding runs from cutoff until
// the current load begins. Science commanding from continuity never
// reappears at or after cutoff.
func MergeSCS107(cont, vehicleOnly, cur []command.Command, cutoff chron.Secs) []command.Command {
	out := append([]command.Command(nil), command.Before(cont, cutoff)...)
	out = append(out, shutdownCommand(cutoff))
	vo := command.From(vehicleOnly, cutoff)
	if len(cur) > 0 {
		vo = command.Before(vo, cur[0].Time)
	}
	out = append(out, vo...)
	out = append(out, cur...)
	return command.SortStable(out)
}

// #endregion scs107

// #region shutdown

// shutdownCommand is the synthetic state asserted by a stop or safing
// action: science instrument powered down and video boards off.
func shutdownCommand(t chron.Secs) command.Command {
	return command.Command{
		Time:     t,
		Date:     chron.Date(t),
		Kind:     command.KindState,
		Mnemonic: "AA00000000",
		Sets: map[string]string{
			"ccd_count": "0",
			"fep_count": "0",
			"vid_board": "0",
			"clocking":  "0",
			"power_cmd": "AA00000000",
			"si_mode":   "CC_00000",
		},
	}
}

// #endregion shutdown
