package loads

import (
	"fmt"
	"log/slog"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/timeline"
)

// #region config

// ResolverConfig bounds the backward walk.
type ResolverConfig struct {
	// MaxHops caps the number of continuity hops before the walk is
	// declared unterminated.
	MaxHops int
}

// DefaultResolverConfig returns the default hop bound. Real chains are
// a handful of hops; anything near the bound is a broken archive.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{MaxHops: 30}
}

// #endregion config

// #region resolver

// Resolver walks a load's continuity chain backward until the assembled
// command history covers a required start time.
type Resolver struct {
	provider Provider
	config   ResolverConfig
	log      *slog.Logger
}

// NewResolver creates a resolver reading documents from p.
func NewResolver(p Provider, config ResolverConfig, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{provider: p, config: config, log: log}
}

// #endregion resolver

// #region chain-state

// chainState is the accumulator threaded through the backward walk.
// Each step consumes one and produces a fresh one; nothing is shared.
type chainState struct {
	cmds     []command.Command
	earliest chron.Secs
	doc      string
}

// step reads st.doc's continuity record and merges the predecessor's
// command set into the accumulated history under the rule selected by
// how st.doc interrupted it.
func (r *Resolver) step(st chainState) (chainState, error) {
	cont, err := r.provider.Continuity(st.doc)
	if err != nil {
		return chainState{}, fmt.Errorf("continuity of %s: %w", st.doc, err)
	}
	contCmds, err := r.provider.Commands(cont.Name)
	if err != nil {
		return chainState{}, fmt.Errorf("commands of %s: %w", cont.Name, err)
	}

	var merged []command.Command
	switch cont.Type {
	case Normal:
		merged = MergeNormal(contCmds, st.cmds)
	case TOO:
		merged = MergeTOO(contCmds, st.cmds)
	case Stop:
		merged = MergeStop(contCmds, st.cmds, cont.CutoffTime)
	case SCS107:
		vo, err := r.provider.VehicleOnlyCommands(cont.Name)
		if err != nil {
			return chainState{}, fmt.Errorf("vehicle-only commands of %s: %w", cont.Name, err)
		}
		merged = MergeSCS107(contCmds, vo, st.cmds, cont.CutoffTime)
	default:
		return chainState{}, fmt.Errorf("loads: unhandled load type %v for %s", cont.Type, cont.Name)
	}
	if len(merged) == 0 {
		return chainState{}, fmt.Errorf("merge of %s produced no commands: %w",
			cont.Name, timeline.ErrEmptyCommandSet)
	}

	r.log.Info("backchained continuity load",
		"load", cont.Name, "type", cont.Type.String(),
		"earliest", chron.Date(merged[0].Time))

	return chainState{cmds: merged, earliest: merged[0].Time, doc: cont.Name}, nil
}

// #endregion chain-state

// #region assemble

// Assembled is the reconstructed as-run command history for a review
// load, covering start through the load's scheduled stop.
type Assembled struct {
	// Commands is the history clipped to times strictly after Start.
	Commands []command.Command
	Start    chron.Secs
	// SchedStop is the effective stop: the last scheduled-stop sentinel
	// if present, else the last command time.
	SchedStop chron.Secs
}

// Assemble backchains from the review load until the history covers
// start, then clips and resolves the scheduled stop.
func (r *Resolver) Assemble(reviewName string, reviewCmds []command.Command, start chron.Secs) (Assembled, error) {
	reviewCmds = command.SortStable(reviewCmds)
	if len(reviewCmds) == 0 {
		return Assembled{}, fmt.Errorf("review load %s: %w", reviewName, timeline.ErrEmptyCommandSet)
	}

	st := chainState{
		cmds:     reviewCmds,
		earliest: reviewCmds[0].Time,
		doc:      reviewName,
	}

	hops := 0
	for start < st.earliest {
		hops++
		if hops > r.config.MaxHops {
			return Assembled{}, fmt.Errorf(
				"%w: %d hops from %s without covering %s",
				ErrContinuityChain, r.config.MaxHops, reviewName, chron.Date(start))
		}
		next, err := r.step(st)
		if err != nil {
			return Assembled{}, err
		}
		st = next
	}

	clipped := command.After(st.cmds, start)
	if len(clipped) == 0 {
		return Assembled{}, fmt.Errorf("no commands after %s: %w",
			chron.Date(start), timeline.ErrEmptyCommandSet)
	}
	stop, _ := command.ScheduledStop(clipped)

	return Assembled{Commands: clipped, Start: start, SchedStop: stop}, nil
}

// Timeline converts the assembled history to a commanded-state timeline
// seeded from initial.
func (a Assembled) Timeline(initial map[string]string, mergeIdentical bool) (*timeline.Timeline, error) {
	return timeline.FromCommands(a.Commands, a.Start, a.SchedStop,
		initial, command.StateKeys, mergeIdentical)
}

// #endregion assemble
