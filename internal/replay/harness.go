package replay

import (
	"fmt"
	"log/slog"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/integrate"
	"github.com/skaops/thermalwatch/internal/loads"
	"github.com/skaops/thermalwatch/internal/modelspec"
	"github.com/skaops/thermalwatch/internal/pipeline"
	"github.com/skaops/thermalwatch/internal/telemetry"
)

// #region source

// Source serves a fixture's loads and telemetry through the same
// provider interfaces the archive store implements.
type Source struct {
	byName map[string]FixtureLoad
	tlm    FixtureTelemetry
}

// NewSource indexes a fixture for provider lookups.
func NewSource(f Fixture) *Source {
	byName := make(map[string]FixtureLoad, len(f.Loads))
	for _, l := range f.Loads {
		byName[l.Name] = l
	}
	return &Source{byName: byName, tlm: f.Telemetry}
}

// Providers bundles the source for a pipeline run.
func (s *Source) Providers() pipeline.Providers {
	return pipeline.Providers{Loads: s, Telemetry: s, Span: s}
}

// Commands implements loads.Provider.
func (s *Source) Commands(name string) ([]command.Command, error) {
	l, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("replay: no load %q in fixture", name)
	}
	return command.SortStable(l.Commands), nil
}

// VehicleOnlyCommands implements loads.Provider.
func (s *Source) VehicleOnlyCommands(name string) ([]command.Command, error) {
	l, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("replay: no load %q in fixture", name)
	}
	return command.SortStable(l.VehicleOnly), nil
}

// Continuity implements loads.Provider.
func (s *Source) Continuity(name string) (loads.Continuity, error) {
	l, ok := s.byName[name]
	if !ok {
		return loads.Continuity{}, fmt.Errorf("replay: no load %q in fixture", name)
	}
	if l.Continuity == "" {
		return loads.Continuity{}, fmt.Errorf("replay: load %q has no continuity predecessor", name)
	}
	if _, ok := s.byName[l.Continuity]; !ok {
		return loads.Continuity{}, fmt.Errorf("replay: continuity %q of %q not in fixture", l.Continuity, name)
	}
	c := loads.Continuity{Name: l.Continuity}
	var err error
	if c.Type, err = loads.ParseLoadType(l.Type); err != nil {
		return loads.Continuity{}, err
	}
	if l.CutoffDate != "" {
		c.CutoffDate = l.CutoffDate
		if c.CutoffTime, err = chron.ParseDate(l.CutoffDate); err != nil {
			return loads.Continuity{}, err
		}
	}
	return c, nil
}

// Fetch implements telemetry.Provider over the fixture slice.
func (s *Source) Fetch(msids []string, start, stop chron.Secs) (*telemetry.MSIDSet, error) {
	var times []chron.Secs
	var keep []int
	for i, t := range s.tlm.Times {
		if t >= start && t <= stop {
			times = append(times, t)
			keep = append(keep, i)
		}
	}
	set := &telemetry.MSIDSet{
		Times:  times,
		Values: make(map[string][]float64, len(msids)),
	}
	for _, msid := range msids {
		col, ok := s.tlm.Columns[msid]
		if !ok {
			return nil, fmt.Errorf("%w: fixture has no %s column",
				telemetry.ErrInsufficientTelemetry, msid)
		}
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = col[i]
		}
		set.Values[msid] = vals
	}
	if err := set.Check(); err != nil {
		return nil, err
	}
	return set, nil
}

// CommandsBetween implements pipeline.SpanReader. Fixture load spans
// do not overlap, so plain concatenation in time order is the as-run
// history.
func (s *Source) CommandsBetween(start, stop chron.Secs) ([]command.Command, error) {
	var out []command.Command
	for _, l := range s.byName {
		for _, c := range l.Commands {
			if c.Time >= start && c.Time < stop {
				out = append(out, c)
			}
		}
	}
	return command.SortStable(out), nil
}

// #endregion source

// #region run

// Mismatch is one divergence between a fixture's expected results and
// the replayed run.
type Mismatch struct {
	Field string
	Want  int
	Got   int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %d, got %d", m.Field, m.Want, m.Got)
}

// RunFixture replays a fixture through the full pipeline and compares
// the outcome against the fixture's expected results, if any.
func RunFixture(f Fixture, log *slog.Logger) (*pipeline.Result, []Mismatch, error) {
	cfg, err := f.BuildConfig()
	if err != nil {
		return nil, nil, err
	}
	spec, err := modelspec.Parse(f.Config.ModelSpec)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: %w", err)
	}

	src := NewSource(f)
	runStart := chron.Secs(0)
	if f.RunStart != "" {
		if runStart, err = chron.ParseDate(f.RunStart); err != nil {
			return nil, nil, fmt.Errorf("replay: run_start: %w", err)
		}
	} else if n := len(f.Telemetry.Times); n > 0 {
		runStart = f.Telemetry.Times[n-1]
	}

	pl := pipeline.New(cfg, src.Providers(), integrate.NewStepModel(spec), log)
	res, err := pl.Run(f.ReviewLoad, runStart, false)
	if err != nil {
		return nil, nil, err
	}

	var mismatches []Mismatch
	if f.Expected != nil {
		check := func(field string, want, got int) {
			if want != got {
				mismatches = append(mismatches, Mismatch{Field: field, Want: want, Got: got})
			}
		}
		hi, lo := 0, 0
		if res.Prediction != nil {
			hi = len(res.Prediction.Violations["hi"])
			lo = len(res.Prediction.Violations["lo"])
		}
		findings := 0
		if res.Validation != nil {
			findings = len(res.Validation.Findings)
		}
		check("violations_hi", f.Expected.ViolationsHi, hi)
		check("violations_lo", f.Expected.ViolationsLo, lo)
		check("findings", f.Expected.Findings, findings)
	}
	return res, mismatches, nil
}

// #endregion run
