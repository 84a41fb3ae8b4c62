// Package pipeline runs the sequential batch analysis: assemble the
// commanded-state history, integrate the thermal model over it, and
// reduce the outputs to violation intervals and quantile findings.
// Each stage fully consumes its predecessor's output; nothing is
// shared between runs.
package pipeline

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/config"
	"github.com/skaops/thermalwatch/internal/integrate"
	"github.com/skaops/thermalwatch/internal/loads"
	"github.com/skaops/thermalwatch/internal/report"
	"github.com/skaops/thermalwatch/internal/runlog"
	"github.com/skaops/thermalwatch/internal/telemetry"
	"github.com/skaops/thermalwatch/internal/timeline"
	"github.com/skaops/thermalwatch/internal/validate"
	"github.com/skaops/thermalwatch/internal/violation"
)

// initialTempHalfWidth bounds the telemetry window averaged for the
// initial model temperature.
const initialTempHalfWidth = 700.0

// reviewBackoff is how many samples the prediction start backs off
// from the end of telemetry.
const reviewBackoff = 5

// #region providers

// SpanReader supplies the already-run command history over a time span,
// used for validation states.
type SpanReader interface {
	CommandsBetween(start, stop chron.Secs) ([]command.Command, error)
}

// Providers bundles the external collaborators a run needs. The
// archive store satisfies all three; fixtures provide in-memory
// implementations.
type Providers struct {
	Loads     loads.Provider
	Telemetry telemetry.Provider
	Span      SpanReader
}

// #endregion providers

// #region pipeline

// Pipeline is one run's context: configuration, collaborators, and
// logger, scoped to a single invocation.
type Pipeline struct {
	cfg        config.Config
	providers  Providers
	integrator integrate.Integrator
	log        *slog.Logger

	// RunID identifies this run in logs and artifacts.
	RunID string
	// SpecMD5, when set, is recorded with the run.
	SpecMD5 string
	// RunLogDB, when set, receives one provenance row per run.
	RunLogDB *sql.DB
}

// New creates a pipeline for one run.
func New(cfg config.Config, pv Providers, integ integrate.Integrator, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		providers:  pv,
		integrator: integ,
		log:        log,
		RunID:      uuid.NewString(),
	}
}

// #endregion pipeline

// #region results

// Prediction is the product of the review-load model run.
type Prediction struct {
	Timeline   *timeline.Timeline
	Times      []chron.Secs
	Temps      []float64
	Violations map[string][]violation.Interval
	LoadStart  chron.Secs
	SchedStop  chron.Secs
}

// Validation is the product of the model-vs-telemetry run.
type Validation struct {
	Start, Stop chron.Secs
	Reports     []validate.Report
	Findings    []validate.Finding
	// Secondary holds the sorted residuals of the secondary histogram
	// subset when a second histogram limit is configured.
	Secondary []float64
}

// Result bundles both stages of one run.
type Result struct {
	RunID      string
	Prediction *Prediction
	Validation *Validation
}

// #endregion results

// #region run

// Run executes the pipeline. reviewLoad selects the load under review;
// when empty, only validation is performed. predOnly skips validation.
func (p *Pipeline) Run(reviewLoad string, runStart chron.Secs, predOnly bool) (*Result, error) {
	badTimes, err := p.badIntervals()
	if err != nil {
		return nil, err
	}
	if predOnly && reviewLoad == "" {
		return nil, fmt.Errorf("pipeline: prediction-only run needs a review load")
	}

	var reviewCmds []command.Command
	tstart := runStart
	if reviewLoad != "" {
		reviewCmds, err = p.providers.Loads.Commands(reviewLoad)
		if err != nil {
			return nil, fmt.Errorf("review load: %w", err)
		}
		reviewCmds = command.SortStable(reviewCmds)
		if len(reviewCmds) == 0 {
			return nil, fmt.Errorf("review load %s: %w", reviewLoad, timeline.ErrEmptyCommandSet)
		}
		tstart = reviewCmds[0].Time
	}

	fetchStop := tstart
	if runStart < fetchStop {
		fetchStop = runStart
	}
	fetchStart := fetchStop - p.cfg.Days*86400.0
	p.log.Info("fetching telemetry",
		"start", chron.Date(fetchStart), "stop", chron.Date(fetchStop),
		"msids", p.telemMSIDs())
	tlm, err := p.providers.Telemetry.Fetch(p.telemMSIDs(), fetchStart, fetchStop)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := tlm.Check(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	res := &Result{RunID: p.RunID}

	if reviewLoad != "" {
		res.Prediction, err = p.predict(reviewLoad, reviewCmds, tlm)
		if err != nil {
			return nil, err
		}
	}
	if !predOnly {
		res.Validation, err = p.validateSpan(tlm, badTimes)
		if err != nil {
			return nil, err
		}
	}

	if err := p.writeArtifacts(res); err != nil {
		return nil, err
	}
	if err := p.logRun(res); err != nil {
		return nil, err
	}
	return res, nil
}

// #endregion run

// #region predict

func (p *Pipeline) predict(reviewLoad string, reviewCmds []command.Command, tlm *telemetry.MSIDSet) (*Prediction, error) {
	// Back off from the very last telemetry sample before assembling
	// state history.
	idx := tlm.Len() - reviewBackoff
	if idx < 0 {
		idx = 0
	}
	tbegin := tlm.Times[idx]

	resolver := loads.NewResolver(p.providers.Loads,
		loads.ResolverConfig{MaxHops: p.cfg.MaxHops}, p.log)
	asm, err := resolver.Assemble(reviewLoad, reviewCmds, tbegin)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	initial := p.initialState(tlm, tbegin)
	tl, err := asm.Timeline(initial, false)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	tinit, err := p.initialTemp(tlm, tbegin)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.log.Info("calculating thermal model",
		"name", strings.ToUpper(p.cfg.Name),
		"start", chron.Date(asm.Start), "stop", chron.Date(asm.SchedStop),
		"initial_temp", tinit)
	times, temps, err := p.integrator.Run(tl, tinit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: integrate: %w", err)
	}

	loadStart := reviewCmds[0].Time
	viols := map[string][]violation.Interval{
		"hi": violation.Detect(times, temps, p.cfg.PlanningLimitHi(),
			violation.ExceedsAbove, loadStart),
	}
	if p.cfg.FlagColdViolations {
		viols["lo"] = violation.Detect(times, temps, p.cfg.PlanningLimitLo(),
			violation.ExceedsBelow, loadStart)
	}
	for dir, ivals := range viols {
		key := violation.ExceedsAbove.ExtremeKey()
		if dir == "lo" {
			key = violation.ExceedsBelow.ExtremeKey()
		}
		for _, iv := range ivals {
			p.log.Warn("planning limit violation",
				"direction", dir, "start", iv.DateStart, "stop", iv.DateStop,
				key, iv.Extreme())
		}
	}

	return &Prediction{
		Timeline:   tl,
		Times:      times,
		Temps:      temps,
		Violations: viols,
		LoadStart:  loadStart,
		SchedStop:  asm.SchedStop,
	}, nil
}

// #endregion predict

// #region validate

func (p *Pipeline) validateSpan(tlm *telemetry.MSIDSet, badTimes [][2]chron.Secs) (*Validation, error) {
	start := tlm.Times[0]
	stop := tlm.Times[tlm.Len()-1]
	p.log.Info("getting commanded states for validation",
		"start", chron.Date(start), "stop", chron.Date(stop))

	cmds, err := p.providers.Span.CommandsBetween(start, stop)
	if err != nil {
		return nil, fmt.Errorf("pipeline: validation commands: %w", err)
	}
	vtl, err := timeline.FromCommands(cmds, start, stop,
		p.initialState(tlm, start), command.StateKeys, true)
	if err != nil {
		return nil, fmt.Errorf("pipeline: validation states: %w", err)
	}
	// Cover edge samples despite date round-tripping precision.
	vtl.StretchEnds(0.01)

	tcol, err := tlm.Column(p.cfg.MSID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	vtimes, vtemps, err := p.integrator.Run(vtl, tcol[0])
	if err != nil {
		return nil, fmt.Errorf("pipeline: integrate validation: %w", err)
	}

	// Align telemetry onto the model grid; values stay quantized to
	// their native cadence.
	rtlm := tlm.Resample(vtimes)
	good := validate.GoodMask(vtimes, badTimes)

	val := &Validation{Start: start, Stop: stop}

	rvals, err := rtlm.Column(p.cfg.MSID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	mask := good
	if len(p.cfg.HistLimits) > 0 {
		hm, err := p.cfg.HistLimits[0].Mask(rvals)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		mask = validate.And(hm, good)
	}
	rep, err := validate.BuildReport(p.cfg.MSID, p.cfg.Quantiles,
		validate.Residuals(rvals, vtemps, mask))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	val.Reports = append(val.Reports, rep)

	if len(p.cfg.HistLimits) > 1 {
		hm2, err := p.cfg.HistLimits[1].Mask(rvals)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		val.Secondary = validate.Residuals(rvals, vtemps, validate.And(hm2, good))
	}

	// Extra MSIDs are validated against their commanded values from
	// the state timeline.
	for _, msid := range p.cfg.ExtraMSIDs {
		evals, err := rtlm.Column(msid)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		pred, err := commandedSeries(vtl, msid, vtimes)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		rep, err := validate.BuildReport(msid, p.cfg.Quantiles,
			validate.Residuals(evals, pred, good))
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		val.Reports = append(val.Reports, rep)
	}

	for _, rep := range val.Reports {
		lims, ok := p.cfg.ValidationLimits[rep.MSID]
		if !ok {
			continue
		}
		findings, err := validate.CheckLimits(rep, lims)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		for _, f := range findings {
			p.log.Warn("validation quantile exceeds limit",
				"msid", f.MSID, "quant", f.Quantile,
				"value", f.Value, "limit", f.Limit)
		}
		val.Findings = append(val.Findings, findings...)
	}
	return val, nil
}

// commandedSeries samples a tracked attribute as a step function over
// the given times.
func commandedSeries(tl *timeline.Timeline, key string, times []chron.Secs) ([]float64, error) {
	out := make([]float64, len(times))
	idx := 0
	for i, t := range times {
		for idx < len(tl.Intervals)-1 && t >= tl.Intervals[idx].TStop {
			idx++
		}
		v, err := tl.Intervals[idx].Float(key)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// #endregion validate

// #region seeds

func (p *Pipeline) telemMSIDs() []string {
	return append([]string{p.cfg.MSID}, p.cfg.ExtraMSIDs...)
}

// initialState seeds the tracked attributes: safe-state defaults,
// overridden by configuration, with pitch taken from telemetry when
// available.
func (p *Pipeline) initialState(tlm *telemetry.MSIDSet, t chron.Secs) map[string]string {
	initial := map[string]string{
		"ccd_count": "0",
		"clocking":  "0",
		"fep_count": "0",
		"pitch":     "90.00",
		"power_cmd": "AA00000000",
		"si_mode":   "CC_00000",
		"simpos":    "-99616",
		"vid_board": "0",
	}
	for k, v := range p.cfg.InitialState {
		initial[k] = v
	}
	if _, set := p.cfg.InitialState["pitch"]; !set {
		if vals, err := tlm.Column("pitch"); err == nil {
			i := telemetry.NearestIndices(tlm.Times, []chron.Secs{t})[0]
			initial["pitch"] = fmt.Sprintf("%.2f", vals[i])
		}
	}
	return initial
}

func (p *Pipeline) initialTemp(tlm *telemetry.MSIDSet, t chron.Secs) (float64, error) {
	if p.cfg.InitialTemp != nil {
		return *p.cfg.InitialTemp, nil
	}
	return tlm.MeanAround(p.cfg.MSID, t, initialTempHalfWidth)
}

func (p *Pipeline) badIntervals() ([][2]chron.Secs, error) {
	var out [][2]chron.Secs
	for _, pair := range p.cfg.BadTimes {
		start, err := chron.ParseDate(pair[0])
		if err != nil {
			return nil, fmt.Errorf("pipeline: bad_times: %w", err)
		}
		stop, err := chron.ParseDate(pair[1])
		if err != nil {
			return nil, fmt.Errorf("pipeline: bad_times: %w", err)
		}
		out = append(out, [2]chron.Secs{start, stop})
	}
	return out, nil
}

// #endregion seeds

// #region artifacts

func (p *Pipeline) writeArtifacts(res *Result) error {
	if p.cfg.OutDir == "" {
		return nil
	}
	f := p.findings(res)
	if res.Prediction != nil {
		if err := report.WriteStates(p.cfg.OutDir, res.Prediction.Timeline); err != nil {
			return err
		}
		if err := report.WriteTemperatures(p.cfg.OutDir, p.cfg.MSID,
			res.Prediction.Times, res.Prediction.Temps); err != nil {
			return err
		}
	}
	if res.Validation != nil {
		if err := report.WriteQuantFile(p.cfg.OutDir, res.Validation.Reports); err != nil {
			return err
		}
	}
	return report.WriteFindings(p.cfg.OutDir, f)
}

func (p *Pipeline) findings(res *Result) report.Findings {
	f := report.Findings{
		RunID:      res.RunID,
		MSID:       strings.ToUpper(p.cfg.MSID),
		SpecMD5:    p.SpecMD5,
		Violations: map[string][]violation.Interval{},
	}
	if res.Prediction != nil {
		f.Violations = res.Prediction.Violations
		f.DateStart = chron.Date(res.Prediction.Timeline.Start())
		f.DateStop = chron.Date(res.Prediction.SchedStop)
	}
	if res.Validation != nil {
		f.Validation = res.Validation.Findings
		f.Quantiles = res.Validation.Reports
		if f.DateStart == "" {
			f.DateStart = chron.Date(res.Validation.Start)
			f.DateStop = chron.Date(res.Validation.Stop)
		}
	}
	return f
}

func (p *Pipeline) logRun(res *Result) error {
	if p.RunLogDB == nil {
		return nil
	}
	f := p.findings(res)
	return runlog.LogRun(p.RunLogDB, runlog.Record{
		RunID:      res.RunID,
		MSID:       f.MSID,
		Name:       p.cfg.Name,
		DateStart:  f.DateStart,
		DateStop:   f.DateStop,
		SpecMD5:    p.SpecMD5,
		Violations: f.ViolationCount(),
		Findings:   len(f.Validation),
	})
}

// #endregion artifacts
