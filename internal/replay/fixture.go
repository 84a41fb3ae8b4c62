// Package replay runs the full pipeline from a self-contained JSON
// fixture: a load chain, a telemetry slice, a run configuration, and
// optionally the findings the run is expected to produce.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/config"
	"github.com/skaops/thermalwatch/internal/validate"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string           `json:"description"`
	Config      FixtureConfig    `json:"config"`
	Loads       []FixtureLoad    `json:"loads"`
	Telemetry   FixtureTelemetry `json:"telemetry"`
	ReviewLoad  string           `json:"review_load"`
	RunStart    string           `json:"run_start,omitempty"`
	Expected    *FixtureExpected `json:"expected_results,omitempty"`
}

// FixtureConfig mirrors config.Config with JSON tags, plus the model
// spec document inlined so a fixture needs no companion files.
type FixtureConfig struct {
	MSID               string                              `json:"msid"`
	Name               string                              `json:"name"`
	Days               float64                             `json:"days,omitempty"`
	CautionHigh        float64                             `json:"caution_high"`
	CautionLow         float64                             `json:"caution_low"`
	Margin             float64                             `json:"margin"`
	FlagColdViolations bool                                `json:"flag_cold_violations,omitempty"`
	Quantiles          []int                               `json:"quantiles,omitempty"`
	ValidationLimits   map[string][]validate.QuantileLimit `json:"validation_limits,omitempty"`
	ExtraMSIDs         []string                            `json:"extra_msids,omitempty"`
	HistLimits         []validate.HistLimit                `json:"hist_limits,omitempty"`
	BadTimes           [][2]string                         `json:"bad_times,omitempty"`
	InitialState       map[string]string                   `json:"initial_state,omitempty"`
	InitialTemp        *float64                            `json:"initial_temp,omitempty"`
	MaxHops            int                                 `json:"max_hops,omitempty"`
	ModelSpec          json.RawMessage                     `json:"model_spec"`
}

// FixtureLoad is one load document with its command sets.
type FixtureLoad struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Continuity  string            `json:"continuity,omitempty"`
	CutoffDate  string            `json:"cutoff_date,omitempty"`
	Commands    []command.Command `json:"commands"`
	VehicleOnly []command.Command `json:"vehicle_only,omitempty"`
}

// FixtureTelemetry is the telemetry slice on its native grid.
type FixtureTelemetry struct {
	Times   []float64            `json:"times"`
	Columns map[string][]float64 `json:"columns"`
}

// FixtureExpected captures the findings a fixture run must reproduce.
type FixtureExpected struct {
	ViolationsHi int `json:"violations_hi"`
	ViolationsLo int `json:"violations_lo"`
	Findings     int `json:"findings"`
}

// #endregion fixture-types

// #region load

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// BuildConfig converts the fixture's inline config over the defaults.
// Artifact writing stays disabled; replay is in-memory.
func (f Fixture) BuildConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.OutDir = ""
	cfg.MSID = f.Config.MSID
	cfg.Name = f.Config.Name
	if f.Config.Days > 0 {
		cfg.Days = f.Config.Days
	}
	cfg.CautionHigh = f.Config.CautionHigh
	cfg.CautionLow = f.Config.CautionLow
	cfg.Margin = f.Config.Margin
	cfg.FlagColdViolations = f.Config.FlagColdViolations
	if len(f.Config.Quantiles) > 0 {
		cfg.Quantiles = f.Config.Quantiles
	}
	cfg.ValidationLimits = f.Config.ValidationLimits
	cfg.ExtraMSIDs = f.Config.ExtraMSIDs
	cfg.HistLimits = f.Config.HistLimits
	cfg.BadTimes = f.Config.BadTimes
	cfg.InitialState = f.Config.InitialState
	cfg.InitialTemp = f.Config.InitialTemp
	if f.Config.MaxHops > 0 {
		cfg.MaxHops = f.Config.MaxHops
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("fixture config: %w", err)
	}
	return cfg, nil
}

// #endregion load
