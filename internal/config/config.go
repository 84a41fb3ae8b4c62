// Package config loads the per-model run configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skaops/thermalwatch/internal/validate"
)

// #region config

// Config is one model's run configuration.
type Config struct {
	// MSID is the modeled temperature mnemonic, Name the short
	// subsystem name used in filenames and logs.
	MSID string `yaml:"msid"`
	Name string `yaml:"name"`

	ArchiveDB string `yaml:"archive_db"`
	ModelSpec string `yaml:"model_spec"`
	OutDir    string `yaml:"outdir"`

	// Days of telemetry fetched before the run start.
	Days float64 `yaml:"days"`

	// Caution limits and planning margin. The upper planning limit is
	// caution_high - margin, the lower caution_low + margin.
	CautionHigh float64 `yaml:"caution_high"`
	CautionLow  float64 `yaml:"caution_low"`
	Margin      float64 `yaml:"margin"`

	// FlagColdViolations enables lower-planning-limit detection.
	FlagColdViolations bool `yaml:"flag_cold_violations"`

	// Quantiles reported per validated MSID; defaults to the standard
	// set when empty.
	Quantiles []int `yaml:"quantiles"`

	// ValidationLimits maps an MSID to its (percentile, limit) pairs.
	ValidationLimits map[string][]validate.QuantileLimit `yaml:"validation_limits"`

	// ExtraMSIDs are additional telemetry columns validated alongside
	// the modeled temperature (no residual limits applied unless
	// configured).
	ExtraMSIDs []string `yaml:"extra_msids"`

	// HistLimits select the residual subsets for the histograms; the
	// first entry is the primary subset, an optional second the
	// secondary one.
	HistLimits []validate.HistLimit `yaml:"hist_limits"`

	// BadTimes are date-string pairs excluded from validation.
	BadTimes [][2]string `yaml:"bad_times"`

	// InitialState seeds tracked attributes for the first prediction
	// interval.
	InitialState map[string]string `yaml:"initial_state"`

	// InitialTemp overrides the telemetry-derived initial temperature
	// when non-nil.
	InitialTemp *float64 `yaml:"initial_temp"`

	// MaxHops bounds the continuity backchain walk.
	MaxHops int `yaml:"max_hops"`
}

// #endregion config

// #region defaults

// Default returns the baseline configuration a file is merged over.
func Default() Config {
	return Config{
		Days:      21,
		OutDir:    "out",
		Quantiles: append([]int(nil), validate.DefaultQuantiles...),
		MaxHops:   30,
	}
}

// #endregion defaults

// #region load

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on configurations that would only surface as
// errors mid-run.
func (c Config) Validate() error {
	if c.MSID == "" {
		return fmt.Errorf("msid is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Days <= 0 {
		return fmt.Errorf("days must be positive, got %g", c.Days)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %g", c.Margin)
	}
	quant := make(map[int]bool, len(c.Quantiles))
	for _, q := range c.Quantiles {
		if q < 0 || q > 100 {
			return fmt.Errorf("quantile %d out of range", q)
		}
		quant[q] = true
	}
	for msid, lims := range c.ValidationLimits {
		for _, lim := range lims {
			if !quant[lim.Percentile] {
				return fmt.Errorf("validation limit for %s references %d%%, which is not in quantiles",
					msid, lim.Percentile)
			}
		}
	}
	for _, h := range c.HistLimits {
		if err := h.Valid(); err != nil {
			return err
		}
	}
	return nil
}

// #endregion load

// #region limits

// PlanningLimitHi is the upper planning limit.
func (c Config) PlanningLimitHi() float64 { return c.CautionHigh - c.Margin }

// PlanningLimitLo is the lower planning limit.
func (c Config) PlanningLimitLo() float64 { return c.CautionLow + c.Margin }

// #endregion limits
