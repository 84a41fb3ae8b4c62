package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaops/thermalwatch/internal/validate"
)

const testYAML = `
msid: 1dpamzt
name: dpa
archive_db: archive.db
model_spec: dpa_spec.json
caution_high: 37.5
caution_low: 10.0
margin: 2.0
flag_cold_violations: false
days: 14
validation_limits:
  1dpamzt:
    - {percentile: 1, limit: 5.5}
    - {percentile: 99, limit: 5.5}
  pitch:
    - {percentile: 1, limit: 3.0}
extra_msids: [pitch]
hist_limits:
  - {op: greater_equal, value: 20.0}
  - {op: between, value: 10.0, upper: 20.0}
bad_times:
  - ["2026:100:00:00:00.000", "2026:101:00:00:00.000"]
initial_state:
  simpos: "92904"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 21.0, cfg.Days)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, validate.DefaultQuantiles, cfg.Quantiles)
	assert.Equal(t, 30, cfg.MaxHops)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "1dpamzt", cfg.MSID)
	assert.Equal(t, 14.0, cfg.Days)
	// Untouched defaults survive.
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, validate.DefaultQuantiles, cfg.Quantiles)

	require.Len(t, cfg.ValidationLimits["1dpamzt"], 2)
	assert.Equal(t, validate.QuantileLimit{Percentile: 99, Limit: 5.5},
		cfg.ValidationLimits["1dpamzt"][1])
	require.Len(t, cfg.HistLimits, 2)
	assert.Equal(t, validate.OpBetween, cfg.HistLimits[1].Op)
	assert.Equal(t, "92904", cfg.InitialState["simpos"])
	require.Len(t, cfg.BadTimes, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.Validate(), "msid")

	cfg.MSID = "1dpamzt"
	assert.ErrorContains(t, cfg.Validate(), "name")

	cfg.Name = "dpa"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.MSID = "1dpamzt"
		cfg.Name = "dpa"
		return cfg
	}

	cfg := base()
	cfg.Days = 0
	assert.ErrorContains(t, cfg.Validate(), "days")

	cfg = base()
	cfg.Margin = -1
	assert.ErrorContains(t, cfg.Validate(), "margin")

	cfg = base()
	cfg.Quantiles = []int{50, 101}
	assert.ErrorContains(t, cfg.Validate(), "out of range")

	cfg = base()
	cfg.ValidationLimits = map[string][]validate.QuantileLimit{
		"1dpamzt": {{Percentile: 42, Limit: 1}},
	}
	assert.ErrorContains(t, cfg.Validate(), "42%")

	cfg = base()
	cfg.HistLimits = []validate.HistLimit{{Op: "sideways"}}
	assert.ErrorContains(t, cfg.Validate(), "histogram op")
}

func TestPlanningLimits(t *testing.T) {
	cfg := Config{CautionHigh: 37.5, CautionLow: 10.0, Margin: 2.0}
	assert.Equal(t, 35.5, cfg.PlanningLimitHi())
	assert.Equal(t, 12.0, cfg.PlanningLimitLo())
}
