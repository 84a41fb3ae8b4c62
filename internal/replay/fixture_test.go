package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureJSON = `{
  "description": "two-load chain",
  "config": {
    "msid": "1dpamzt",
    "name": "dpa",
    "caution_high": 37.5,
    "caution_low": 10.0,
    "margin": 2.0,
    "model_spec": {"name": "dpa", "msid": "1dpamzt", "tau_hours": 1.0, "ambient": 20.0}
  },
  "loads": [
    {"name": "PREV", "type": "NORMAL", "commands": []},
    {"name": "CURR", "type": "NORMAL", "continuity": "PREV", "commands": []}
  ],
  "telemetry": {"times": [0, 328], "columns": {"1dpamzt": [20, 20]}},
  "review_load": "CURR",
  "expected_results": {"violations_hi": 0, "violations_lo": 0, "findings": 1}
}`

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)

	assert.Equal(t, "two-load chain", f.Description)
	assert.Equal(t, "CURR", f.ReviewLoad)
	require.Len(t, f.Loads, 2)
	assert.Equal(t, "PREV", f.Loads[1].Continuity)
	require.NotNil(t, f.Expected)
	assert.Equal(t, 1, f.Expected.Findings)
	assert.NotEmpty(t, f.Config.ModelSpec)
}

func TestLoadFixtureMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	_, err := LoadFixture(path)
	assert.Error(t, err)
}

func TestBuildConfigMergesDefaults(t *testing.T) {
	f := Fixture{Config: FixtureConfig{
		MSID:        "1dpamzt",
		Name:        "dpa",
		CautionHigh: 37.5,
		CautionLow:  10.0,
		Margin:      2.0,
	}}
	cfg, err := f.BuildConfig()
	require.NoError(t, err)

	// Defaults fill the gaps; artifact output stays off.
	assert.Equal(t, 21.0, cfg.Days)
	assert.Equal(t, 30, cfg.MaxHops)
	assert.Empty(t, cfg.OutDir)
	assert.Equal(t, 35.5, cfg.PlanningLimitHi())
}

func TestBuildConfigValidates(t *testing.T) {
	f := Fixture{Config: FixtureConfig{Name: "dpa"}}
	_, err := f.BuildConfig()
	assert.ErrorContains(t, err, "msid")
}
