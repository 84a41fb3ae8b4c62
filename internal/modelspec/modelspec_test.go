package modelspec

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

const validSpec = `{
  "name": "dpa",
  "msid": "1dpamzt",
  "tau_hours": 1.5,
  "ambient": 12.0,
  "heat_per_ccd": 2.0,
  "pitch_ref": 90.0,
  "pitch_slope": 0.05
}`

func TestParseValidSpec(t *testing.T) {
	spec, err := Parse([]byte(validSpec))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Name != "dpa" || spec.MSID != "1dpamzt" || spec.TauHours != 1.5 {
		t.Fatalf("spec %+v", spec)
	}
	// step_secs falls back to the archive cadence.
	if spec.StepSecs != 328.0 {
		t.Fatalf("step_secs %g, want 328", spec.StepSecs)
	}
}

func TestParseRejectsMissingRequired(t *testing.T) {
	if _, err := Parse([]byte(`{"name": "dpa", "msid": "1dpamzt"}`)); err == nil {
		t.Fatal("expected schema error for missing tau_hours/ambient")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	raw := `{"name": "x", "msid": "m", "tau_hours": 1, "ambient": 0, "bogus": 1}`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatal("expected schema error for unknown field")
	}
}

func TestParseRejectsNonPositiveTau(t *testing.T) {
	raw := `{"name": "x", "msid": "m", "tau_hours": 0, "ambient": 0}`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatal("expected schema error for tau_hours = 0")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadComputesChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	if err := os.WriteFile(path, []byte(validSpec), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	spec, sum, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if spec.Ambient != 12.0 {
		t.Fatalf("spec %+v", spec)
	}
	want := md5.Sum([]byte(validSpec))
	if sum != hex.EncodeToString(want[:]) {
		t.Fatalf("checksum %s", sum)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
