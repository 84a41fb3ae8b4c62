// Package modelspec loads the thermal model specification. The spec is
// a JSON document validated against an embedded schema before a run;
// its MD5 checksum is recorded in the run log so output artifacts can
// be traced to the exact spec that produced them.
package modelspec

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// #region schema

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "msid", "tau_hours", "ambient"],
  "additionalProperties": false,
  "properties": {
    "name":         {"type": "string", "minLength": 1},
    "msid":         {"type": "string", "minLength": 1},
    "tau_hours":    {"type": "number", "exclusiveMinimum": 0},
    "ambient":      {"type": "number"},
    "heat_per_ccd": {"type": "number", "minimum": 0},
    "pitch_ref":    {"type": "number"},
    "pitch_slope":  {"type": "number"},
    "step_secs":    {"type": "number", "exclusiveMinimum": 0}
  }
}`

// #endregion schema

// #region spec

// Spec is the parameter set consumed by the step integrator.
type Spec struct {
	Name       string  `json:"name"`
	MSID       string  `json:"msid"`
	TauHours   float64 `json:"tau_hours"`
	Ambient    float64 `json:"ambient"`
	HeatPerCCD float64 `json:"heat_per_ccd"`
	PitchRef   float64 `json:"pitch_ref"`
	PitchSlope float64 `json:"pitch_slope"`
	StepSecs   float64 `json:"step_secs"`
}

// #endregion spec

// #region load

// Load reads, schema-validates, and parses a model spec file. The
// second return is the MD5 checksum of the file contents.
func Load(path string) (Spec, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, "", fmt.Errorf("read model spec: %w", err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return Spec{}, "", fmt.Errorf("model spec %s: %w", path, err)
	}
	sum := md5.Sum(raw)
	return spec, hex.EncodeToString(sum[:]), nil
}

// Parse schema-validates and decodes a model spec document.
func Parse(raw []byte) (Spec, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("modelspec.json", bytes.NewReader([]byte(schemaJSON))); err != nil {
		return Spec{}, fmt.Errorf("compile schema: %w", err)
	}
	schema, err := compiler.Compile("modelspec.json")
	if err != nil {
		return Spec{}, fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Spec{}, fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Spec{}, fmt.Errorf("schema: %w", err)
	}

	spec := Spec{StepSecs: 328.0}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode: %w", err)
	}
	return spec, nil
}

// #endregion load
