// Package report writes the format-stable output artifacts downstream
// tooling consumes: the state and temperature tables, the percentile
// table, and the findings file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/timeline"
	"github.com/skaops/thermalwatch/internal/validate"
	"github.com/skaops/thermalwatch/internal/violation"
)

// #region tables

// WriteStates writes the commanded-state table to states.dat.
func WriteStates(outdir string, tl *timeline.Timeline) error {
	return writeFile(filepath.Join(outdir, "states.dat"), func(w io.Writer) error {
		return tl.WriteTable(w)
	})
}

// WriteTemperatures writes the predicted series to temperatures.dat.
func WriteTemperatures(outdir, msid string, times []chron.Secs, vals []float64) error {
	return writeFile(filepath.Join(outdir, "temperatures.dat"), func(w io.Writer) error {
		return timeline.WriteSeriesTable(w, strings.ToLower(msid), times, vals)
	})
}

// #endregion tables

// #region quantiles

// valueFormats maps an MSID to its percentile cell format; anything not
// listed uses the temperature default.
var valueFormats = map[string]string{
	"pitch":  "%.3f",
	"roll":   "%.3f",
	"tscpos": "%d",
}

// WriteQuantTable writes the percentile table with header
// MSID,quant01,quant05,... for the given reports.
func WriteQuantTable(w io.Writer, reports []validate.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("report: no quantile reports")
	}
	head := []string{"MSID"}
	for _, q := range reports[0].Quantiles {
		head = append(head, fmt.Sprintf("quant%02d", q))
	}
	if _, err := fmt.Fprintln(w, strings.Join(head, ",")); err != nil {
		return err
	}
	for _, rep := range reports {
		cells := []string{rep.MSID}
		for _, q := range rep.Quantiles {
			cells = append(cells, formatValue(rep.MSID, rep.Values[q]))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, ",")); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(msid string, v float64) string {
	format, ok := valueFormats[strings.ToLower(msid)]
	if !ok {
		format = "%.2f"
	}
	if format == "%d" {
		return fmt.Sprintf(format, int(v))
	}
	return fmt.Sprintf(format, v)
}

// WriteQuantFile writes the percentile table to validation_quant.csv.
func WriteQuantFile(outdir string, reports []validate.Report) error {
	return writeFile(filepath.Join(outdir, "validation_quant.csv"), func(w io.Writer) error {
		return WriteQuantTable(w, reports)
	})
}

// #endregion quantiles

// #region findings

// Findings bundles every analysis product of one run.
type Findings struct {
	RunID      string                            `json:"run_id"`
	MSID       string                            `json:"msid"`
	DateStart  string                            `json:"datestart"`
	DateStop   string                            `json:"datestop"`
	SpecMD5    string                            `json:"spec_md5,omitempty"`
	Violations map[string][]violation.Interval   `json:"violations"`
	Validation []validate.Finding                `json:"validation"`
	Quantiles  []validate.Report                 `json:"quantiles,omitempty"`
}

// ViolationCount totals the violation intervals across directions.
func (f Findings) ViolationCount() int {
	n := 0
	for _, ivals := range f.Violations {
		n += len(ivals)
	}
	return n
}

// WriteFindings writes the findings file as indented JSON.
func WriteFindings(outdir string, f Findings) error {
	return writeFile(filepath.Join(outdir, "findings.json"), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	})
}

// #endregion findings

// #region helpers

func writeFile(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	return nil
}

// #endregion helpers
