// Package validate compares a predicted series against telemetry on a
// common time grid and reduces the residual distribution to order
// statistics. Percentile exceedances are findings, never errors: a
// noisy model is a result, not a failure.
package validate

import (
	"fmt"
	"sort"

	"github.com/skaops/thermalwatch/internal/chron"
)

// DefaultQuantiles is the fixed ordered percentile set reported for
// every validated MSID.
var DefaultQuantiles = []int{1, 5, 16, 50, 84, 95, 99}

// #region masks

// GoodMask marks the samples outside every known-bad interval. Bad
// intervals are half-open [start, stop).
func GoodMask(times []chron.Secs, bad [][2]chron.Secs) []bool {
	mask := make([]bool, len(times))
	for i, t := range times {
		mask[i] = true
		for _, iv := range bad {
			if t >= iv[0] && t < iv[1] {
				mask[i] = false
				break
			}
		}
	}
	return mask
}

// HistOp selects a semantic subset of samples by comparing the
// telemetered value against a threshold. Used for the secondary
// residual histogram.
type HistOp string

const (
	OpGreater      HistOp = "greater"
	OpGreaterEqual HistOp = "greater_equal"
	OpLess         HistOp = "less"
	OpLessEqual    HistOp = "less_equal"
	OpBetween      HistOp = "between"
)

// HistLimit pairs an op with its threshold(s). Upper is only read for
// OpBetween.
type HistLimit struct {
	Op    HistOp  `yaml:"op" json:"op"`
	Value float64 `yaml:"value" json:"value"`
	Upper float64 `yaml:"upper,omitempty" json:"upper,omitempty"`
}

// Valid reports whether the op is one of the recognized comparisons.
func (h HistLimit) Valid() error {
	switch h.Op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween:
		return nil
	}
	return fmt.Errorf("validate: unknown histogram op %q", h.Op)
}

// Mask applies the op to each value.
func (h HistLimit) Mask(vals []float64) ([]bool, error) {
	out := make([]bool, len(vals))
	for i, v := range vals {
		switch h.Op {
		case OpGreater:
			out[i] = v > h.Value
		case OpGreaterEqual:
			out[i] = v >= h.Value
		case OpLess:
			out[i] = v < h.Value
		case OpLessEqual:
			out[i] = v <= h.Value
		case OpBetween:
			out[i] = v >= h.Value && v <= h.Upper
		default:
			return nil, fmt.Errorf("validate: unknown histogram op %q", h.Op)
		}
	}
	return out, nil
}

// And returns the element-wise conjunction of two masks.
func And(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

// #endregion masks

// #region residuals

// Residuals returns sorted telemetry-minus-predicted differences over
// the masked samples.
func Residuals(tlm, pred []float64, mask []bool) []float64 {
	var out []float64
	for i := range tlm {
		if mask == nil || mask[i] {
			out = append(out, tlm[i]-pred[i])
		}
	}
	sort.Float64s(out)
	return out
}

// Quantile picks the sorted residual at index floor(len*p/100). No
// averaging between adjacent ranks: order statistics stay robust to
// the heavy tails typical of model mismatch.
func Quantile(sorted []float64, p int) float64 {
	i := len(sorted) * p / 100
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// #endregion residuals

// #region report

// Report holds the residual percentiles for one MSID.
type Report struct {
	MSID      string          `json:"msid"`
	Quantiles []int           `json:"quantiles"`
	Values    map[int]float64 `json:"values"`
}

// BuildReport reduces a residual set to the requested percentiles.
func BuildReport(msid string, quantiles []int, residuals []float64) (Report, error) {
	if len(residuals) == 0 {
		return Report{}, fmt.Errorf("validate: %s: no residual samples", msid)
	}
	sorted := append([]float64(nil), residuals...)
	sort.Float64s(sorted)
	rep := Report{
		MSID:      msid,
		Quantiles: append([]int(nil), quantiles...),
		Values:    make(map[int]float64, len(quantiles)),
	}
	for _, q := range quantiles {
		rep.Values[q] = Quantile(sorted, q)
	}
	return rep, nil
}

// #endregion report

// #region findings

// QuantileLimit is one configured (percentile, limit) pair for an MSID.
type QuantileLimit struct {
	Percentile int     `yaml:"percentile" json:"percentile"`
	Limit      float64 `yaml:"limit" json:"limit"`
}

// Finding records one percentile whose absolute residual exceeded its
// configured limit.
type Finding struct {
	MSID     string  `json:"msid"`
	Quantile int     `json:"quant"`
	Value    float64 `json:"value"`
	Limit    float64 `json:"limit"`
}

// CheckLimits compares |residual| at each configured percentile against
// its limit. Percentiles with no configured limit are skipped; a
// configured percentile missing from the report is an input error.
func CheckLimits(rep Report, limits []QuantileLimit) ([]Finding, error) {
	var out []Finding
	for _, lim := range limits {
		v, ok := rep.Values[lim.Percentile]
		if !ok {
			return nil, fmt.Errorf("validate: %s: limit set for %d%% but that percentile is not reported",
				rep.MSID, lim.Percentile)
		}
		if abs(v) > lim.Limit {
			out = append(out, Finding{
				MSID:     rep.MSID,
				Quantile: lim.Percentile,
				Value:    v,
				Limit:    lim.Limit,
			})
		}
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion findings
