package timeline

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/skaops/thermalwatch/internal/chron"
)

// #region columns

// Columns returns the full output column set, sorted, matching the
// legacy state-table layout.
func (t *Timeline) Columns() []string {
	cols := append([]string{"datestart", "datestop", "tstart", "tstop"}, t.Keys...)
	sort.Strings(cols)
	return cols
}

// #endregion columns

// #region write

// WriteTable writes the timeline as a tab-delimited table, one row per
// interval, with a fixed sorted column order. tstart, tstop and pitch
// are written with two decimal places.
func (t *Timeline) WriteTable(w io.Writer) error {
	cols := t.Columns()
	if _, err := fmt.Fprintln(w, strings.Join(cols, "\t")); err != nil {
		return err
	}
	for _, iv := range t.Intervals {
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = cellValue(iv, col)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(iv Interval, col string) string {
	switch col {
	case "datestart":
		return iv.DateStart
	case "datestop":
		return iv.DateStop
	case "tstart":
		return strconv.FormatFloat(iv.TStart, 'f', 2, 64)
	case "tstop":
		return strconv.FormatFloat(iv.TStop, 'f', 2, 64)
	case "pitch":
		if f, err := strconv.ParseFloat(iv.Attrs[col], 64); err == nil {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
		return iv.Attrs[col]
	default:
		return iv.Attrs[col]
	}
}

// #endregion write

// #region parse

// ParseTable reads a table previously written by WriteTable back into a
// timeline.
func ParseTable(r io.Reader) (*Timeline, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, fmt.Errorf("state table: missing header: %w", ErrEmptyCommandSet)
	}
	cols := strings.Split(strings.TrimRight(sc.Text(), "\n"), "\t")
	var keys []string
	for _, c := range cols {
		switch c {
		case "datestart", "datestop", "tstart", "tstop":
		default:
			keys = append(keys, c)
		}
	}

	tl := &Timeline{Keys: keys}
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("state table: line %d has %d fields, want %d",
				line, len(fields), len(cols))
		}
		iv := Interval{Attrs: make(map[string]string, len(keys))}
		for i, col := range cols {
			v := fields[i]
			var err error
			switch col {
			case "datestart":
				iv.DateStart = v
			case "datestop":
				iv.DateStop = v
			case "tstart":
				iv.TStart, err = strconv.ParseFloat(v, 64)
			case "tstop":
				iv.TStop, err = strconv.ParseFloat(v, 64)
			default:
				iv.Attrs[col] = v
			}
			if err != nil {
				return nil, fmt.Errorf("state table: line %d column %s: %w", line, col, err)
			}
		}
		tl.Intervals = append(tl.Intervals, iv)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("state table: %w", err)
	}
	if len(tl.Intervals) == 0 {
		return nil, fmt.Errorf("state table: no rows: %w", ErrEmptyCommandSet)
	}
	return tl, nil
}

// #endregion parse

// #region temps

// WriteSeriesTable writes a (time, date, value) series as a
// tab-delimited table with the given value column name. Times and
// values are written with two decimal places.
func WriteSeriesTable(w io.Writer, valueCol string, times []chron.Secs, vals []float64) error {
	if _, err := fmt.Fprintf(w, "time\tdate\t%s\n", valueCol); err != nil {
		return err
	}
	for i := range times {
		_, err := fmt.Fprintf(w, "%.2f\t%s\t%.2f\n",
			times[i], chron.Date(times[i]), vals[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// #endregion temps
