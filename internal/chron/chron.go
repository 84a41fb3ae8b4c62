// Package chron converts between mission-elapsed seconds and
// year:day-of-year date strings. All mission times in this repo are
// float64 seconds since the 1998.0 epoch.
package chron

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Epoch is mission time zero (1998.0).
var Epoch = time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC)

// Secs is a mission-elapsed time in seconds.
type Secs = float64

// #region format

// Date renders a mission time as YYYY:DOY:HH:MM:SS.sss.
func Date(t Secs) string {
	// Round to millisecond first so the fields stay consistent.
	ms := int64(math.Round(t * 1000.0))
	u := Epoch.Add(time.Duration(ms) * time.Millisecond)
	return fmt.Sprintf("%04d:%03d:%02d:%02d:%02d.%03d",
		u.Year(), u.YearDay(), u.Hour(), u.Minute(), u.Second(),
		u.Nanosecond()/1e6)
}

// #endregion format

// #region parse

// ParseDate converts a YYYY:DOY:HH:MM:SS.sss date string to mission seconds.
// The fractional-second part is optional.
func ParseDate(date string) (Secs, error) {
	parts := strings.Split(strings.TrimSpace(date), ":")
	if len(parts) != 5 {
		return 0, fmt.Errorf("malformed date %q: want YYYY:DOY:HH:MM:SS.sss", date)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: year: %w", date, err)
	}
	doy, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: day-of-year: %w", date, err)
	}
	hour, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: hour: %w", date, err)
	}
	minute, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: minute: %w", date, err)
	}
	sec, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: seconds: %w", date, err)
	}
	u := time.Date(year, 1, 1, hour, minute, 0, 0, time.UTC).
		AddDate(0, 0, doy-1)
	return u.Sub(Epoch).Seconds() + sec, nil
}

// MustParseDate is ParseDate for literals in tests and seed tools.
func MustParseDate(date string) Secs {
	t, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return t
}

// #endregion parse
