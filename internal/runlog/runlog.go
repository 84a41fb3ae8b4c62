// Package runlog records one provenance row per pipeline run in the
// archive database.
package runlog

import (
	"database/sql"
	"fmt"
	"time"
)

// #region record

// Record is one run's provenance entry.
type Record struct {
	RunID      string
	MSID       string
	Name       string
	DateStart  string
	DateStop   string
	SpecMD5    string
	Violations int
	Findings   int
	CreatedAt  time.Time
}

// #endregion record

// #region log-run

// LogRun writes a provenance entry to the run_log table.
func LogRun(db *sql.DB, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO run_log (run_id, msid, name, datestart, datestop, spec_md5, violations, findings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.MSID,
		rec.Name,
		rec.DateStart,
		rec.DateStop,
		nullIfEmpty(rec.SpecMD5),
		rec.Violations,
		rec.Findings,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// #endregion log-run

// #region recent

// Recent returns the n most recent run entries, newest first.
func Recent(db *sql.DB, n int) ([]Record, error) {
	rows, err := db.Query(
		`SELECT run_id, msid, name, datestart, datestop, spec_md5, violations, findings, created_at
		 FROM run_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var md5 sql.NullString
		var created string
		err := rows.Scan(&rec.RunID, &rec.MSID, &rec.Name, &rec.DateStart,
			&rec.DateStop, &md5, &rec.Violations, &rec.Findings, &created)
		if err != nil {
			return nil, err
		}
		rec.SpecMD5 = md5.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion recent

// #region helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
