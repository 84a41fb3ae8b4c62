// Package archive is the sqlite-backed command, load-document, and
// telemetry provider. One archive file holds the load chain, each
// load's command sets, the telemetry history, and the run log.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/loads"
	"github.com/skaops/thermalwatch/internal/telemetry"
)

// Cadence is the shared telemetry grid spacing in seconds.
const Cadence = 328.0

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS load_documents (
	name             TEXT PRIMARY KEY,
	load_type        TEXT NOT NULL,
	continuity_name  TEXT,
	cutoff_date      TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS load_commands (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	load_name     TEXT NOT NULL,
	vehicle_only  INTEGER NOT NULL DEFAULT 0,
	seq           INTEGER NOT NULL,
	time          REAL NOT NULL,
	date          TEXT NOT NULL,
	kind          TEXT NOT NULL,
	mnemonic      TEXT,
	sets_json     TEXT,
	FOREIGN KEY (load_name) REFERENCES load_documents(name)
);
CREATE INDEX IF NOT EXISTS idx_load_commands ON load_commands(load_name, vehicle_only, seq);
CREATE INDEX IF NOT EXISTS idx_load_commands_time ON load_commands(time);

CREATE TABLE IF NOT EXISTS telemetry (
	msid   TEXT NOT NULL,
	time   REAL NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (msid, time)
);

CREATE TABLE IF NOT EXISTS run_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	msid        TEXT NOT NULL,
	name        TEXT NOT NULL,
	datestart   TEXT NOT NULL,
	datestop    TEXT NOT NULL,
	spec_md5    TEXT,
	violations  INTEGER NOT NULL,
	findings    INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store

// Store manages one archive database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) an archive database and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the connection for the run log and inspect tooling.
func (s *Store) DB() *sql.DB { return s.db }

// #endregion store

// #region documents

// Document is one stored load-document record.
type Document struct {
	Name           string
	Type           loads.LoadType
	ContinuityName string
	CutoffDate     string
}

// InsertDocument stores a load document's metadata.
func (s *Store) InsertDocument(doc Document) error {
	var cont, cutoff any
	if doc.ContinuityName != "" {
		cont = doc.ContinuityName
	}
	if doc.CutoffDate != "" {
		cutoff = doc.CutoffDate
	}
	_, err := s.db.Exec(
		`INSERT INTO load_documents (name, load_type, continuity_name, cutoff_date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.Name, doc.Type.String(), cont, cutoff,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.Name, err)
	}
	return nil
}

// Documents lists all stored load documents ordered by name.
func (s *Store) Documents() ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT name, load_type, continuity_name, cutoff_date FROM load_documents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var typeName string
		var cont, cutoff sql.NullString
		if err := rows.Scan(&d.Name, &typeName, &cont, &cutoff); err != nil {
			return nil, err
		}
		if d.Type, err = loads.ParseLoadType(typeName); err != nil {
			return nil, fmt.Errorf("document %s: %w", d.Name, err)
		}
		d.ContinuityName = cont.String
		d.CutoffDate = cutoff.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// Continuity returns the named load's continuity record: its
// predecessor's name plus the load's own type tag and cutoff time.
func (s *Store) Continuity(name string) (loads.Continuity, error) {
	var typeName string
	var cont, cutoff sql.NullString
	err := s.db.QueryRow(
		`SELECT load_type, continuity_name, cutoff_date FROM load_documents WHERE name = ?`,
		name,
	).Scan(&typeName, &cont, &cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return loads.Continuity{}, fmt.Errorf("archive: no load document %q", name)
	}
	if err != nil {
		return loads.Continuity{}, err
	}
	if !cont.Valid {
		return loads.Continuity{}, fmt.Errorf("archive: load %q has no continuity predecessor", name)
	}

	var exists int
	err = s.db.QueryRow(`SELECT 1 FROM load_documents WHERE name = ?`, cont.String).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return loads.Continuity{}, fmt.Errorf("archive: continuity %q of %q not stored", cont.String, name)
	}
	if err != nil {
		return loads.Continuity{}, err
	}

	c := loads.Continuity{Name: cont.String}
	if c.Type, err = loads.ParseLoadType(typeName); err != nil {
		return loads.Continuity{}, fmt.Errorf("continuity of %s: %w", name, err)
	}
	if cutoff.Valid {
		c.CutoffDate = cutoff.String
		if c.CutoffTime, err = chron.ParseDate(cutoff.String); err != nil {
			return loads.Continuity{}, fmt.Errorf("continuity of %s: %w", name, err)
		}
	}
	return c, nil
}

// #endregion documents

// #region commands

// InsertCommands stores a load's command set. vehicleOnly selects
// which of the load's two sets the commands belong to.
func (s *Store) InsertCommands(load string, vehicleOnly bool, cmds []command.Command) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, c := range cmds {
		sets, err := json.Marshal(c.Sets)
		if err != nil {
			return fmt.Errorf("marshal sets: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO load_commands (load_name, vehicle_only, seq, time, date, kind, mnemonic, sets_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			load, boolInt(vehicleOnly), i, c.Time, c.Date, string(c.Kind), c.Mnemonic, string(sets),
		)
		if err != nil {
			return fmt.Errorf("insert command %d of %s: %w", i, load, err)
		}
	}
	return tx.Commit()
}

// Commands returns the named load's ordered command set.
func (s *Store) Commands(name string) ([]command.Command, error) {
	return s.queryCommands(
		`SELECT time, date, kind, mnemonic, sets_json FROM load_commands
		 WHERE load_name = ? AND vehicle_only = 0 ORDER BY seq`, name)
}

// VehicleOnlyCommands returns the subset of the named load's commands
// that survive an SCS-107 safing action.
func (s *Store) VehicleOnlyCommands(name string) ([]command.Command, error) {
	return s.queryCommands(
		`SELECT time, date, kind, mnemonic, sets_json FROM load_commands
		 WHERE load_name = ? AND vehicle_only = 1 ORDER BY seq`, name)
}

// CommandsBetween returns all non-vehicle-only commands across loads
// with start <= time < stop, ordered by time. Used for validation
// states over the telemetry span.
func (s *Store) CommandsBetween(start, stop chron.Secs) ([]command.Command, error) {
	return s.queryCommands(
		`SELECT time, date, kind, mnemonic, sets_json FROM load_commands
		 WHERE vehicle_only = 0 AND time >= ? AND time < ? ORDER BY time, seq`,
		start, stop)
}

func (s *Store) queryCommands(query string, args ...any) ([]command.Command, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []command.Command
	for rows.Next() {
		var c command.Command
		var kind string
		var mnemonic, setsJSON sql.NullString
		if err := rows.Scan(&c.Time, &c.Date, &kind, &mnemonic, &setsJSON); err != nil {
			return nil, err
		}
		c.Kind = command.Kind(kind)
		c.Mnemonic = mnemonic.String
		if setsJSON.Valid && setsJSON.String != "null" {
			if err := json.Unmarshal([]byte(setsJSON.String), &c.Sets); err != nil {
				return nil, fmt.Errorf("decode sets: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion commands

// #region telemetry

// InsertTelemetry stores one MSID's samples.
func (s *Store) InsertTelemetry(msid string, times []chron.Secs, vals []float64) error {
	if len(times) != len(vals) {
		return fmt.Errorf("archive: %d times for %d values", len(times), len(vals))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i := range times {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO telemetry (msid, time, value) VALUES (?, ?, ?)`,
			msid, times[i], vals[i],
		)
		if err != nil {
			return fmt.Errorf("insert telemetry %s: %w", msid, err)
		}
	}
	return tx.Commit()
}

// Fetch returns the requested MSIDs aligned onto a shared grid at the
// archive cadence, covering the span where every MSID has data.
func (s *Store) Fetch(msids []string, start, stop chron.Secs) (*telemetry.MSIDSet, error) {
	type series struct {
		times []chron.Secs
		vals  []float64
	}
	per := make(map[string]series, len(msids))
	gridStart, gridStop := start, stop
	for _, msid := range msids {
		rows, err := s.db.Query(
			`SELECT time, value FROM telemetry WHERE msid = ? AND time >= ? AND time <= ? ORDER BY time`,
			msid, start, stop)
		if err != nil {
			return nil, err
		}
		var sr series
		for rows.Next() {
			var t, v float64
			if err := rows.Scan(&t, &v); err != nil {
				rows.Close()
				return nil, err
			}
			sr.times = append(sr.times, t)
			sr.vals = append(sr.vals, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(sr.times) == 0 {
			return nil, fmt.Errorf("%w: no %s samples in [%s, %s]",
				telemetry.ErrInsufficientTelemetry, msid,
				chron.Date(start), chron.Date(stop))
		}
		if sr.times[0] > gridStart {
			gridStart = sr.times[0]
		}
		if last := sr.times[len(sr.times)-1]; last < gridStop {
			gridStop = last
		}
		per[msid] = sr
	}

	var times []chron.Secs
	for t := gridStart; t <= gridStop; t += Cadence {
		times = append(times, t)
	}
	set := &telemetry.MSIDSet{
		Times:  times,
		Values: make(map[string][]float64, len(msids)),
	}
	for msid, sr := range per {
		set.Values[msid] = telemetry.ResampleNearest(sr.times, sr.vals, times)
	}
	if err := set.Check(); err != nil {
		return nil, err
	}
	return set, nil
}

// #endregion telemetry
