package runlog

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE run_log (
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
);`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "runlog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLogRunAndRecent(t *testing.T) {
	db := openTestDB(t)

	recs := []Record{
		{RunID: "run-1", MSID: "1DPAMZT", Name: "dpa",
			DateStart: "2026:230:00:00:00.000", DateStop: "2026:237:00:00:00.000",
			SpecMD5: "abc123", Violations: 1, Findings: 0},
		{RunID: "run-2", MSID: "1DPAMZT", Name: "dpa",
			DateStart: "2026:237:00:00:00.000", DateStop: "2026:244:00:00:00.000",
			Violations: 0, Findings: 2},
	}
	for _, r := range recs {
		if err := LogRun(db, r); err != nil {
			t.Fatalf("LogRun: %v", err)
		}
	}

	got, err := Recent(db, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Newest first.
	if got[0].RunID != "run-2" || got[1].RunID != "run-1" {
		t.Fatalf("order: %s, %s", got[0].RunID, got[1].RunID)
	}
	if got[1].SpecMD5 != "abc123" || got[1].Violations != 1 {
		t.Fatalf("record fields: %+v", got[1])
	}
	// Empty MD5 stored as NULL and read back empty.
	if got[0].SpecMD5 != "" {
		t.Fatalf("spec_md5 %q, want empty", got[0].SpecMD5)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("created_at not populated")
	}
}

func TestRecentLimit(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		rec := Record{
			RunID: "run", MSID: "m", Name: "n",
			DateStart: "d", DateStop: "d",
			CreatedAt: time.Date(2026, 8, 30, 0, i, 0, 0, time.UTC),
		}
		if err := LogRun(db, rec); err != nil {
			t.Fatalf("LogRun: %v", err)
		}
	}
	got, err := Recent(db, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
}
