package timeline

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/skaops/thermalwatch/internal/command"
)

func buildTable(t *testing.T) *Timeline {
	t.Helper()
	cmds := []command.Command{
		setCmd(328, map[string]string{"ccd_count": "4", "pitch": "155.50"}),
		setCmd(984, map[string]string{"ccd_count": "6"}),
	}
	initial := map[string]string{}
	for _, k := range command.StateKeys {
		initial[k] = "0"
	}
	initial["pitch"] = "90.00"
	initial["power_cmd"] = "AA00000000"
	initial["si_mode"] = "CC_00000"
	initial["simpos"] = "-99616"
	tl, err := FromCommands(cmds, 0, 2000, initial, command.StateKeys, false)
	if err != nil {
		t.Fatalf("FromCommands: %v", err)
	}
	return tl
}

func TestColumnsSorted(t *testing.T) {
	tl := buildTable(t)
	cols := tl.Columns()
	want := []string{
		"ccd_count", "clocking", "datestart", "datestop", "fep_count",
		"pitch", "power_cmd", "si_mode", "simpos", "tstart", "tstop",
		"vid_board",
	}
	if !reflect.DeepEqual(cols, want) {
		t.Fatalf("columns:\n got %v\nwant %v", cols, want)
	}
}

func TestWriteTableFormat(t *testing.T) {
	tl := buildTable(t)
	var buf bytes.Buffer
	if err := tl.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1+len(tl.Intervals) {
		t.Fatalf("got %d lines, want %d", len(lines), 1+len(tl.Intervals))
	}
	fields := strings.Split(lines[1], "\t")
	cols := tl.Columns()
	byName := map[string]string{}
	for i, c := range cols {
		byName[c] = fields[i]
	}
	if byName["tstart"] != "0.00" || byName["tstop"] != "328.00" {
		t.Fatalf("time columns: tstart=%s tstop=%s", byName["tstart"], byName["tstop"])
	}
	if byName["pitch"] != "90.00" {
		t.Fatalf("pitch column: %s", byName["pitch"])
	}
}

func TestTableRoundTrip(t *testing.T) {
	tl := buildTable(t)
	var buf bytes.Buffer
	if err := tl.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	first := buf.String()

	parsed, err := ParseTable(strings.NewReader(first))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	var buf2 bytes.Buffer
	if err := parsed.WriteTable(&buf2); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if buf2.String() != first {
		t.Fatalf("round trip diverged:\nfirst:\n%s\nsecond:\n%s", first, buf2.String())
	}
}

func TestParseTableRejectsRaggedRows(t *testing.T) {
	in := "datestart\tdatestop\ttstart\ttstop\n1998:001:00:00:00.000\t1998:001:00:05:28.000\t0.00\n"
	if _, err := ParseTable(strings.NewReader(in)); err == nil {
		t.Fatal("expected field-count error")
	}
}

func TestParseTableEmpty(t *testing.T) {
	if _, err := ParseTable(strings.NewReader("")); err == nil {
		t.Fatal("expected error on empty input")
	}
	if _, err := ParseTable(strings.NewReader("datestart\tdatestop\ttstart\ttstop\n")); err == nil {
		t.Fatal("expected error on header-only input")
	}
}

func TestWriteSeriesTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSeriesTable(&buf, "1dpamzt", []float64{0, 328}, []float64{20.125, 21})
	if err != nil {
		t.Fatalf("WriteSeriesTable: %v", err)
	}
	want := "time\tdate\t1dpamzt\n" +
		"0.00\t1998:001:00:00:00.000\t20.12\n" +
		"328.00\t1998:001:00:05:28.000\t21.00\n"
	if buf.String() != want {
		t.Fatalf("series table:\n got %q\nwant %q", buf.String(), want)
	}
}
