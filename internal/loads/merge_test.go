package loads

import (
	"testing"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
)

func stateAt(t chron.Secs, mnemonic string) command.Command {
	return command.Command{Time: t, Date: chron.Date(t), Kind: command.KindState, Mnemonic: mnemonic}
}

func times(cmds []command.Command) []chron.Secs {
	out := make([]chron.Secs, len(cmds))
	for i, c := range cmds {
		out[i] = c.Time
	}
	return out
}

func TestMergeNormalPrependsContinuity(t *testing.T) {
	cont := []command.Command{stateAt(0, "c0"), stateAt(50, "c1"), stateAt(100, "c2")}
	cur := []command.Command{stateAt(100, "r0"), stateAt(150, "r1")}

	out := MergeNormal(cont, cur)

	// Continuity command at exactly the review start is dropped; the
	// review's own command at that time wins.
	want := []chron.Secs{0, 50, 100, 150}
	got := times(out)
	if len(got) != len(want) {
		t.Fatalf("got times %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got times %v, want %v", got, want)
		}
	}
	if out[2].Mnemonic != "r0" {
		t.Fatalf("command at 100 should come from the review load, got %s", out[2].Mnemonic)
	}
}

func TestMergeNormalEmptyCurrent(t *testing.T) {
	cont := []command.Command{stateAt(50, "c1"), stateAt(0, "c0")}
	out := MergeNormal(cont, nil)
	if len(out) != 2 || out[0].Time != 0 {
		t.Fatalf("got %v", times(out))
	}
}

func TestMergeTOOTruncatesOverlap(t *testing.T) {
	// TOO load starts at 100 while continuity nominally runs to 200:
	// every continuity command at or after 100 is discarded.
	cont := []command.Command{stateAt(0, "c0"), stateAt(99, "c1"), stateAt(100, "c2"), stateAt(150, "c3")}
	cur := []command.Command{stateAt(100, "too0"), stateAt(180, "too1")}

	out := MergeTOO(cont, cur)

	for _, c := range out {
		if c.Time >= 100 && c.Mnemonic != "too0" && c.Mnemonic != "too1" {
			t.Fatalf("continuity command %s survived past the interrupt", c.Mnemonic)
		}
	}
	if len(out) != 4 {
		t.Fatalf("got %d commands, want 4: %v", len(out), times(out))
	}
}

func TestMergeStopCutsAtCutoff(t *testing.T) {
	cont := []command.Command{stateAt(0, "c0"), stateAt(50, "c1"), stateAt(60, "c2"), stateAt(90, "c3")}
	cur := []command.Command{stateAt(200, "r0")}

	out := MergeStop(cont, cur, 60)

	// c2 (exactly at cutoff) and c3 are gone; the shutdown command sits
	// at the cutoff.
	if len(out) != 4 {
		t.Fatalf("got %d commands: %v", len(out), times(out))
	}
	if out[2].Time != 60 || out[2].Mnemonic != "AA00000000" {
		t.Fatalf("expected shutdown at cutoff, got %s at %g", out[2].Mnemonic, out[2].Time)
	}
	if out[2].Sets["ccd_count"] != "0" || out[2].Sets["vid_board"] != "0" {
		t.Fatalf("shutdown state wrong: %v", out[2].Sets)
	}
}

func TestMergeSCS107KeepsVehicleSubset(t *testing.T) {
	cont := []command.Command{stateAt(0, "sci0"), stateAt(55, "sci1"), stateAt(70, "sci2")}
	vo := []command.Command{stateAt(10, "vo0"), stateAt(60, "vo1"), stateAt(80, "vo2"), stateAt(210, "vo3")}
	cur := []command.Command{stateAt(200, "r0")}

	out := MergeSCS107(cont, vo, cur, 60)

	var mnems []string
	for _, c := range out {
		mnems = append(mnems, c.Mnemonic)
	}
	want := []string{"sci0", "sci1", "AA00000000", "vo1", "vo2", "r0"}
	if len(mnems) != len(want) {
		t.Fatalf("got %v, want %v", mnems, want)
	}
	for i := range want {
		if mnems[i] != want[i] {
			t.Fatalf("got %v, want %v", mnems, want)
		}
	}
}

func TestMergeSCS107NoScienceAfterCutoff(t *testing.T) {
	cont := []command.Command{stateAt(0, "sci0"), stateAt(60, "sci1"), stateAt(120, "sci2")}
	out := MergeSCS107(cont, nil, []command.Command{stateAt(500, "r0")}, 60)
	for _, c := range out {
		if c.Time >= 60 && c.Kind == command.KindState &&
			c.Mnemonic != "AA00000000" && c.Mnemonic != "r0" {
			t.Fatalf("science command %s survived the safing action", c.Mnemonic)
		}
	}
}

func TestMergeInputsUntouched(t *testing.T) {
	cont := []command.Command{stateAt(90, "c1"), stateAt(0, "c0")}
	cur := []command.Command{stateAt(100, "r0")}
	MergeStop(cont, cur, 50)
	if cont[0].Time != 90 || cur[0].Mnemonic != "r0" {
		t.Fatal("merge mutated its inputs")
	}
}

func TestLoadTypeParse(t *testing.T) {
	for _, name := range []string{"NORMAL", "TOO", "STOP", "SCS-107"} {
		typ, err := ParseLoadType(name)
		if err != nil {
			t.Fatalf("ParseLoadType(%s): %v", name, err)
		}
		if typ.String() != name {
			t.Fatalf("round trip %s: got %s", name, typ.String())
		}
	}
	if _, err := ParseLoadType("bogus"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
