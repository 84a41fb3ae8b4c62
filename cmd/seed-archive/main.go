package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/skaops/thermalwatch/internal/archive"
	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
	"github.com/skaops/thermalwatch/internal/loads"
)

const (
	week       = 7 * 86400.0
	cmdSpacing = 2 * 3600.0
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("THERMALWATCH_DB", "archive.db"), "path to archive database to create")
	startStr := flag.String("start", "2026:230:00:00:00.000", "chain start date")
	msid := flag.String("msid", "1dpamzt", "modeled temperature mnemonic to synthesize")
	flag.Parse()

	start, err := chron.ParseDate(*startStr)
	if err != nil {
		log.Fatalf("start date: %v", err)
	}

	if _, err := os.Stat(*dbPath); err == nil {
		log.Fatalf("%s already exists, refusing to overwrite", *dbPath)
	}

	store, err := archive.Open(*dbPath)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	fmt.Println("=== Archive Seed Tool ===")
	fmt.Printf("  DB: %s | MSID: %s | Chain start: %s\n", *dbPath, *msid, chron.Date(start))

	if err := seed(store, *msid, start); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

// #endregion main

// #region chain

// seedLoad describes one synthetic load in the demo chain.
type seedLoad struct {
	name       string
	typ        loads.LoadType
	continuity string
	// cutoff, when nonzero, is the safing time that interrupted this
	// load's continuity.
	cutoff chron.Secs
	start  chron.Secs
	stop   chron.Secs
}

func seed(store *archive.Store, msid string, start chron.Secs) error {
	// Four weekly loads: a normal root, a TOO interrupt, a return to
	// science after an SCS-107 safing, and the review load on top.
	chain := []seedLoad{
		{name: "AUG1826A", typ: loads.Normal, start: start, stop: start + week},
		{name: "AUG2526B", typ: loads.TOO, continuity: "AUG1826A",
			start: start + week - 43200, stop: start + 2*week},
		{name: "SEP0126A", typ: loads.SCS107, continuity: "AUG2526B",
			cutoff: start + 1.5*week,
			start:  start + 1.5*week + 86400, stop: start + 3*week},
		{name: "SEP0826A", typ: loads.Normal, continuity: "SEP0126A",
			start: start + 3*week, stop: start + 4*week},
	}

	for _, l := range chain {
		doc := archive.Document{
			Name:           l.name,
			Type:           l.typ,
			ContinuityName: l.continuity,
		}
		if l.cutoff != 0 {
			doc.CutoffDate = chron.Date(l.cutoff)
		}
		if err := store.InsertDocument(doc); err != nil {
			return err
		}
		if err := store.InsertCommands(l.name, false, loadCommands(l)); err != nil {
			return err
		}
		if err := store.InsertCommands(l.name, true, vehicleCommands(l)); err != nil {
			return err
		}
		fmt.Printf("  %s (%s): %s to %s\n",
			l.name, l.typ, chron.Date(l.start), chron.Date(l.stop))
	}

	// Telemetry back through the chain plus a validation tail before it.
	tStart := start - 3*86400
	tStop := chain[len(chain)-1].start
	n := 0
	var times []chron.Secs
	var temps, pitches []float64
	for t := tStart; t <= tStop; t += archive.Cadence {
		phase := (t - tStart) / 86400.0
		times = append(times, t)
		temps = append(temps, 18.0+6.0*math.Sin(2*math.Pi*phase/3.2))
		pitches = append(pitches, 120.0+40.0*math.Sin(2*math.Pi*phase/1.7))
		n++
	}
	if err := store.InsertTelemetry(msid, times, temps); err != nil {
		return err
	}
	if err := store.InsertTelemetry("pitch", times, pitches); err != nil {
		return err
	}
	fmt.Printf("  Telemetry: %d samples per MSID, %s to %s\n",
		n, chron.Date(tStart), chron.Date(tStop))

	fmt.Println("=== Seed Complete ===")
	return nil
}

// #endregion chain

// #region commands

// loadCommands synthesizes a load's command set: an RLTT sentinel, a
// state command every two hours cycling the tracked attributes, and a
// scheduled-stop sentinel.
func loadCommands(l seedLoad) []command.Command {
	out := []command.Command{{
		Time: l.start,
		Date: chron.Date(l.start),
		Kind: command.KindRLTT,
	}}
	i := 0
	for t := l.start; t < l.stop; t += cmdSpacing {
		out = append(out, stateCommand(t, i))
		i++
	}
	out = append(out, command.Command{
		Time: l.stop,
		Date: chron.Date(l.stop),
		Kind: command.KindScheduledStop,
	})
	return out
}

// vehicleCommands synthesizes the pitch-only subset that keeps running
// through an SCS-107 safing.
func vehicleCommands(l seedLoad) []command.Command {
	var out []command.Command
	i := 0
	for t := l.start; t < l.stop; t += 3 * cmdSpacing {
		out = append(out, command.Command{
			Time:     t,
			Date:     chron.Date(t),
			Kind:     command.KindState,
			Mnemonic: "AOMANUVR",
			Sets: map[string]string{
				"pitch": fmt.Sprintf("%.2f", 90.0+float64((i*17)%90)),
			},
		})
		i++
	}
	return out
}

func stateCommand(t chron.Secs, i int) command.Command {
	ccds := 1 + i%5
	simpos := "92904"
	clocking := "1"
	if i%4 == 3 {
		// Periodic HRC observation: ACIS stowed and not clocking.
		simpos = "-99616"
		clocking = "0"
	}
	return command.Command{
		Time:     t,
		Date:     chron.Date(t),
		Kind:     command.KindState,
		Mnemonic: "XTZ0000005",
		Sets: map[string]string{
			"ccd_count": fmt.Sprintf("%d", ccds),
			"clocking":  clocking,
			"fep_count": fmt.Sprintf("%d", ccds),
			"pitch":     fmt.Sprintf("%.2f", 60.0+float64((i*23)%110)),
			"power_cmd": "WSPOW08E1E",
			"si_mode":   "TE_00B26",
			"simpos":    simpos,
			"vid_board": "1",
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion commands
