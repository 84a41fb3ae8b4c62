package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/skaops/thermalwatch/internal/archive"
	"github.com/skaops/thermalwatch/internal/config"
	"github.com/skaops/thermalwatch/internal/replay"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("THERMALWATCH_DB", ""), "path to archive database")
	cfgPath := flag.String("config", envOr("THERMALWATCH_CONFIG", ""), "run configuration YAML to inline")
	load := flag.String("load", "", "review load to export the chain of")
	outPath := flag.String("out", "", "output fixture JSON path")
	record := flag.Bool("record", true, "run the fixture and record expected results")
	flag.Parse()

	if *dbPath == "" || *cfgPath == "" || *load == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/archive.db --config model.yaml --load NAME --out fixture.json [--record=false]")
		os.Exit(2)
	}

	if err := run(*dbPath, *cfgPath, *load, *outPath, *record); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, cfgPath, load, outPath string, record bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cfg.ModelSpec == "" {
		return fmt.Errorf("config has no model_spec to inline")
	}
	specRaw, err := os.ReadFile(cfg.ModelSpec)
	if err != nil {
		return fmt.Errorf("read model spec: %w", err)
	}

	store, err := archive.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	chain, err := chainLoads(store, load)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d loads in chain from %s\n", len(chain), load)

	tlm, err := fixtureTelemetry(store, cfg, load)
	if err != nil {
		return err
	}

	fixture := replay.Fixture{
		Description: fmt.Sprintf("Archive export: %d-load chain under review load %s", len(chain), load),
		Config:      fixtureConfig(cfg, specRaw),
		Loads:       chain,
		Telemetry:   tlm,
		ReviewLoad:  load,
	}

	if record {
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		res, _, err := replay.RunFixture(fixture, log)
		if err != nil {
			return fmt.Errorf("record expected results: %w", err)
		}
		exp := &replay.FixtureExpected{}
		if res.Prediction != nil {
			exp.ViolationsHi = len(res.Prediction.Violations["hi"])
			exp.ViolationsLo = len(res.Prediction.Violations["lo"])
		}
		if res.Validation != nil {
			exp.Findings = len(res.Validation.Findings)
		}
		fixture.Expected = exp
		fmt.Printf("Recorded expected results: %d hi, %d lo, %d findings\n",
			exp.ViolationsHi, exp.ViolationsLo, exp.Findings)
	}

	return writeFixture(fixture, outPath)
}

// chainLoads walks continuity pointers from the review load down to the
// chain root and returns the loads oldest first.
func chainLoads(store *archive.Store, load string) ([]replay.FixtureLoad, error) {
	docs, err := store.Documents()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]archive.Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}

	var chain []replay.FixtureLoad
	seen := map[string]bool{}
	for name := load; name != "" && !seen[name]; {
		seen[name] = true
		doc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no load document %q", name)
		}
		cmds, err := store.Commands(name)
		if err != nil {
			return nil, err
		}
		vo, err := store.VehicleOnlyCommands(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, replay.FixtureLoad{
			Name:        doc.Name,
			Type:        doc.Type.String(),
			Continuity:  doc.ContinuityName,
			CutoffDate:  doc.CutoffDate,
			Commands:    cmds,
			VehicleOnly: vo,
		})
		name = doc.ContinuityName
	}

	// Oldest first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// fixtureTelemetry pulls the aligned telemetry slice the run would
// fetch: Days of history ending at the review load's first command.
func fixtureTelemetry(store *archive.Store, cfg config.Config, load string) (replay.FixtureTelemetry, error) {
	cmds, err := store.Commands(load)
	if err != nil {
		return replay.FixtureTelemetry{}, err
	}
	if len(cmds) == 0 {
		return replay.FixtureTelemetry{}, fmt.Errorf("load %q has no commands", load)
	}
	stop := cmds[0].Time
	start := stop - cfg.Days*86400.0

	msids := append([]string{cfg.MSID, "pitch"}, cfg.ExtraMSIDs...)
	set, err := store.Fetch(msids, start, stop)
	if err != nil {
		return replay.FixtureTelemetry{}, err
	}
	return replay.FixtureTelemetry{Times: set.Times, Columns: set.Values}, nil
}

func fixtureConfig(cfg config.Config, specRaw []byte) replay.FixtureConfig {
	return replay.FixtureConfig{
		MSID:               cfg.MSID,
		Name:               cfg.Name,
		Days:               cfg.Days,
		CautionHigh:        cfg.CautionHigh,
		CautionLow:         cfg.CautionLow,
		Margin:             cfg.Margin,
		FlagColdViolations: cfg.FlagColdViolations,
		Quantiles:          cfg.Quantiles,
		ValidationLimits:   cfg.ValidationLimits,
		ExtraMSIDs:         cfg.ExtraMSIDs,
		HistLimits:         cfg.HistLimits,
		BadTimes:           cfg.BadTimes,
		InitialState:       cfg.InitialState,
		InitialTemp:        cfg.InitialTemp,
		MaxHops:            cfg.MaxHops,
		ModelSpec:          json.RawMessage(specRaw),
	}
}

// #endregion extract

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote fixture to %s (%d bytes, %d loads)\n", outPath, len(data), len(fixture.Loads))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
