package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"time"

	"github.com/skaops/thermalwatch/internal/archive"
	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/config"
	"github.com/skaops/thermalwatch/internal/integrate"
	"github.com/skaops/thermalwatch/internal/modelspec"
	"github.com/skaops/thermalwatch/internal/pipeline"
)

// #region main

func main() {
	cfgPath := flag.String("config", envOr("THERMALWATCH_CONFIG", ""), "path to run configuration YAML")
	reviewLoad := flag.String("load", "", "review load name (empty: validation only)")
	runStartStr := flag.String("run-start", "", "run start date YYYY:DOY:HH:MM:SS.sss (default: now)")
	predOnly := flag.Bool("pred-only", false, "skip validation")
	dbPath := flag.String("db", envOr("THERMALWATCH_DB", ""), "override archive database path")
	outDir := flag.String("out", "", "override output directory")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: thermalwatch --config path/to/model.yaml [--load NAME] [--run-start DATE] [--pred-only] [--db path] [--out dir]")
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*cfgPath, *reviewLoad, *runStartStr, *predOnly, *dbPath, *outDir, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(cfgPath, reviewLoad, runStartStr string, predOnly bool, dbPath, outDir string, log *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.ArchiveDB = dbPath
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if cfg.ArchiveDB == "" {
		return fmt.Errorf("no archive database configured (set archive_db or pass --db)")
	}
	if cfg.ModelSpec == "" {
		return fmt.Errorf("no model spec configured (set model_spec)")
	}

	spec, specMD5, err := modelspec.Load(cfg.ModelSpec)
	if err != nil {
		return err
	}

	runStart := chron.Secs(time.Since(chron.Epoch).Seconds())
	if runStartStr != "" {
		if runStart, err = chron.ParseDate(runStartStr); err != nil {
			return fmt.Errorf("run-start: %w", err)
		}
	}

	store, err := archive.Open(cfg.ArchiveDB)
	if err != nil {
		return err
	}
	defer store.Close()

	p := pipeline.New(cfg, pipeline.Providers{
		Loads:     store,
		Telemetry: store,
		Span:      store,
	}, integrate.NewStepModel(spec), log)
	p.SpecMD5 = specMD5
	p.RunLogDB = store.DB()

	log.Info("starting run",
		"run_id", p.RunID, "user", runUser(), "name", cfg.Name,
		"msid", cfg.MSID, "load", reviewLoad,
		"run_start", chron.Date(runStart), "spec_md5", specMD5)

	res, err := p.Run(reviewLoad, runStart, predOnly)
	if err != nil {
		return err
	}

	printSummary(res, cfg.OutDir)
	return nil
}

// #endregion run

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// #endregion helpers

// #region output

func printSummary(res *pipeline.Result, outDir string) {
	fmt.Printf("Run %s\n", res.RunID)
	if pred := res.Prediction; pred != nil {
		fmt.Printf("  Prediction: %s to %s, %d states, %d samples\n",
			chron.Date(pred.Timeline.Start()), chron.Date(pred.SchedStop),
			len(pred.Timeline.Intervals), len(pred.Times))
		for _, dir := range []string{"hi", "lo"} {
			for _, v := range pred.Violations[dir] {
				fmt.Printf("  VIOLATION (%s): %s to %s, extreme %.2f\n",
					dir, v.DateStart, v.DateStop, v.Extreme())
			}
		}
		if len(pred.Violations["hi"])+len(pred.Violations["lo"]) == 0 {
			fmt.Println("  No planning limit violations.")
		}
	}
	if val := res.Validation; val != nil {
		fmt.Printf("  Validation: %s to %s, %d MSIDs\n",
			chron.Date(val.Start), chron.Date(val.Stop), len(val.Reports))
		for _, f := range val.Findings {
			fmt.Printf("  FINDING: %s quant%02d %.3f exceeds %.3f\n",
				f.MSID, f.Quantile, f.Value, f.Limit)
		}
		if len(val.Findings) == 0 {
			fmt.Println("  All validation quantiles within limits.")
		}
	}
	if outDir != "" {
		fmt.Printf("  Artifacts written to %s\n", outDir)
	}
}

// #endregion output
