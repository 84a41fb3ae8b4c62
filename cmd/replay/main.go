package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/skaops/thermalwatch/internal/pipeline"
	"github.com/skaops/thermalwatch/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	jsonOut := flag.Bool("json", false, "print the run result as JSON")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json] [--verbose]")
		os.Exit(2)
	}

	os.Exit(runFixtureMode(*fixturePath, *jsonOut, *verbose))
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, jsonOut, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	res, mismatches, err := replay.RunFixture(f, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	} else {
		printSummary(f, res)
	}

	if f.Expected == nil {
		fmt.Println("\nNo expected results in fixture; nothing to compare.")
		return 0
	}
	return printComparison(mismatches)
}

// #endregion fixture-mode

// #region output

func printSummary(f replay.Fixture, res *pipeline.Result) {
	if f.Description != "" {
		fmt.Println(f.Description)
	}
	fmt.Printf("Run %s\n", res.RunID)
	if pred := res.Prediction; pred != nil {
		fmt.Printf("  Prediction: %d states, %d hi / %d lo violations\n",
			len(pred.Timeline.Intervals),
			len(pred.Violations["hi"]), len(pred.Violations["lo"]))
	}
	if val := res.Validation; val != nil {
		fmt.Printf("  Validation: %d MSIDs, %d findings\n",
			len(val.Reports), len(val.Findings))
	}
}

// printComparison outputs the divergence table and returns exit code.
func printComparison(mismatches []replay.Mismatch) int {
	if len(mismatches) == 0 {
		fmt.Println("\nSummary: all expected results match")
		return 0
	}
	fmt.Printf("\n%-15s| %-8s| %-8s\n", "Field", "Expected", "Replayed")
	fmt.Printf("%-15s+%-9s+%-9s\n", "---------------", "---------", "---------")
	for _, m := range mismatches {
		fmt.Printf("%-15s| %-8d| %-8d\n", m.Field, m.Want, m.Got)
	}
	fmt.Printf("\nSummary: %d field(s) diverge\n", len(mismatches))
	return 1
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
