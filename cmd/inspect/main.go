package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/skaops/thermalwatch/internal/archive"
	"github.com/skaops/thermalwatch/internal/runlog"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("THERMALWATCH_DB", ""), "path to archive database")
	chain := flag.String("chain", "", "walk the continuity chain starting from a load")
	runs := flag.Int("runs", 10, "show N most recent run-log entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/archive.db [--chain load] [--runs N] [--json]")
		os.Exit(2)
	}

	store, err := archive.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *chain != "" {
		err = runChainMode(store, *chain, *jsonOut)
	} else {
		err = runListMode(store, *runs, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listOutput struct {
	Documents []docRow `json:"documents"`
	Runs      []runRow `json:"runs"`
}

type docRow struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Continuity string `json:"continuity,omitempty"`
	CutoffDate string `json:"cutoff_date,omitempty"`
}

type runRow struct {
	RunID      string `json:"run_id"`
	MSID       string `json:"msid"`
	Name       string `json:"name"`
	DateStart  string `json:"datestart"`
	DateStop   string `json:"datestop"`
	Violations int    `json:"violations"`
	Findings   int    `json:"findings"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(store *archive.Store, runs int, jsonOut bool) error {
	docs, err := store.Documents()
	if err != nil {
		return err
	}
	recs, err := runlog.Recent(store.DB(), runs)
	if err != nil {
		return err
	}

	out := listOutput{}
	for _, d := range docs {
		out.Documents = append(out.Documents, docRow{
			Name:       d.Name,
			Type:       d.Type.String(),
			Continuity: d.ContinuityName,
			CutoffDate: d.CutoffDate,
		})
	}
	for _, r := range recs {
		out.Runs = append(out.Runs, runRow{
			RunID:      r.RunID,
			MSID:       r.MSID,
			Name:       r.Name,
			DateStart:  r.DateStart,
			DateStop:   r.DateStop,
			Violations: r.Violations,
			Findings:   r.Findings,
			CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("%-10s  %-8s  %-10s  %s\n", "Load", "Type", "Continuity", "Cutoff")
	fmt.Printf("%-10s+-%-8s+-%-10s+-%s\n", "----------", "--------", "----------", "---------------------")
	for _, d := range out.Documents {
		cont := d.Continuity
		if cont == "" {
			cont = "—"
		}
		cutoff := d.CutoffDate
		if cutoff == "" {
			cutoff = "—"
		}
		fmt.Printf("%-10s  %-8s  %-10s  %s\n", d.Name, d.Type, cont, cutoff)
	}

	if len(out.Runs) > 0 {
		fmt.Printf("\n%-10s  %-10s  %-21s  %4s  %4s  %s\n",
			"Run", "MSID", "Start", "Viol", "Find", "Created")
		fmt.Printf("%-10s+-%-10s+-%-21s+-%4s+-%4s+-%s\n",
			"----------", "----------", "---------------------", "----", "----", "--------------------")
		for _, r := range out.Runs {
			fmt.Printf("%-10s  %-10s  %-21s  %4d  %4d  %s\n",
				shortID(r.RunID), r.MSID, r.DateStart, r.Violations, r.Findings, r.CreatedAt)
		}
	}
	return nil
}

// #endregion list-mode

// #region chain-mode

type chainHop struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	CutoffDate string `json:"cutoff_date,omitempty"`
}

func runChainMode(store *archive.Store, load string, jsonOut bool) error {
	var hops []chainHop
	seen := map[string]bool{}
	name := load
	for name != "" && !seen[name] {
		seen[name] = true
		cont, err := store.Continuity(name)
		if err != nil {
			// Root of the chain or missing record, either way the walk
			// stops here.
			hops = append(hops, chainHop{Name: name, Type: "—"})
			break
		}
		hops = append(hops, chainHop{
			Name:       name,
			Type:       cont.Type.String(),
			CutoffDate: cont.CutoffDate,
		})
		name = cont.Name
	}

	if jsonOut {
		return printJSON(hops)
	}
	for i, h := range hops {
		marker := "└─"
		if i == 0 {
			marker = "  "
		}
		if h.CutoffDate != "" {
			fmt.Printf("%s %s (%s, cutoff %s)\n", marker, h.Name, h.Type, h.CutoffDate)
		} else {
			fmt.Printf("%s %s (%s)\n", marker, h.Name, h.Type)
		}
	}
	return nil
}

// #endregion chain-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
