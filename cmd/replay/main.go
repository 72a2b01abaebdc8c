package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/replay"
	"github.com/antijam/mimo-controller/internal/runstore"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to antijam.db (DB mode)")
	runID := flag.String("run", "", "run id to replay (DB mode)")
	datasetPath := flag.String("dataset", "", "dataset the run was recorded on (DB mode)")
	scalerPath := flag.String("scaler", "", "scaler artifact the run was recorded with (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	tolerance := flag.Float64("tolerance", 0, "max absolute SINR/BER/reward drift (default 1e-9)")
	verbose := flag.Bool("v", false, "print every step, not only divergent ones")
	flag.Parse()

	dbMode := *dbPath != "" && *runID != "" && *datasetPath != "" && *scalerPath != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/antijam.db --run id --dataset data.csv --scaler scaler.bin")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *tolerance, *verbose)
	} else {
		exitCode = runDBMode(*dbPath, *runID, *datasetPath, *scalerPath, *tolerance, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, runID, datasetPath, scalerPath string, tolerance float64, verbose bool) int {
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	inters, err := replay.LoadRun(store, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load run: %v\n", err)
		return 2
	}
	if len(inters) == 0 {
		fmt.Fprintf(os.Stderr, "run %s has no logged steps (evaluate with --log-steps)\n", runID)
		return 2
	}

	cfg := env.DefaultConfig()
	cfg.DatasetPath, cfg.ScalerPath = datasetPath, scalerPath
	e, err := env.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open environment: %v\n", err)
		return 2
	}

	config := replay.DefaultReplayConfig()
	if tolerance > 0 {
		config.Tolerance = tolerance
	}
	return printComparison(replay.Replay(e, inters, config), verbose)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string, tolerance float64, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	e, err := f.Environment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture environment: %v\n", err)
		return 2
	}
	inters, err := f.ToInteractions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture interactions: %v\n", err)
		return 2
	}

	config := f.Config.ToReplayConfig()
	if tolerance > 0 {
		config.Tolerance = tolerance
	}
	return printComparison(replay.Replay(e, inters, config), verbose)
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns exit code.
func printComparison(results []replay.ReplayResult, verbose bool) int {
	fmt.Printf("%-16s| %4s| %4s| %-9s| %-22s| %-22s| %s\n", "Policy", "Ep", "Step", "Action", "Recorded reward", "Replayed reward", "Match")
	fmt.Printf("%-16s+%5s+%5s+%-10s+%-23s+%-23s+%s\n",
		"----------------", "-----", "-----", "----------", "-----------------------", "-----------------------", "------")

	for _, r := range results {
		if r.Match && !verbose {
			continue
		}
		match := "OK"
		if !r.Match {
			match = "DIFF " + r.Reason
		}
		fmt.Printf("%-16s| %4d| %4d| %-9s| %-22.12g| %-22.12g| %s\n",
			truncate(r.Policy, 16), r.Episode, r.Step, r.Action, r.Recorded.Reward, r.Replayed.Reward, match)
	}

	sum := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge, %d errors, max drift %.3g\n",
		sum.TotalSteps, sum.Matches, sum.Mismatches, sum.Errors, sum.MaxAbsDiff)

	if sum.Mismatches+sum.Errors > 0 {
		return 1
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// #endregion output
