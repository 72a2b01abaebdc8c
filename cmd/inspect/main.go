package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/antijam/mimo-controller/internal/logging"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/antijam/mimo-controller/internal/runstore"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to antijam.db")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	episode := flag.Int("episode", 0, "with --run, show the step log of one episode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/antijam.db [--last N] [--run id [--episode N]] [--json]")
		os.Exit(2)
	}

	store, err := runstore.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *runID != "" && *episode > 0:
		err = runStepMode(store, *runID, *episode, *jsonOut)
	case *runID != "":
		err = runDetailMode(store, *runID, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	Policy    string `json:"policy,omitempty"`
	Episodes  int    `json:"episodes"`
	Recorded  int    `json:"recorded_episodes"`
	Steps     int    `json:"logged_steps"`
	CreatedAt string `json:"created_at"`
}

func runListMode(store *runstore.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	// Store returns DESC, reverse for chronological.
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:     r.RunID,
			Kind:      r.Kind,
			Policy:    r.Policy,
			Episodes:  r.Episodes,
			Recorded:  r.EpisodeRows,
			Steps:     r.StepRows,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %-9s  %-20s  %8s  %8s  %8s  %s\n",
		"Run", "Kind", "Policy", "Episodes", "Recorded", "Steps", "Time")
	fmt.Printf("%-10s+-%-9s+-%-20s+-%8s+-%8s+-%8s+-%s\n",
		"----------", "---------", "--------------------", "--------", "--------", "--------", "--------------------")
	for _, r := range rows {
		policy := r.Policy
		if policy == "" {
			policy = "-"
		}
		fmt.Printf("%-10s  %-9s  %-20s  %8d  %8d  %8d  %s\n",
			shortID(r.RunID), r.Kind, policy, r.Episodes, r.Recorded, r.Steps, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID     string                  `json:"run_id"`
	Kind      string                  `json:"kind"`
	Policy    string                  `json:"policy,omitempty"`
	CreatedAt string                  `json:"created_at"`
	Config    json.RawMessage         `json:"config,omitempty"`
	Summaries []rollout.Summary       `json:"summaries"`
	Episodes  []rollout.EpisodeResult `json:"episodes"`
}

func runDetailMode(store *runstore.Store, runID string, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	sums, err := store.PolicySummaries(runID)
	if err != nil {
		return err
	}
	eps, err := store.ListEpisodes(runID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:     run.RunID,
		Kind:      run.Kind,
		Policy:    run.Policy,
		CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Summaries: sums,
		Episodes:  eps,
	}
	if run.ConfigJSON != "" {
		out.Config = json.RawMessage(run.ConfigJSON)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:      %s\n", out.RunID)
	fmt.Printf("Kind:     %s\n", out.Kind)
	if out.Policy != "" {
		fmt.Printf("Policy:   %s\n", out.Policy)
	}
	fmt.Printf("Created:  %s\n", out.CreatedAt)

	fmt.Printf("\nPolicy summaries:\n")
	for _, s := range sums {
		fmt.Printf("  %-20s %4d eps  SINR %8.4f  BER %9.6f  Reward %10.4f (std %.4f)\n",
			s.Policy, s.Episodes, s.AvgSINR, s.AvgBER, s.AvgReward, s.RewardStdDev)
	}

	fmt.Printf("\nEpisodes:\n")
	fmt.Printf("  %-20s  %7s  %6s  %-7s  %5s  %9s  %9s  %12s\n",
		"Policy", "Episode", "Sample", "Jammer", "Steps", "SINR", "BER", "Reward")
	for _, e := range eps {
		fmt.Printf("  %-20s  %7d  %6d  %-7s  %5d  %9.4f  %9.6f  %12.4f\n",
			e.Policy, e.Episode, e.SampleIndex, e.JammerLabel, e.Steps, e.AvgSINR, e.AvgBER, e.TotalReward)
	}
	return nil
}

// #endregion detail-mode

// #region step-mode

type stepRow struct {
	Policy     string  `json:"policy"`
	Step       int     `json:"step"`
	Action     [3]int  `json:"action"`
	SINR       float64 `json:"sinr"`
	BER        float64 `json:"ber"`
	Reward     float64 `json:"reward"`
	Terminated bool    `json:"terminated"`
	Prediction *int    `json:"prediction,omitempty"`
}

func runStepMode(store *runstore.Store, runID string, episode int, jsonOut bool) error {
	entries, err := logging.ListSteps(store.DB(), runID, episode)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "no steps logged for run %s episode %d\n", shortID(runID), episode)
		return nil
	}

	rows := make([]stepRow, len(entries))
	for i, e := range entries {
		rows[i] = stepRow{
			Policy:     e.Policy,
			Step:       e.Step,
			Action:     e.Action.Ints(),
			SINR:       e.SINR,
			BER:        e.BER,
			Reward:     e.Reward,
			Terminated: e.Terminated,
		}
		if e.Prediction != logging.NoPrediction {
			p := e.Prediction
			rows[i].Prediction = &p
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	for _, r := range rows {
		pred := "-"
		if r.Prediction != nil {
			pred = fmt.Sprintf("%d", *r.Prediction)
		}
		fmt.Printf("%-20s Step %3d: Action=%v, SINR=%.2f dB, BER=%.4f, Reward=%.2f  pred=%s\n",
			r.Policy, r.Step, r.Action, r.SINR, r.BER, r.Reward, pred)
	}
	return nil
}

// #endregion step-mode

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

// #endregion output
