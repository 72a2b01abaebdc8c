package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/antijam/mimo-controller/internal/logging"
	"github.com/antijam/mimo-controller/internal/policy"
	"github.com/antijam/mimo-controller/internal/report"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/antijam/mimo-controller/internal/runstore"
	"github.com/spf13/cobra"
)

// #region evaluate
func evaluateCommand() *cobra.Command {
	var (
		policyName string
		logSteps   bool
		noPlot     bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one policy for N episodes and write the evaluation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cfg, policyName == "agent")
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := ws.environment(cfg)
			if err != nil {
				return err
			}
			p, err := policy.ByName(policyName, cfg.Seed, ws.actor())
			if err != nil {
				return err
			}

			store, err := runstore.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()
			run, err := store.CreateRun(runstore.KindEvaluate, p.Name(), cfg.Episodes, cfg)
			if err != nil {
				return err
			}

			var observers []rollout.Observer
			if logSteps {
				observers = append(observers, logging.StepLogger(store.DB(), run.RunID))
			}
			rc := rollout.Config{Episodes: cfg.Episodes}
			results, err := rollout.Evaluate(cmd.Context(), e, p, rc, observers...)
			if err != nil {
				return err
			}
			if err := store.RecordEpisodes(run.RunID, results); err != nil {
				return err
			}

			slug := fileSlug(p.Name())
			csvPath, err := resultsPath(cfg, slug+"_evaluation_log.csv")
			if err != nil {
				return err
			}
			if err := report.SaveEpisodesCSV(csvPath, results); err != nil {
				return err
			}
			log.Printf("evaluation complete, saved to %s", csvPath)
			if !noPlot {
				pngPath, err := resultsPath(cfg, slug+"_evaluation_metrics.png")
				if err != nil {
					return err
				}
				if err := report.EvaluationCurve(pngPath, p.Name()+" Evaluation Metrics Over Episodes", results); err != nil {
					return err
				}
				log.Printf("plot saved to %s", pngPath)
			}

			sum := rollout.Summarize(p.Name(), results)
			fmt.Printf("\nAverage over %d episodes (run %s):\n", sum.Episodes, shortID(run.RunID))
			fmt.Printf("  SINR:   %.2f dB\n", sum.AvgSINR)
			fmt.Printf("  BER:    %.5f\n", sum.AvgBER)
			fmt.Printf("  Reward: %.2f (std %.2f)\n", sum.AvgReward, sum.RewardStdDev)
			return nil
		},
	}
	cmd.Flags().StringVarP(&policyName, "policy", "p", "agent", "fixed-qpsk, fixed-16qam, random, agent, or a manual action m,p,n")
	cmd.Flags().BoolVar(&logSteps, "log-steps", false, "record every step in the run store")
	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the PNG chart")
	return cmd
}

// #endregion evaluate

// #region helpers
// fileSlug turns a policy name into a file name prefix.
func fileSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// #endregion helpers
