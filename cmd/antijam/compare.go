package main

import (
	"fmt"
	"log"

	"github.com/antijam/mimo-controller/internal/policy"
	"github.com/antijam/mimo-controller/internal/report"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/antijam/mimo-controller/internal/runstore"
	"github.com/spf13/cobra"
)

// #region compare
func compareCommand() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare baseline policies and the trained agent over the same environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			needAgent := false
			for _, n := range names {
				needAgent = needAgent || n == "agent"
			}
			ws, err := openWorkspace(cfg, needAgent)
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := ws.environment(cfg)
			if err != nil {
				return err
			}
			policies := make([]policy.Policy, 0, len(names))
			for _, n := range names {
				p, err := policy.ByName(n, cfg.Seed, ws.actor())
				if err != nil {
					return err
				}
				policies = append(policies, p)
			}

			store, err := runstore.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()
			run, err := store.CreateRun(runstore.KindCompare, "", cfg.Episodes, cfg)
			if err != nil {
				return err
			}

			cmp, err := rollout.Compare(cmd.Context(), e, policies, rollout.Config{Episodes: cfg.Episodes})
			if err != nil {
				return err
			}
			if err := store.RecordEpisodes(run.RunID, cmp.Episodes); err != nil {
				return err
			}
			if err := writeComparison(cmp); err != nil {
				return err
			}

			fmt.Printf("\nPolicy comparison (%d episodes each, run %s):\n\n", cfg.Episodes, shortID(run.RunID))
			fmt.Printf("%-20s  %10s  %10s  %12s  %10s\n", "Policy", "Avg SINR", "Avg BER", "Avg Reward", "Std")
			for _, s := range cmp.Summaries {
				fmt.Printf("%-20s  %10.4f  %10.6f  %12.4f  %10.4f\n", s.Policy, s.AvgSINR, s.AvgBER, s.AvgReward, s.RewardStdDev)
			}
			if best, ok := cmp.Best(); ok {
				fmt.Printf("\nBest: %s\n", best.Policy)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&names, "policies", []string{"fixed-qpsk", "fixed-16qam", "random", "agent"}, "policies to compare")
	return cmd
}

func writeComparison(cmp rollout.Comparison) error {
	csvPath, err := resultsPath(cfg, "policy_comparison.csv")
	if err != nil {
		return err
	}
	if err := report.SaveComparisonCSV(csvPath, cmp.Summaries); err != nil {
		return err
	}
	xlsxPath, err := resultsPath(cfg, "policy_comparison.xlsx")
	if err != nil {
		return err
	}
	if err := (report.Workbook{Episodes: cmp.Episodes, Summaries: cmp.Summaries}).Save(xlsxPath); err != nil {
		return err
	}
	pngPath, err := resultsPath(cfg, "grouped_comparison.png")
	if err != nil {
		return err
	}
	if err := report.ComparisonBars(pngPath, "Comparison of Agent and Baselines (All Metrics)", cmp.Summaries); err != nil {
		return err
	}
	log.Printf("comparison saved to %s, %s, %s", csvPath, xlsxPath, pngPath)
	return nil
}

// #endregion compare
