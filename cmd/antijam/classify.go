package main

import (
	"fmt"

	"github.com/antijam/mimo-controller/internal/classifier"
	"github.com/antijam/mimo-controller/internal/report"
	"github.com/spf13/cobra"
)

const (
	reportTestFraction = 0.2
	reportSplitSeed    = 42
)

// #region classify-report
func classifyReportCommand() *cobra.Command {
	var xlsx bool
	cmd := &cobra.Command{
		Use:   "classify-report",
		Short: "Score the sidecar classifier on a stratified 80/20 hold-out split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cfg, true)
			if err != nil {
				return err
			}
			defer ws.Close()

			_, test := ws.data.StratifiedSplit(reportTestFraction, reportSplitSeed)
			oracle := classifier.Oracle{Scaler: ws.scaler, Predictor: ws.sidecar}
			rep, err := classifier.Evaluate(cmd.Context(), oracle, ws.data.Subset(test))
			if err != nil {
				return err
			}

			fmt.Printf("Classification report (%d held-out samples):\n\n", len(test))
			fmt.Print(rep.String())

			if xlsx {
				path, err := resultsPath(cfg, "classifier_report.xlsx")
				if err != nil {
					return err
				}
				if err := (report.Workbook{Classifier: &rep}).Save(path); err != nil {
					return err
				}
				fmt.Printf("\nSaved to %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write the report workbook")
	return cmd
}

// #endregion classify-report
