package main

import (
	"fmt"

	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/scaler"
	"github.com/spf13/cobra"
)

// #region fit-scaler
func fitScalerCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fit-scaler",
		Short: "Fit the standard scaler on the dataset features and write the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = cfg.Scaler
			}
			data, err := dataset.Load(cfg.Dataset)
			if err != nil {
				return err
			}
			sc, err := scaler.Fit(data.Features())
			if err != nil {
				return fmt.Errorf("fit scaler: %w", err)
			}
			if err := sc.Save(out); err != nil {
				return err
			}

			passive, active := data.LabelCounts()
			fmt.Printf("Fitted scaler on %d samples (%d passive, %d active), %d features\n",
				data.Len(), passive, active, sc.Width())
			fmt.Printf("  Saved to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact path (default: configured scaler path)")
	return cmd
}

// #endregion fit-scaler
