package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/antijam/mimo-controller/internal/config"
	"github.com/spf13/cobra"
)

// #region flags
var (
	configPath string
	cfg        config.Config

	flagDataset  string
	flagScaler   string
	flagDB       string
	flagEngine   string
	flagSidecar  string
	flagResults  string
	flagSeed     uint64
	flagEpisodes int
	flagMaxSteps int
)

// applyFlags lets explicitly set flags win over the file and environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("dataset") {
		c.Dataset = flagDataset
	}
	if fs.Changed("scaler") {
		c.Scaler = flagScaler
	}
	if fs.Changed("db") {
		c.DB = flagDB
	}
	if fs.Changed("engine") {
		c.Engine = flagEngine
	}
	if fs.Changed("sidecar") {
		c.SidecarAddr = flagSidecar
	}
	if fs.Changed("results") {
		c.ResultsDir = flagResults
	}
	if fs.Changed("seed") {
		c.Seed = flagSeed
	}
	if fs.Changed("episodes") {
		c.Episodes = flagEpisodes
	}
	if fs.Changed("max-steps") {
		c.MaxSteps = flagMaxSteps
	}
}

// #endregion flags

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "antijam",
		Short:        "MIMO anti-jamming link environment, evaluation and reporting",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &c)
			if err := c.Validate(); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.StringVar(&flagDataset, "dataset", "", "dataset path (.csv or .xlsx)")
	pf.StringVar(&flagScaler, "scaler", "", "scaler artifact path")
	pf.StringVar(&flagDB, "db", "", "run store SQLite path")
	pf.StringVar(&flagEngine, "engine", "", "SINR/BER engine: analytic or sidecar")
	pf.StringVar(&flagSidecar, "sidecar", "", "sidecar gRPC address")
	pf.StringVar(&flagResults, "results", "", "directory for CSV, XLSX and PNG outputs")
	pf.Uint64Var(&flagSeed, "seed", 0, "sample selection seed (0 = random)")
	pf.IntVar(&flagEpisodes, "episodes", 0, "episodes per policy")
	pf.IntVar(&flagMaxSteps, "max-steps", 0, "steps per episode")

	root.AddCommand(
		fitScalerCommand(),
		serveCommand(),
		evaluateCommand(),
		compareCommand(),
		demoCommand(),
		classifyReportCommand(),
	)
	return root
}

// #endregion main
