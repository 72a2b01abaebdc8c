package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/classifier"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/logging"
	"github.com/antijam/mimo-controller/internal/policy"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/antijam/mimo-controller/internal/runstore"
	"github.com/spf13/cobra"
)

// #region pinned-session
// pinnedSession replays one dataset row on every reset.
type pinnedSession struct {
	*env.Environment
	idx int
}

func (p pinnedSession) Reset() (env.Observation, error) {
	return p.ResetTo(p.idx)
}

// #endregion pinned-session

// #region demo
func demoCommand() *cobra.Command {
	var (
		action   string
		sample   int
		steps    int
		classify bool
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play one live episode and print every step",
		Long: "Play one live episode. With --action the same manual action is applied every step;\n" +
			"otherwise the trained agent chooses actions through the sidecar.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			useAgent := action == ""
			ws, err := openWorkspace(cfg, useAgent || classify)
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := ws.environment(cfg)
			if err != nil {
				return err
			}
			name := action
			if useAgent {
				name = "agent"
			}
			p, err := policy.ByName(name, cfg.Seed, ws.actor())
			if err != nil {
				return err
			}

			var session rollout.Session = e
			if sample >= 0 {
				session = pinnedSession{Environment: e, idx: sample}
			}

			store, err := runstore.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()
			run, err := store.CreateRun(runstore.KindDemo, p.Name(), 1, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			prediction := logging.NoPrediction
			observers := []rollout.Observer{
				func(ev rollout.StepEvent) error {
					if ev.Step == 1 && classify {
						pred, err := predictCurrent(ctx, ws, e)
						if err != nil {
							return err
						}
						prediction = pred
					}
					return nil
				},
				rollout.Trace(os.Stdout),
				func(ev rollout.StepEvent) error {
					return logging.LogStep(store.DB(), logging.StepEntry{
						RunID:       run.RunID,
						Policy:      ev.Policy,
						Episode:     ev.Episode,
						Step:        ev.Step,
						Action:      ev.Action,
						Observation: ev.Result.Observation,
						SINR:        ev.Result.Info.SINR,
						BER:         ev.Result.Info.BER,
						Reward:      ev.Result.Reward,
						Terminated:  ev.Result.Terminated,
						Prediction:  prediction,
					})
				},
			}
			if delay > 0 {
				observers = append(observers, func(rollout.StepEvent) error {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(delay):
						return nil
					}
				})
			}

			fmt.Printf("Demo: %s (run %s)\n", p.Name(), shortID(run.RunID))
			res, err := rollout.RunEpisode(ctx, session, p, 1, steps, observers...)
			if err != nil {
				return err
			}
			if err := store.RecordEpisodes(run.RunID, []rollout.EpisodeResult{res}); err != nil {
				return err
			}

			fmt.Printf("\nSample %d, jammer %s", res.SampleIndex, res.JammerLabel)
			if prediction != logging.NoPrediction {
				fmt.Printf(", classifier predicted %s", channel.JammerLabel(prediction))
			}
			fmt.Printf("\nSteps %d | Avg SINR %.2f dB | Avg BER %.5f | Total reward %.2f\n",
				res.Steps, res.AvgSINR, res.AvgBER, res.TotalReward)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&action, "action", "a", "", "manual action m,p,n (modulation, power, nulling in 0..2)")
	f.IntVar(&sample, "sample", -1, "dataset row to replay (default: random)")
	f.IntVar(&steps, "steps", 0, "stop after N steps (default: full episode)")
	f.BoolVar(&classify, "classify", false, "ask the classifier for the jammer class")
	f.DurationVar(&delay, "delay", 0, "pause between steps, e.g. 200ms")
	return cmd
}

func predictCurrent(ctx context.Context, ws *workspace, e *env.Environment) (int, error) {
	oracle := classifier.Oracle{Scaler: ws.scaler, Predictor: ws.sidecar}
	c, err := oracle.Classify(ctx, e.CurrentRawFeatures())
	if err != nil {
		return logging.NoPrediction, err
	}
	fmt.Printf("Classifier: %s (p=%.2f), truth %s\n", c.Prediction.Label, c.Prediction.Probability, e.CurrentLabel())
	return int(c.Prediction.Label), nil
}

// #endregion demo
