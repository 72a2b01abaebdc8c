package rollout

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/policy"
)

// #region helpers
type identityScaler struct{}

func (identityScaler) Transform(raw []float64) ([]float64, error) {
	return append([]float64(nil), raw...), nil
}

// newSession returns an environment whose samples all have noise factor 1.0.
func newSession(t *testing.T, label channel.JammerLabel, maxSteps int) *env.Environment {
	t.Helper()
	ds, err := dataset.New([]string{"a"}, []dataset.Sample{
		{Features: []float64{1000}, Label: label},
	})
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	e, err := env.New(ds, identityScaler{}, nil, env.Config{MaxSteps: maxSteps, Seed: 11})
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	return e
}

type failingPolicy struct{}

func (failingPolicy) Name() string { return "broken" }
func (failingPolicy) Act(context.Context, []float64) (channel.Action, error) {
	return channel.Action{}, errors.New("no action")
}

type badActionPolicy struct{}

func (badActionPolicy) Name() string { return "bad" }
func (badActionPolicy) Act(context.Context, []float64) (channel.Action, error) {
	return channel.Action{Power: 9}, nil
}

// #endregion helpers

// #region episode-tests
func TestRunEpisode_FixedQPSK(t *testing.T) {
	s := newSession(t, channel.JammerPassive, 100)
	res, err := RunEpisode(context.Background(), s, policy.FixedQPSK(), 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Steps != 100 {
		t.Fatalf("expected 100 steps, got %d", res.Steps)
	}
	if math.Abs(res.AvgSINR-24.0) > 1e-9 {
		t.Errorf("expected avg SINR 24.0, got %v", res.AvgSINR)
	}
	wantReward := 100 * (24.0 - 0.1 - 10*0.5*math.Exp(-6))
	if math.Abs(res.TotalReward-wantReward) > 1e-6 {
		t.Errorf("expected total reward %v, got %v", wantReward, res.TotalReward)
	}
	if res.Policy != "Fixed QPSK" || res.JammerLabel != channel.JammerPassive {
		t.Errorf("unexpected metadata %+v", res)
	}
}

func TestRunEpisode_StepLimit(t *testing.T) {
	s := newSession(t, channel.JammerActive, 100)
	res, err := RunEpisode(context.Background(), s, policy.Fixed16QAM(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", res.Steps)
	}
}

func TestRunEpisode_PolicyError(t *testing.T) {
	s := newSession(t, channel.JammerActive, 5)
	if _, err := RunEpisode(context.Background(), s, failingPolicy{}, 1, 0); err == nil {
		t.Fatal("expected policy error")
	}
}

func TestRunEpisode_InvalidActionStops(t *testing.T) {
	s := newSession(t, channel.JammerActive, 5)
	_, err := RunEpisode(context.Background(), s, badActionPolicy{}, 1, 0)
	if !errors.Is(err, channel.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestRunEpisode_ObserverSeesEveryStep(t *testing.T) {
	s := newSession(t, channel.JammerPassive, 7)
	var steps []int
	obs := func(ev StepEvent) error {
		steps = append(steps, ev.Step)
		if ev.Step == 7 && !ev.Result.Terminated {
			t.Error("last step should be terminated")
		}
		return nil
	}
	if _, err := RunEpisode(context.Background(), s, policy.FixedQPSK(), 3, 0, obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 7 || steps[0] != 1 || steps[6] != 7 {
		t.Errorf("unexpected observed steps %v", steps)
	}
}

func TestRunEpisode_ObserverErrorAborts(t *testing.T) {
	s := newSession(t, channel.JammerPassive, 7)
	sentinel := errors.New("disk full")
	_, err := RunEpisode(context.Background(), s, policy.FixedQPSK(), 1, 0, func(StepEvent) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected observer error, got %v", err)
	}
}

func TestRunEpisode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSession(t, channel.JammerPassive, 7)
	if _, err := RunEpisode(ctx, s, policy.FixedQPSK(), 1, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// #endregion episode-tests

// #region evaluate-tests
func TestEvaluate_NumbersEpisodes(t *testing.T) {
	s := newSession(t, channel.JammerPassive, 3)
	results, err := Evaluate(context.Background(), s, policy.FixedQPSK(), Config{Episodes: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 episodes, got %d", len(results))
	}
	for i, r := range results {
		if r.Episode != i+1 {
			t.Errorf("episode %d numbered %d", i, r.Episode)
		}
	}
}

func TestSummarize(t *testing.T) {
	results := []EpisodeResult{
		{AvgSINR: 10, AvgBER: 0.1, TotalReward: 100},
		{AvgSINR: 20, AvgBER: 0.3, TotalReward: 300},
	}
	s := Summarize("p", results)
	if s.Episodes != 2 || s.AvgSINR != 15 || math.Abs(s.AvgBER-0.2) > 1e-12 || s.AvgReward != 200 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.RewardStdDev != 100 {
		t.Errorf("expected population std 100, got %v", s.RewardStdDev)
	}
	if empty := Summarize("p", nil); empty.Episodes != 0 || empty.AvgReward != 0 {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

// #endregion evaluate-tests

// #region compare-tests
func TestCompare_NullingBeatsFixedUnderJamming(t *testing.T) {
	s := newSession(t, channel.JammerActive, 20)
	full := policy.Fixed{Label: "Full nulling", Action: channel.Action{Modulation: channel.QPSK, Power: channel.PowerHigh, Nulling: channel.NullingFull}}
	policies := []policy.Policy{policy.FixedQPSK(), policy.Fixed16QAM(), full}

	cmp, err := Compare(context.Background(), s, policies, Config{Episodes: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmp.Summaries) != 3 || len(cmp.Episodes) != 6 {
		t.Fatalf("unexpected sizes: %d summaries, %d episodes", len(cmp.Summaries), len(cmp.Episodes))
	}
	if cmp.Summaries[0].Policy != "Fixed QPSK" {
		t.Errorf("summaries out of order: %v", cmp.Summaries[0].Policy)
	}
	best, ok := cmp.Best()
	if !ok || best.Policy != "Full nulling" {
		t.Errorf("expected full nulling to win, got %+v", best)
	}
}

func TestCompare_EmptyBest(t *testing.T) {
	if _, ok := (Comparison{}).Best(); ok {
		t.Error("expected no best for empty comparison")
	}
}

// #endregion compare-tests

// #region trace-tests
func TestTrace_Format(t *testing.T) {
	var buf bytes.Buffer
	s := newSession(t, channel.JammerPassive, 2)
	if _, err := RunEpisode(context.Background(), s, policy.FixedQPSK(), 1, 0, Trace(&buf)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 trace lines, got %d", len(lines))
	}
	want := "Step 1: Action=[0 1 0], SINR=24.00 dB, BER=0.0012, Reward=23.89"
	if lines[0] != want {
		t.Errorf("unexpected trace line\n got: %s\nwant: %s", lines[0], want)
	}
}

// #endregion trace-tests
