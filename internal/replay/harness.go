package replay

import (
	"fmt"
	"math"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/logging"
	"github.com/antijam/mimo-controller/internal/runstore"
)

// #region types
// Outcome is what one step produced.
type Outcome struct {
	SINR   float64
	BER    float64
	Reward float64
}

// Interaction represents a single recorded step for replay.
type Interaction struct {
	Policy      string
	Episode     int
	SampleIndex int
	Step        int
	Action      channel.Action
	Expected    Outcome
}

// ReplayConfig controls how strictly replayed outcomes must match.
type ReplayConfig struct {
	Tolerance float64
}

// DefaultReplayConfig requires bit-for-bit agreement up to float noise.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{Tolerance: 1e-9}
}

// ReplayResult captures the outcome of replaying one step.
type ReplayResult struct {
	Policy   string
	Episode  int
	Step     int
	Action   channel.Action
	Recorded Outcome
	Replayed Outcome
	Match    bool
	Reason   string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Matches    int
	Mismatches int
	Errors     int
	MaxAbsDiff float64
}

// Stepper is the part of env.Environment replay drives.
type Stepper interface {
	ResetTo(idx int) (env.Observation, error)
	Step(a channel.Action) (env.StepResult, error)
}

// #endregion types

// #region replay
// Replay re-applies recorded actions to the same samples. A new episode (or
// policy) resets the stepper to that episode's recorded sample.
func Replay(s Stepper, interactions []Interaction, config ReplayConfig) []ReplayResult {
	results := make([]ReplayResult, 0, len(interactions))

	var (
		started    bool
		curPolicy  string
		curEpisode int
		resetErr   error
	)

	for _, inter := range interactions {
		if !started || inter.Policy != curPolicy || inter.Episode != curEpisode {
			started, curPolicy, curEpisode = true, inter.Policy, inter.Episode
			_, resetErr = s.ResetTo(inter.SampleIndex)
		}

		res := ReplayResult{
			Policy:   inter.Policy,
			Episode:  inter.Episode,
			Step:     inter.Step,
			Action:   inter.Action,
			Recorded: inter.Expected,
		}
		if resetErr != nil {
			res.Reason = fmt.Sprintf("reset: %v", resetErr)
			results = append(results, res)
			continue
		}

		sr, err := s.Step(inter.Action)
		if err != nil {
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		res.Replayed = Outcome{SINR: sr.Info.SINR, BER: sr.Info.BER, Reward: sr.Reward}
		if d := maxDiff(res.Recorded, res.Replayed); d > config.Tolerance {
			res.Reason = fmt.Sprintf("drift %.3g exceeds tolerance %.3g", d, config.Tolerance)
		} else {
			res.Match = true
		}
		results = append(results, res)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalSteps: len(results)}
	for _, r := range results {
		switch {
		case r.Match:
			s.Matches++
		case r.Replayed == (Outcome{}):
			s.Errors++
		default:
			s.Mismatches++
		}
		if r.Replayed != (Outcome{}) {
			s.MaxAbsDiff = math.Max(s.MaxAbsDiff, maxDiff(r.Recorded, r.Replayed))
		}
	}
	return s
}

func maxDiff(a, b Outcome) float64 {
	return math.Max(math.Abs(a.SINR-b.SINR), math.Max(math.Abs(a.BER-b.BER), math.Abs(a.Reward-b.Reward)))
}

// #endregion replay

// #region load-run
// LoadRun turns a run's step log into interactions, taking each episode's
// sample from the recorded episode metrics.
func LoadRun(store *runstore.Store, runID string) ([]Interaction, error) {
	episodes, err := store.ListEpisodes(runID)
	if err != nil {
		return nil, err
	}
	type key struct {
		policy  string
		episode int
	}
	samples := make(map[key]int, len(episodes))
	for _, e := range episodes {
		samples[key{e.Policy, e.Episode}] = e.SampleIndex
	}

	steps, err := logging.ListSteps(store.DB(), runID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Interaction, 0, len(steps))
	for _, st := range steps {
		idx, ok := samples[key{st.Policy, st.Episode}]
		if !ok {
			return nil, fmt.Errorf("run %s: no episode metrics for %s episode %d", runID, st.Policy, st.Episode)
		}
		out = append(out, Interaction{
			Policy:      st.Policy,
			Episode:     st.Episode,
			SampleIndex: idx,
			Step:        st.Step,
			Action:      st.Action,
			Expected:    Outcome{SINR: st.SINR, BER: st.BER, Reward: st.Reward},
		})
	}
	return out, nil
}

// #endregion load-run
