package rollout

import (
	"context"
	"fmt"

	"github.com/antijam/mimo-controller/internal/policy"
	"gonum.org/v1/gonum/stat"
)

// #region run-episode
// RunEpisode resets the session and plays p until termination.
func RunEpisode(ctx context.Context, s Session, p policy.Policy, episode int, stepLimit int, observers ...Observer) (EpisodeResult, error) {
	obs, err := s.Reset()
	if err != nil {
		return EpisodeResult{}, fmt.Errorf("episode %d: reset: %w", episode, err)
	}

	res := EpisodeResult{
		Policy:      p.Name(),
		Episode:     episode,
		SampleIndex: s.SampleIndex(),
		JammerLabel: s.CurrentLabel(),
	}
	limit := s.MaxSteps()
	if stepLimit > 0 && stepLimit < limit {
		limit = stepLimit
	}

	var sumSINR, sumBER float64
	for step := 1; step <= limit; step++ {
		if err := ctx.Err(); err != nil {
			return EpisodeResult{}, err
		}
		a, err := p.Act(ctx, obs)
		if err != nil {
			return EpisodeResult{}, fmt.Errorf("episode %d step %d: %w", episode, step, err)
		}
		sr, err := s.Step(a)
		if err != nil {
			return EpisodeResult{}, fmt.Errorf("episode %d step %d: %w", episode, step, err)
		}

		res.Steps++
		res.TotalReward += sr.Reward
		sumSINR += sr.Info.SINR
		sumBER += sr.Info.BER
		obs = sr.Observation

		ev := StepEvent{Policy: p.Name(), Episode: episode, Step: step, Action: a, Result: sr}
		for _, o := range observers {
			if err := o(ev); err != nil {
				return EpisodeResult{}, fmt.Errorf("episode %d step %d: observer: %w", episode, step, err)
			}
		}
		if sr.Terminated || sr.Truncated {
			break
		}
	}

	if res.Steps > 0 {
		res.AvgSINR = sumSINR / float64(res.Steps)
		res.AvgBER = sumBER / float64(res.Steps)
	}
	return res, nil
}

// #endregion run-episode

// #region evaluate
// Evaluate plays cfg.Episodes episodes of p. Episodes are numbered from 1.
func Evaluate(ctx context.Context, s Session, p policy.Policy, cfg Config, observers ...Observer) ([]EpisodeResult, error) {
	if cfg.Episodes <= 0 {
		cfg.Episodes = DefaultConfig().Episodes
	}
	results := make([]EpisodeResult, 0, cfg.Episodes)
	for ep := 1; ep <= cfg.Episodes; ep++ {
		r, err := RunEpisode(ctx, s, p, ep, cfg.StepLimit, observers...)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Summarize averages episode metrics. AvgReward is the mean episode total.
func Summarize(policyName string, results []EpisodeResult) Summary {
	sum := Summary{Policy: policyName, Episodes: len(results)}
	if len(results) == 0 {
		return sum
	}
	sinr := make([]float64, len(results))
	ber := make([]float64, len(results))
	reward := make([]float64, len(results))
	for i, r := range results {
		sinr[i], ber[i], reward[i] = r.AvgSINR, r.AvgBER, r.TotalReward
	}
	sum.AvgSINR = stat.Mean(sinr, nil)
	sum.AvgBER = stat.Mean(ber, nil)
	sum.AvgReward, sum.RewardStdDev = stat.PopMeanStdDev(reward, nil)
	return sum
}

// #endregion evaluate

// #region compare
// Comparison holds every policy's episodes and summary, in input order.
type Comparison struct {
	Summaries []Summary
	Episodes  []EpisodeResult
}

// Compare evaluates each policy on the same session for cfg.Episodes episodes.
func Compare(ctx context.Context, s Session, policies []policy.Policy, cfg Config, observers ...Observer) (Comparison, error) {
	var cmp Comparison
	for _, p := range policies {
		results, err := Evaluate(ctx, s, p, cfg, observers...)
		if err != nil {
			return cmp, fmt.Errorf("policy %s: %w", p.Name(), err)
		}
		cmp.Episodes = append(cmp.Episodes, results...)
		cmp.Summaries = append(cmp.Summaries, Summarize(p.Name(), results))
	}
	return cmp, nil
}

// Best returns the summary with the highest average reward.
func (c Comparison) Best() (Summary, bool) {
	if len(c.Summaries) == 0 {
		return Summary{}, false
	}
	best := c.Summaries[0]
	for _, s := range c.Summaries[1:] {
		if s.AvgReward > best.AvgReward {
			best = s
		}
	}
	return best, true
}

// #endregion compare
