package env

import (
	"fmt"
	"math/rand/v2"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// #region environment
// Environment is one episode session over a fixed dataset. The sample chosen
// at Reset stays fixed for the whole episode; Step only varies the action.
//
// An Environment is not safe for concurrent use. Run one per worker.
type Environment struct {
	data     *dataset.Dataset
	scaler   scaler.Scaler
	sim      channel.Simulator
	maxSteps int
	rng      *rand.Rand

	// per-episode state
	reset     bool
	step      int
	sampleIdx int
	features  []float64
	obs       Observation
}

// New builds an environment from injected capabilities. sim may be nil, in
// which case the analytic model is used.
func New(data *dataset.Dataset, sc scaler.Scaler, sim channel.Simulator, cfg Config) (*Environment, error) {
	if data == nil || data.Len() == 0 {
		return nil, dataset.ErrEmptyDataset
	}
	if sc == nil {
		return nil, fmt.Errorf("new environment: nil scaler")
	}
	if w, ok := sc.(interface{ Width() int }); ok && w.Width() != data.FeatureCount() {
		return nil, fmt.Errorf("%w: scaler %d, dataset %d", ErrFeatureMismatch, w.Width(), data.FeatureCount())
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	if sim == nil {
		sim = channel.Analytic{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Environment{
		data:     data,
		scaler:   sc,
		sim:      sim,
		maxSteps: cfg.MaxSteps,
		rng:      rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
	}, nil
}

// Open loads the dataset and scaler artifact named in cfg and uses the
// analytic simulator.
func Open(cfg Config) (*Environment, error) {
	data, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("open environment: %w", err)
	}
	sc, err := scaler.Load(cfg.ScalerPath)
	if err != nil {
		return nil, fmt.Errorf("open environment: %w", err)
	}
	return New(data, sc, nil, cfg)
}

// #endregion environment

// #region reset
// Reset picks a sample uniformly at random, zeroes the step counter and
// returns the first observation.
func (e *Environment) Reset() (Observation, error) {
	idx := e.rng.IntN(e.data.Len())
	return e.resetTo(idx)
}

// ResetTo starts an episode on a specific sample, for replaying recorded episodes.
func (e *Environment) ResetTo(idx int) (Observation, error) {
	if idx < 0 || idx >= e.data.Len() {
		return nil, fmt.Errorf("reset: %w: %d not in [0, %d)", ErrSampleIndex, idx, e.data.Len())
	}
	return e.resetTo(idx)
}

func (e *Environment) resetTo(idx int) (Observation, error) {
	sample := e.data.Sample(idx)
	scaled, err := e.scaler.Transform(sample.Features)
	if err != nil {
		return nil, fmt.Errorf("reset: scale sample %d: %w", idx, err)
	}

	obs := make(Observation, 0, len(scaled)+1)
	obs = append(obs, scaled...)
	obs = append(obs, float64(sample.Label))

	e.reset = true
	e.step = 0
	e.sampleIdx = idx
	e.features = scaled
	e.obs = obs
	return e.Observation(), nil
}

// #endregion reset

// #region step
// Step evaluates a against the episode's sample. An invalid action returns an
// error and leaves the episode untouched.
func (e *Environment) Step(a channel.Action) (StepResult, error) {
	if !e.reset {
		return StepResult{}, ErrNotReset
	}
	if err := channel.Validate(a); err != nil {
		return StepResult{}, err
	}

	label := e.CurrentLabel()
	res, err := e.sim.Simulate(a, channel.State{Features: e.features, Label: label})
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", e.step+1, err)
	}
	e.step++

	reward := Reward(res, a)
	return StepResult{
		Observation: e.Observation(),
		Reward:      reward,
		Terminated:  e.step >= e.maxSteps,
		Info:        Info{SINR: res.SINR, BER: res.BER, Reward: reward},
	}, nil
}

// Reward is sinr - 0.1*power - 10*ber.
func Reward(res channel.Result, a channel.Action) float64 {
	return res.SINR - powerPenalty*float64(a.Power) - berPenalty*res.BER
}

// #endregion step

// #region accessors
// Observation returns a copy of the current observation, or nil before Reset.
func (e *Environment) Observation() Observation {
	if e.obs == nil {
		return nil
	}
	out := make(Observation, len(e.obs))
	copy(out, e.obs)
	return out
}

// Steps returns the number of steps taken in the current episode.
func (e *Environment) Steps() int { return e.step }

// MaxSteps returns the episode length.
func (e *Environment) MaxSteps() int { return e.maxSteps }

// SampleIndex returns the dataset index chosen at the last Reset.
func (e *Environment) SampleIndex() int { return e.sampleIdx }

// CurrentLabel returns the ground-truth jammer label of the episode's sample.
func (e *Environment) CurrentLabel() channel.JammerLabel {
	return e.data.Sample(e.sampleIdx).Label
}

// CurrentRawFeatures returns the unscaled features of the episode's sample.
func (e *Environment) CurrentRawFeatures() []float64 {
	f := e.data.Sample(e.sampleIdx).Features
	out := make([]float64, len(f))
	copy(out, f)
	return out
}

// FeatureCount returns F; observations have F+1 entries.
func (e *Environment) FeatureCount() int { return e.data.FeatureCount() }

// DatasetLen returns the number of samples Reset draws from.
func (e *Environment) DatasetLen() int { return e.data.Len() }

// #endregion accessors
