package env

import "errors"

var (
	// ErrNotReset is returned by Step before the first Reset.
	ErrNotReset = errors.New("environment must be reset before stepping")
	// ErrFeatureMismatch is returned when the scaler and dataset disagree on F.
	ErrFeatureMismatch = errors.New("scaler and dataset feature counts differ")
	// ErrSampleIndex is returned by ResetTo for an index outside the dataset.
	ErrSampleIndex = errors.New("sample index out of range")
)

// #region config
// Config holds the construction parameters of an Environment.
type Config struct {
	DatasetPath string
	ScalerPath  string
	MaxSteps    int
	// Seed drives sample selection at reset. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the standard episode length of 100 steps.
func DefaultConfig() Config {
	return Config{MaxSteps: 100}
}

// #endregion config

// #region reward
const (
	powerPenalty = 0.1
	berPenalty   = 10.0
)

// #endregion reward

// #region results
// Observation is the scaled feature vector followed by the jammer label.
type Observation []float64

// Info carries the link metrics behind a reward.
type Info struct {
	SINR   float64
	BER    float64
	Reward float64
}

// StepResult is everything Step hands back to the agent.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	// Truncated is always false; no time-limit-vs-failure distinction exists yet.
	Truncated bool
	Info      Info
}

// #endregion results
