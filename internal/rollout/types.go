package rollout

import (
	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/env"
)

// #region types
// Session is the environment contract the harness drives.
type Session interface {
	Reset() (env.Observation, error)
	Step(a channel.Action) (env.StepResult, error)
	MaxSteps() int
	SampleIndex() int
	CurrentLabel() channel.JammerLabel
}

// StepEvent is delivered to observers after every successful step.
type StepEvent struct {
	Policy  string
	Episode int
	Step    int
	Action  channel.Action
	Result  env.StepResult
}

// Observer receives step events, e.g. a console trace or a step log writer.
// Returning an error aborts the run.
type Observer func(StepEvent) error

// EpisodeResult aggregates one episode.
type EpisodeResult struct {
	Policy      string
	Episode     int
	SampleIndex int
	JammerLabel channel.JammerLabel
	Steps       int
	AvgSINR     float64
	AvgBER      float64
	TotalReward float64
}

// Summary aggregates a set of episodes for one policy.
type Summary struct {
	Policy       string
	Episodes     int
	AvgSINR      float64
	AvgBER       float64
	AvgReward    float64
	RewardStdDev float64
}

// Config controls a rollout run.
type Config struct {
	Episodes int
	// StepLimit caps steps per episode; zero means run until terminated.
	StepLimit int
}

// DefaultConfig evaluates 100 episodes per policy.
func DefaultConfig() Config {
	return Config{Episodes: 100}
}

// #endregion types
