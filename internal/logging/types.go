package logging

import (
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
)

// NoPrediction marks a step logged without a classifier verdict.
const NoPrediction = -1

// #region step-entry
// StepEntry is a single row in the step_log table.
type StepEntry struct {
	RunID       string
	Policy      string
	Episode     int
	Step        int
	Action      channel.Action
	Observation []float64
	SINR        float64
	BER         float64
	Reward      float64
	Terminated  bool
	Prediction  int // jammer label predicted by the classifier, or NoPrediction
	CreatedAt   time.Time
}

// #endregion step-entry
