package runstore

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// #region run-kind
// Run kinds recorded by the CLI.
const (
	KindEvaluate = "evaluate"
	KindCompare  = "compare"
	KindDemo     = "demo"
)

// #endregion run-kind

// #region run-record
// Run is one evaluation, comparison or demo invocation.
type Run struct {
	RunID      string
	Kind       string
	Policy     string // empty for comparisons
	Episodes   int
	ConfigJSON string
	CreatedAt  time.Time
}

// #endregion run-record

// #region run-with-counts
// RunWithCounts pairs a run with how much it recorded.
type RunWithCounts struct {
	Run
	EpisodeRows int
	StepRows    int
}

// #endregion run-with-counts
