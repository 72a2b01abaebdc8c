package dataset

import (
	"errors"

	"github.com/antijam/mimo-controller/internal/channel"
)

// LabelColumn is the header name of the jammer class column.
const LabelColumn = "label"

var (
	// ErrEmptyDataset is returned when a file has a header but no samples.
	ErrEmptyDataset = errors.New("dataset has no samples")
	// ErrNoLabelColumn is returned when the header lacks a label column.
	ErrNoLabelColumn = errors.New("dataset has no label column")
	// ErrNoFeatures is returned when the label is the only column.
	ErrNoFeatures = errors.New("dataset has no feature columns")
	// ErrUnsupportedFormat is returned for file extensions with no loader.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrNonFiniteFeature is returned for NaN or infinite feature values.
	ErrNonFiniteFeature = errors.New("feature value is not finite")
)

// #region sample
// Sample is one dataset row: raw channel features plus the jammer label.
type Sample struct {
	Features []float64
	Label    channel.JammerLabel
}

// #endregion sample

// #region dataset
// Dataset is an immutable, ordered collection of samples sharing one feature layout.
type Dataset struct {
	columns []string
	samples []Sample
}

// New builds a dataset from already-parsed samples. Every sample must have
// len(columns) features and a valid label.
func New(columns []string, samples []Sample) (*Dataset, error) {
	return build(columns, samples)
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// FeatureCount returns F, the length of every feature vector.
func (d *Dataset) FeatureCount() int { return len(d.columns) }

// Columns returns the feature column names in file order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Sample returns the i-th sample. Callers must not modify its Features.
func (d *Dataset) Sample(i int) Sample { return d.samples[i] }

// Features returns every feature vector, in sample order.
func (d *Dataset) Features() [][]float64 {
	rows := make([][]float64, len(d.samples))
	for i, s := range d.samples {
		rows[i] = s.Features
	}
	return rows
}

// LabelCounts returns the number of passive and active samples.
func (d *Dataset) LabelCounts() (passive, active int) {
	for _, s := range d.samples {
		if s.Label == channel.JammerActive {
			active++
		} else {
			passive++
		}
	}
	return passive, active
}

// #endregion dataset
