package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/codec"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// ErrNoSamples is returned when evaluating on an empty sample set.
var ErrNoSamples = errors.New("no samples to evaluate")

// #region oracle
// Predictor is the opaque pretrained jammer classifier. It receives scaled features.
type Predictor interface {
	Predict(ctx context.Context, scaled []float64) (codec.Prediction, error)
}

// Oracle pairs the fitted scaler with the classifier so callers can pass raw features.
type Oracle struct {
	Scaler    scaler.Scaler
	Predictor Predictor
}

// Classification is the oracle output for one raw feature vector.
type Classification struct {
	Scaled     []float64
	Prediction codec.Prediction
}

// Classify scales raw and asks the predictor for the jammer class.
func (o Oracle) Classify(ctx context.Context, raw []float64) (Classification, error) {
	scaled, err := o.Scaler.Transform(raw)
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}
	pred, err := o.Predictor.Predict(ctx, scaled)
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}
	return Classification{Scaled: scaled, Prediction: pred}, nil
}

// #endregion oracle

// #region report
// ClassMetrics are the per-class scores of a classification report.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises classifier quality on labelled samples.
// Confusion is indexed [true][predicted].
type Report struct {
	Confusion [2][2]int
	Accuracy  float64
	Classes   [2]ClassMetrics
}

// Evaluate classifies every sample and compares against its ground-truth label.
func Evaluate(ctx context.Context, o Oracle, samples []dataset.Sample) (Report, error) {
	if len(samples) == 0 {
		return Report{}, ErrNoSamples
	}
	var rep Report
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		c, err := o.Classify(ctx, s.Features)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		rep.Confusion[s.Label][c.Prediction.Label]++
	}
	rep.finalize()
	return rep, nil
}

func (r *Report) finalize() {
	total, correct := 0, 0
	for t := 0; t < 2; t++ {
		for p := 0; p < 2; p++ {
			total += r.Confusion[t][p]
		}
		correct += r.Confusion[t][t]
	}
	if total > 0 {
		r.Accuracy = float64(correct) / float64(total)
	}

	for c := 0; c < 2; c++ {
		tp := r.Confusion[c][c]
		predicted := r.Confusion[0][c] + r.Confusion[1][c]
		actual := r.Confusion[c][0] + r.Confusion[c][1]
		m := ClassMetrics{Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m
	}
}

// String renders the report as a plain-text table.
func (r Report) String() string {
	s := fmt.Sprintf("%-10s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for c, m := range r.Classes {
		s += fmt.Sprintf("%-10s %9.4f %9.4f %9.4f %9d\n", channel.JammerLabel(c), m.Precision, m.Recall, m.F1, m.Support)
	}
	s += fmt.Sprintf("\naccuracy %.4f\n", r.Accuracy)
	s += fmt.Sprintf("confusion [[%d %d] [%d %d]]\n", r.Confusion[0][0], r.Confusion[0][1], r.Confusion[1][0], r.Confusion[1][1])
	return s
}

// #endregion report
