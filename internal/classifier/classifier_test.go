package classifier

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/codec"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// #region helpers
// thresholdPredictor labels a sample active when its first scaled feature is positive.
type thresholdPredictor struct {
	calls int
	err   error
}

func (p *thresholdPredictor) Predict(_ context.Context, scaled []float64) (codec.Prediction, error) {
	p.calls++
	if p.err != nil {
		return codec.Prediction{}, p.err
	}
	if scaled[0] > 0 {
		return codec.Prediction{Label: channel.JammerActive, Probability: 0.9}, nil
	}
	return codec.Prediction{Label: channel.JammerPassive, Probability: 0.8}, nil
}

func newOracle(p Predictor) Oracle {
	return Oracle{
		Scaler:    &scaler.Standard{Mean: []float64{10}, Scale: []float64{2}},
		Predictor: p,
	}
}

// #endregion helpers

func TestClassify_ScalesBeforePredicting(t *testing.T) {
	o := newOracle(&thresholdPredictor{})
	c, err := o.Classify(context.Background(), []float64{14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Scaled[0] != 2 {
		t.Errorf("expected scaled value 2, got %v", c.Scaled[0])
	}
	if c.Prediction.Label != channel.JammerActive {
		t.Errorf("expected active, got %v", c.Prediction.Label)
	}
}

func TestClassify_ScalerError(t *testing.T) {
	p := &thresholdPredictor{}
	_, err := newOracle(p).Classify(context.Background(), []float64{1, 2})
	if !errors.Is(err, scaler.ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if p.calls != 0 {
		t.Error("predictor called after scaler failure")
	}
}

func TestEvaluate_Report(t *testing.T) {
	samples := []dataset.Sample{
		{Features: []float64{12}, Label: channel.JammerActive},  // TP
		{Features: []float64{13}, Label: channel.JammerActive},  // TP
		{Features: []float64{8}, Label: channel.JammerActive},   // FN
		{Features: []float64{7}, Label: channel.JammerPassive},  // TN
		{Features: []float64{11}, Label: channel.JammerPassive}, // FP
	}
	rep, err := Evaluate(context.Background(), newOracle(&thresholdPredictor{}), samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Confusion != [2][2]int{{1, 1}, {1, 2}} {
		t.Errorf("unexpected confusion %v", rep.Confusion)
	}
	if math.Abs(rep.Accuracy-0.6) > 1e-12 {
		t.Errorf("expected accuracy 0.6, got %v", rep.Accuracy)
	}
	active := rep.Classes[channel.JammerActive]
	if math.Abs(active.Precision-2.0/3.0) > 1e-12 || math.Abs(active.Recall-2.0/3.0) > 1e-12 {
		t.Errorf("unexpected active metrics %+v", active)
	}
	if active.Support != 3 || rep.Classes[channel.JammerPassive].Support != 2 {
		t.Errorf("unexpected supports %+v", rep.Classes)
	}
	if !strings.Contains(rep.String(), "accuracy 0.6000") {
		t.Errorf("report text missing accuracy:\n%s", rep.String())
	}
}

func TestEvaluate_Empty(t *testing.T) {
	_, err := Evaluate(context.Background(), newOracle(&thresholdPredictor{}), nil)
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestEvaluate_PredictorError(t *testing.T) {
	p := &thresholdPredictor{err: errors.New("sidecar down")}
	_, err := Evaluate(context.Background(), newOracle(p), []dataset.Sample{{Features: []float64{1}}})
	if !errors.Is(err, p.err) {
		t.Fatalf("expected wrapped predictor error, got %v", err)
	}
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evaluate(ctx, newOracle(&thresholdPredictor{}), []dataset.Sample{{Features: []float64{1}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
