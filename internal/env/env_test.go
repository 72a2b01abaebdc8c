package env

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// #region helpers
type identityScaler struct{ width int }

func (s identityScaler) Width() int { return s.width }

func (s identityScaler) Transform(raw []float64) ([]float64, error) {
	out := make([]float64, len(raw))
	copy(out, raw)
	return out, nil
}

type failingSimulator struct{}

func (failingSimulator) Simulate(channel.Action, channel.State) (channel.Result, error) {
	return channel.Result{}, errors.New("engine offline")
}

// makeDataset builds two samples whose features sum to 1000 (noise factor 1.0):
// index 0 is passive, index 1 is active.
func makeDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]string{"a", "b"}, []dataset.Sample{
		{Features: []float64{600, 400}, Label: channel.JammerPassive},
		{Features: []float64{250, 750}, Label: channel.JammerActive},
	})
	if err != nil {
		t.Fatalf("build dataset: %v", err)
	}
	return ds
}

func newEnv(t *testing.T, sim channel.Simulator) *Environment {
	t.Helper()
	e, err := New(makeDataset(t), identityScaler{width: 2}, sim, Config{MaxSteps: 100, Seed: 42})
	if err != nil {
		t.Fatalf("new env: %v", err)
	}
	return e
}

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// #endregion helpers

// #region construction-tests
func TestNew_DefaultsMaxSteps(t *testing.T) {
	e, err := New(makeDataset(t), identityScaler{width: 2}, nil, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.MaxSteps() != 100 {
		t.Errorf("expected default max steps 100, got %d", e.MaxSteps())
	}
}

func TestNew_FeatureMismatch(t *testing.T) {
	_, err := New(makeDataset(t), identityScaler{width: 3}, nil, DefaultConfig())
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestNew_NilInputs(t *testing.T) {
	if _, err := New(nil, identityScaler{}, nil, DefaultConfig()); !errors.Is(err, dataset.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
	if _, err := New(makeDataset(t), nil, nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil scaler")
	}
}

func TestOpen_FromFiles(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(dataPath, []byte("a,b,label\n1,2,0\n3,4,1\n"), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	scPath := filepath.Join(dir, "scaler.bin")
	if err := (&scaler.Standard{Mean: []float64{2, 3}, Scale: []float64{1, 1}}).Save(scPath); err != nil {
		t.Fatalf("save scaler: %v", err)
	}

	e, err := Open(Config{DatasetPath: dataPath, ScalerPath: scPath, MaxSteps: 5, Seed: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obs, err := e.ResetTo(1)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := Observation{1, 1, 1}
	for i := range want {
		if obs[i] != want[i] {
			t.Fatalf("expected observation %v, got %v", want, obs)
		}
	}
}

func TestOpen_MissingScaler(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(dataPath, []byte("a,label\n1,0\n"), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if _, err := Open(Config{DatasetPath: dataPath, ScalerPath: filepath.Join(dir, "none.bin")}); err == nil {
		t.Fatal("expected error for missing scaler")
	}
}

func TestOpen_EmptyDataset(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(dataPath, []byte("a,label\n"), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	_, err := Open(Config{DatasetPath: dataPath, ScalerPath: filepath.Join(dir, "none.bin")})
	if !errors.Is(err, dataset.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

// #endregion construction-tests

// #region reset-tests
func TestReset_ObservationLayout(t *testing.T) {
	e := newEnv(t, nil)
	obs, err := e.ResetTo(1)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(obs) != e.FeatureCount()+1 {
		t.Fatalf("expected %d values, got %d", e.FeatureCount()+1, len(obs))
	}
	if obs[len(obs)-1] != 1 {
		t.Errorf("expected trailing jammer label 1, got %v", obs[len(obs)-1])
	}
	if e.Steps() != 0 || e.SampleIndex() != 1 {
		t.Errorf("unexpected episode state: steps=%d idx=%d", e.Steps(), e.SampleIndex())
	}
}

func TestReset_RandomIndexInRange(t *testing.T) {
	e := newEnv(t, nil)
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		if _, err := e.Reset(); err != nil {
			t.Fatalf("reset: %v", err)
		}
		idx := e.SampleIndex()
		if idx < 0 || idx >= e.DatasetLen() {
			t.Fatalf("index %d out of range", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both samples drawn over 200 resets, saw %v", seen)
	}
}

func TestReset_SeedReproducible(t *testing.T) {
	a := newEnv(t, nil)
	b := newEnv(t, nil)
	for i := 0; i < 20; i++ {
		a.Reset()
		b.Reset()
		if a.SampleIndex() != b.SampleIndex() {
			t.Fatalf("reset %d: seeded environments diverged", i)
		}
	}
}

func TestResetTo_OutOfRange(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.ResetTo(5); !errors.Is(err, ErrSampleIndex) {
		t.Fatal("expected range error")
	}
}

func TestReset_ClearsStepCounter(t *testing.T) {
	e := newEnv(t, nil)
	e.ResetTo(0)
	for i := 0; i < 7; i++ {
		if _, err := e.Step(channel.Action{}); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	e.Reset()
	if e.Steps() != 0 {
		t.Errorf("expected step counter 0 after reset, got %d", e.Steps())
	}
}

// #endregion reset-tests

// #region step-tests
func TestStep_BeforeReset(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.Step(channel.Action{}); !errors.Is(err, ErrNotReset) {
		t.Fatalf("expected ErrNotReset, got %v", err)
	}
}

func TestStep_InvalidActionLeavesStateUntouched(t *testing.T) {
	e := newEnv(t, nil)
	e.ResetTo(0)
	_, err := e.Step(channel.Action{Modulation: 3})
	if !errors.Is(err, channel.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if e.Steps() != 0 {
		t.Errorf("invalid action advanced the step counter to %d", e.Steps())
	}
}

func TestStep_SimulatorErrorSurfaces(t *testing.T) {
	e := newEnv(t, failingSimulator{})
	e.ResetTo(0)
	if _, err := e.Step(channel.Action{}); err == nil {
		t.Fatal("expected simulator error")
	}
	if e.Steps() != 0 {
		t.Errorf("failed step advanced the counter to %d", e.Steps())
	}
}

func TestStep_TerminatesExactlyAtMaxSteps(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for i := 1; i <= 100; i++ {
		res, err := e.Step(channel.Action{Modulation: channel.QAM16, Power: channel.PowerHigh})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Truncated {
			t.Fatalf("step %d: truncated should always be false", i)
		}
		if i < 100 && res.Terminated {
			t.Fatalf("terminated early at step %d", i)
		}
		if i == 100 && !res.Terminated {
			t.Fatal("expected termination on step 100")
		}
	}
}

func TestStep_SampleFixedWithinEpisode(t *testing.T) {
	e := newEnv(t, nil)
	first, _ := e.Reset()
	idx := e.SampleIndex()
	for _, a := range channel.AllActions() {
		res, err := e.Step(a)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if e.SampleIndex() != idx {
			t.Fatal("sample changed mid-episode")
		}
		for i := range first {
			if res.Observation[i] != first[i] {
				t.Fatalf("observation changed mid-episode: %v vs %v", first, res.Observation)
			}
		}
	}
}

func TestStep_QPSKMediumPowerPassive(t *testing.T) {
	e := newEnv(t, nil)
	e.ResetTo(0)
	res, err := e.Step(channel.Action{Modulation: channel.QPSK, Power: channel.PowerMedium, Nulling: channel.NullingNone})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !approx(res.Info.SINR, 24.0, 1e-9) {
		t.Errorf("expected SINR 24.0, got %v", res.Info.SINR)
	}
	wantBER := 0.5 * math.Exp(-6)
	if !approx(res.Info.BER, wantBER, 1e-12) {
		t.Errorf("expected BER %v, got %v", wantBER, res.Info.BER)
	}
	wantReward := 24.0 - 0.1 - 10*wantBER
	if !approx(res.Reward, wantReward, 1e-9) {
		t.Errorf("expected reward %v, got %v", wantReward, res.Reward)
	}
	if !approx(res.Reward, 23.888, 1e-3) {
		t.Errorf("expected reward ~23.888, got %v", res.Reward)
	}
	if res.Info.Reward != res.Reward {
		t.Errorf("info reward %v differs from reward %v", res.Info.Reward, res.Reward)
	}
}

func TestStep_64QAMLowPowerActive(t *testing.T) {
	e := newEnv(t, nil)
	e.ResetTo(1)
	res, err := e.Step(channel.Action{Modulation: channel.QAM64})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !approx(res.Info.SINR, 2.5, 1e-9) {
		t.Errorf("expected SINR 2.5, got %v", res.Info.SINR)
	}
	wantReward := 2.5 - 10*0.5*math.Exp(-2.5/12)
	if !approx(res.Reward, wantReward, 1e-9) {
		t.Errorf("expected reward %v, got %v", wantReward, res.Reward)
	}
	if !approx(res.Reward, -1.56, 1e-2) {
		t.Errorf("expected reward ~-1.56, got %v", res.Reward)
	}
}

func TestStep_PastTerminationStaysTerminated(t *testing.T) {
	e, err := New(makeDataset(t), identityScaler{width: 2}, nil, Config{MaxSteps: 2, Seed: 3})
	if err != nil {
		t.Fatalf("new env: %v", err)
	}
	e.Reset()
	e.Step(channel.Action{})
	e.Step(channel.Action{})
	res, err := e.Step(channel.Action{})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !res.Terminated {
		t.Error("expected terminated to stay true past max steps")
	}
}

func TestReward_PenalisesPowerAndBER(t *testing.T) {
	res := channel.Result{SINR: 10, BER: 0.1}
	if got := Reward(res, channel.Action{Power: channel.PowerHigh}); !approx(got, 10-0.2-1.0, 1e-12) {
		t.Errorf("unexpected reward %v", got)
	}
}

// #endregion step-tests
