package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. It carries
// the samples and scaler it needs so it replays without the original files.
type Fixture struct {
	Description  string               `json:"description"`
	Columns      []string             `json:"columns"`
	Samples      []FixtureSample      `json:"samples"`
	Scaler       FixtureScaler        `json:"scaler"`
	Config       FixtureConfig        `json:"config"`
	Interactions []FixtureInteraction `json:"interactions"`
}

// FixtureSample is one dataset row. SampleIndex in interactions refers to
// its position in Fixture.Samples.
type FixtureSample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// FixtureScaler mirrors scaler.Standard with JSON tags.
type FixtureScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FixtureConfig mirrors ReplayConfig plus the episode length.
type FixtureConfig struct {
	MaxSteps  int     `json:"max_steps"`
	Tolerance float64 `json:"tolerance"`
}

// FixtureOutcome mirrors Outcome with JSON tags.
type FixtureOutcome struct {
	SINR   float64 `json:"sinr"`
	BER    float64 `json:"ber"`
	Reward float64 `json:"reward"`
}

// FixtureInteraction mirrors replay.Interaction with JSON tags.
type FixtureInteraction struct {
	Policy      string         `json:"policy"`
	Episode     int            `json:"episode"`
	SampleIndex int            `json:"sample_index"`
	Step        int            `json:"step"`
	Action      [3]int         `json:"action"`
	Expected    FixtureOutcome `json:"expected"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Environment builds the analytic environment the fixture was recorded on.
func (f *Fixture) Environment() (*env.Environment, error) {
	samples := make([]dataset.Sample, len(f.Samples))
	for i, s := range f.Samples {
		samples[i] = dataset.Sample{Features: s.Features, Label: channel.JammerLabel(s.Label)}
	}
	data, err := dataset.New(f.Columns, samples)
	if err != nil {
		return nil, fmt.Errorf("fixture dataset: %w", err)
	}
	sc := &scaler.Standard{Mean: f.Scaler.Mean, Scale: f.Scaler.Scale}
	cfg := env.DefaultConfig()
	if f.Config.MaxSteps > 0 {
		cfg.MaxSteps = f.Config.MaxSteps
	}
	return env.New(data, sc, nil, cfg)
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() (Interaction, error) {
	a, err := channel.ActionFromInts(fi.Action[:])
	if err != nil {
		return Interaction{}, fmt.Errorf("step %d: %w", fi.Step, err)
	}
	return Interaction{
		Policy:      fi.Policy,
		Episode:     fi.Episode,
		SampleIndex: fi.SampleIndex,
		Step:        fi.Step,
		Action:      a,
		Expected:    Outcome(fi.Expected),
	}, nil
}

// ToReplayConfig converts the fixture config, defaulting the tolerance.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.Tolerance > 0 {
		cfg.Tolerance = fc.Tolerance
	}
	return cfg
}

// ToInteractions converts every fixture step.
func (f *Fixture) ToInteractions() ([]Interaction, error) {
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		inter, err := f.Interactions[i].ToInteraction()
		if err != nil {
			return nil, err
		}
		out[i] = inter
	}
	return out, nil
}

// FromInteraction converts a domain Interaction for export.
func FromInteraction(inter Interaction) FixtureInteraction {
	return FixtureInteraction{
		Policy:      inter.Policy,
		Episode:     inter.Episode,
		SampleIndex: inter.SampleIndex,
		Step:        inter.Step,
		Action:      inter.Action.Ints(),
		Expected:    FixtureOutcome(inter.Expected),
	}
}

// #endregion fixture-loader
