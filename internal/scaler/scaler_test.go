package scaler

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFit_PopulationStatistics(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{3, 10, 5},
		{5, 10, 5},
		{7, 10, 5},
	}
	s, err := Fit(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Width() != 3 {
		t.Fatalf("expected width 3, got %d", s.Width())
	}
	if s.Mean[0] != 4 {
		t.Errorf("expected mean 4, got %v", s.Mean[0])
	}
	// population std of {1,3,5,7} is sqrt(5)
	if math.Abs(s.Scale[0]-math.Sqrt(5)) > 1e-12 {
		t.Errorf("expected scale sqrt(5), got %v", s.Scale[0])
	}
	if s.Scale[1] != 1 || s.Scale[2] != 1 {
		t.Errorf("constant columns should get scale 1, got %v", s.Scale)
	}
}

func TestFit_Errors(t *testing.T) {
	if _, err := Fit(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := Fit([][]float64{{1, 2}, {3}}); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestTransform_Standardises(t *testing.T) {
	s := &Standard{Mean: []float64{4, 10}, Scale: []float64{2, 1}}
	got, err := s.Transform([]float64{8, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{2, -3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	s := &Standard{Mean: []float64{1}, Scale: []float64{2}}
	raw := []float64{5}
	if _, err := s.Transform(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw[0] != 5 {
		t.Errorf("input mutated: %v", raw)
	}
}

func TestTransform_DimensionMismatch(t *testing.T) {
	s := &Standard{Mean: []float64{0, 0}, Scale: []float64{1, 1}}
	if _, err := s.Transform([]float64{1}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.bin")
	orig := &Standard{Mean: []float64{1.5, -2, 0}, Scale: []float64{0.5, 3, 1}}
	if err := orig.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(orig, loaded); diff != "" {
		t.Errorf("loaded scaler differs (-want +got):\n%s", diff)
	}
}

func TestLoad_Malformed(t *testing.T) {
	good, err := (&Standard{Mean: []float64{1, 2}, Scale: []float64{1, 1}}).MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	zeroScale, _ := (&Standard{Mean: []float64{1}, Scale: []float64{0}}).MarshalBinary()
	nanMean, _ := (&Standard{Mean: []float64{1, math.NaN()}, Scale: []float64{1, 1}}).MarshalBinary()
	infMean, _ := (&Standard{Mean: []float64{math.Inf(-1)}, Scale: []float64{1}}).MarshalBinary()

	cases := map[string][]byte{
		"empty":      {},
		"bad magic":  append([]byte("XXXX"), good[4:]...),
		"truncated":  good[:len(good)-3],
		"trailing":   append(append([]byte{}, good...), 0),
		"zero scale": zeroScale,
		"nan mean":   nanMean,
		"inf mean":   infMean,
	}
	dir := t.TempDir()
	for name, blob := range cases {
		path := filepath.Join(dir, "s.bin")
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); !errors.Is(err, ErrMalformedArtifact) {
			t.Errorf("%s: expected ErrMalformedArtifact, got %v", name, err)
		}
	}
}

func TestUnmarshalBinary_NaNMeanLeavesScalerUnchanged(t *testing.T) {
	// magic, version 1, width 1, mean NaN, scale 1
	blob := []byte("AJSC")
	blob = append(blob, 1, 0, 0, 0, 1, 0, 0, 0)
	blob = append(blob, 0x01, 0, 0, 0, 0, 0, 0xf8, 0x7f)
	blob = append(blob, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f)

	s := Standard{Mean: []float64{5}, Scale: []float64{2}}
	if err := s.UnmarshalBinary(blob); !errors.Is(err, ErrMalformedArtifact) {
		t.Fatalf("expected ErrMalformedArtifact, got %v", err)
	}
	if s.Mean[0] != 5 || s.Scale[0] != 2 {
		t.Errorf("scaler modified by failed decode: %+v", s)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	if err == nil || errors.Is(err, ErrMalformedArtifact) {
		t.Fatalf("expected read error, got %v", err)
	}
}
