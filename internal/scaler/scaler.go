package scaler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
)

// #region errors
var (
	// ErrMalformedArtifact is returned when a scaler blob cannot be decoded.
	ErrMalformedArtifact = errors.New("malformed scaler artifact")
	// ErrDimension is returned when a vector does not match the fitted width.
	ErrDimension = errors.New("feature dimension mismatch")
	// ErrNoData is returned when fitting on zero rows.
	ErrNoData = errors.New("no rows to fit")
)

// #endregion errors

// #region interface
// Scaler is the pretrained feature transform applied before observations
// are built. Implementations must be deterministic.
type Scaler interface {
	Transform(raw []float64) ([]float64, error)
}

// #endregion interface

// #region standard
// Standard is a per-feature (x - mean) / scale transform.
type Standard struct {
	Mean  []float64
	Scale []float64
}

// Fit computes population mean and standard deviation per column.
// Zero-variance columns get a scale of 1 so they pass through centred.
func Fit(rows [][]float64) (*Standard, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: zero-width rows", ErrDimension)
	}

	col := make([]float64, len(rows))
	s := &Standard{Mean: make([]float64, width), Scale: make([]float64, width)}
	for j := 0; j < width; j++ {
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimension, i, len(r), width)
			}
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Width returns the number of features the scaler was fitted on.
func (s *Standard) Width() int { return len(s.Mean) }

// Transform returns a new scaled copy of raw.
func (s *Standard) Transform(raw []float64) ([]float64, error) {
	if len(raw) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d features, scaler fitted on %d", ErrDimension, len(raw), len(s.Mean))
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// #endregion standard

// #region artifact
const (
	artifactMagic   = "AJSC"
	artifactVersion = uint32(1)
	// upper bound keeps a corrupt header from triggering a huge allocation
	maxArtifactWidth = 1 << 16
)

// MarshalBinary encodes s as: magic, version, width, means, scales (little endian).
func (s *Standard) MarshalBinary() ([]byte, error) {
	if len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("%w: %d means vs %d scales", ErrDimension, len(s.Mean), len(s.Scale))
	}
	buf := make([]byte, 0, 12+16*len(s.Mean))
	buf = append(buf, artifactMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, artifactVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Mean)))
	for _, v := range s.Mean {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, v := range s.Scale {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes a blob written by MarshalBinary.
func (s *Standard) UnmarshalBinary(b []byte) error {
	if len(b) < 12 || !bytes.Equal(b[:4], []byte(artifactMagic)) {
		return fmt.Errorf("%w: bad header", ErrMalformedArtifact)
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != artifactVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedArtifact, v)
	}
	width := int(binary.LittleEndian.Uint32(b[8:12]))
	if width == 0 || width > maxArtifactWidth {
		return fmt.Errorf("%w: width %d", ErrMalformedArtifact, width)
	}
	if len(b) != 12+16*width {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedArtifact, 12+16*width, len(b))
	}

	mean := make([]float64, width)
	scale := make([]float64, width)
	off := 12
	for i := range mean {
		mean[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
		if math.IsNaN(mean[i]) || math.IsInf(mean[i], 0) {
			return fmt.Errorf("%w: feature %d has mean %v", ErrMalformedArtifact, i, mean[i])
		}
		off += 8
	}
	for i := range scale {
		scale[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
		if scale[i] == 0 || math.IsNaN(scale[i]) || math.IsInf(scale[i], 0) {
			return fmt.Errorf("%w: feature %d has scale %v", ErrMalformedArtifact, i, scale[i])
		}
		off += 8
	}
	s.Mean, s.Scale = mean, scale
	return nil
}

// Save writes the artifact to path.
func (s *Standard) Save(path string) error {
	b, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write scaler %s: %w", path, err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(path string) (*Standard, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w", path, err)
	}
	var s Standard
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	return &s, nil
}

// #endregion artifact
