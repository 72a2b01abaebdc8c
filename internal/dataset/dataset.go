package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/xuri/excelize/v2"
)

// #region load
// Load reads a dataset, choosing the parser from the file extension.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadCSV reads a CSV file whose header names the feature columns and a label column.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses CSV rows from r.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRecords(records)
}

// LoadXLSX reads the first sheet of a workbook laid out like the CSV format.
func LoadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s: %w", path, ErrEmptyDataset)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	ds, err := parseRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", path, err)
	}
	return ds, nil
}

// #endregion load

// #region parse
func parseRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	header := records[0]
	labelIdx := -1
	var columns []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == LabelColumn {
			labelIdx = i
			continue
		}
		columns = append(columns, name)
	}
	if labelIdx < 0 {
		return nil, ErrNoLabelColumn
	}

	samples := make([]Sample, 0, len(records)-1)
	for r, rec := range records[1:] {
		line := r + 2
		if len(rec) == 0 {
			continue
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		s := Sample{Features: make([]float64, 0, len(columns))}
		for i, field := range rec {
			field = strings.TrimSpace(field)
			if i == labelIdx {
				lbl, err := strconv.Atoi(field)
				if err != nil {
					// labels written as floats ("1.0") are accepted
					fv, ferr := strconv.ParseFloat(field, 64)
					if ferr != nil || fv != float64(int(fv)) {
						return nil, fmt.Errorf("row %d: label %q: %w", line, field, channel.ErrInvalidLabel)
					}
					lbl = int(fv)
				}
				s.Label = channel.JammerLabel(lbl)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", line, header[i], err)
			}
			s.Features = append(s.Features, v)
		}
		samples = append(samples, s)
	}
	return build(columns, samples)
}

func build(columns []string, samples []Sample) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoFeatures
	}
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	for i, s := range samples {
		if len(s.Features) != len(columns) {
			return nil, fmt.Errorf("sample %d: expected %d features, got %d", i, len(columns), len(s.Features))
		}
		if !s.Label.Valid() {
			return nil, fmt.Errorf("sample %d: %w: %d", i, channel.ErrInvalidLabel, int(s.Label))
		}
		for j, v := range s.Features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("sample %d column %q: %w: %v", i, columns[j], ErrNonFiniteFeature, v)
			}
		}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{columns: cols, samples: samples}, nil
}

// #endregion parse

// #region split
// StratifiedSplit partitions sample indices into train and test sets, keeping
// the label ratio of each class. testFraction is clamped to [0, 1].
func (d *Dataset) StratifiedSplit(testFraction float64, seed uint64) (train, test []int) {
	testFraction = min(max(testFraction, 0), 1)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	byLabel := map[channel.JammerLabel][]int{}
	for i, s := range d.samples {
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}
	for _, lbl := range []channel.JammerLabel{channel.JammerPassive, channel.JammerActive} {
		idx := byLabel[lbl]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(float64(len(idx))*testFraction + 0.5)
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

// Subset returns the samples at the given indices.
func (d *Dataset) Subset(indices []int) []Sample {
	out := make([]Sample, len(indices))
	for i, idx := range indices {
		out[i] = d.samples[idx]
	}
	return out
}

// #endregion split
