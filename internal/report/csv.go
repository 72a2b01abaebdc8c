package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/antijam/mimo-controller/internal/rollout"
)

// ErrNoData is returned when there is nothing to write or plot.
var ErrNoData = errors.New("no data to report")

// #region headers
// EpisodeHeader is the evaluation log layout.
var EpisodeHeader = []string{"episode", "avg_sinr", "avg_ber", "total_reward"}

// ComparisonHeader is the policy comparison layout.
var ComparisonHeader = []string{"Policy", "Avg SINR", "Avg BER", "Avg Reward"}

// #endregion headers

// #region csv
// WriteEpisodes writes one row per episode.
func WriteEpisodes(w io.Writer, results []rollout.EpisodeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EpisodeHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := []string{strconv.Itoa(r.Episode), formatFloat(r.AvgSINR), formatFloat(r.AvgBER), formatFloat(r.TotalReward)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write episode %d: %w", r.Episode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteComparison writes one row per policy summary.
func WriteComparison(w io.Writer, summaries []rollout.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ComparisonHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range summaries {
		row := []string{s.Policy, formatFloat(s.AvgSINR), formatFloat(s.AvgBER), formatFloat(s.AvgReward)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", s.Policy, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveEpisodesCSV writes the evaluation log to path.
func SaveEpisodesCSV(path string, results []rollout.EpisodeResult) error {
	return saveFile(path, func(w io.Writer) error { return WriteEpisodes(w, results) })
}

// SaveComparisonCSV writes the policy comparison to path.
func SaveComparisonCSV(path string, summaries []rollout.Summary) error {
	return saveFile(path, func(w io.Writer) error { return WriteComparison(w, summaries) })
}

// #endregion csv

// #region helpers
func saveFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// #endregion helpers
