package report

import (
	"fmt"

	"github.com/antijam/mimo-controller/internal/classifier"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/xuri/excelize/v2"
)

const (
	episodesSheet   = "Episodes"
	comparisonSheet = "Comparison"
	classifierSheet = "Classifier"
)

// #region workbook
// Workbook collects everything a run produced for a single XLSX file.
// Empty sections are left out.
type Workbook struct {
	Episodes   []rollout.EpisodeResult
	Summaries  []rollout.Summary
	Classifier *classifier.Report
}

// Save writes the workbook to path.
func (wb Workbook) Save(path string) error {
	if len(wb.Episodes) == 0 && len(wb.Summaries) == 0 && wb.Classifier == nil {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if len(wb.Episodes) > 0 {
		if err := writeEpisodesSheet(f, wb.Episodes); err != nil {
			return err
		}
	}
	if len(wb.Summaries) > 0 {
		if err := writeComparisonSheet(f, wb.Summaries); err != nil {
			return err
		}
	}
	if wb.Classifier != nil {
		if err := writeClassifierSheet(f, *wb.Classifier); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// #endregion workbook

// #region sheets
func writeEpisodesSheet(f *excelize.File, results []rollout.EpisodeResult) error {
	if _, err := f.NewSheet(episodesSheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", episodesSheet, err)
	}
	header := []any{"Policy", "Episode", "Sample", "Jammer", "Steps", "Avg SINR (dB)", "Avg BER", "Total Reward"}
	if err := f.SetSheetRow(episodesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", episodesSheet, err)
	}
	for i, r := range results {
		row := []any{r.Policy, r.Episode, r.SampleIndex, r.JammerLabel.String(), r.Steps, r.AvgSINR, r.AvgBER, r.TotalReward}
		if err := f.SetSheetRow(episodesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", episodesSheet, i+2, err)
		}
	}
	return nil
}

func writeComparisonSheet(f *excelize.File, summaries []rollout.Summary) error {
	if _, err := f.NewSheet(comparisonSheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", comparisonSheet, err)
	}
	header := []any{"Policy", "Episodes", "Avg SINR", "Avg BER", "Avg Reward", "Reward Std"}
	if err := f.SetSheetRow(comparisonSheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", comparisonSheet, err)
	}
	for i, s := range summaries {
		row := []any{s.Policy, s.Episodes, s.AvgSINR, s.AvgBER, s.AvgReward, s.RewardStdDev}
		if err := f.SetSheetRow(comparisonSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", comparisonSheet, i+2, err)
		}
	}
	return nil
}

func writeClassifierSheet(f *excelize.File, rep classifier.Report) error {
	if _, err := f.NewSheet(classifierSheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", classifierSheet, err)
	}
	rows := [][]any{
		{"Class", "Precision", "Recall", "F1", "Support"},
	}
	for c, m := range rep.Classes {
		rows = append(rows, []any{c, m.Precision, m.Recall, m.F1, m.Support})
	}
	rows = append(rows,
		[]any{"Accuracy", rep.Accuracy},
		[]any{},
		[]any{"Confusion", "Pred 0", "Pred 1"},
		[]any{"True 0", rep.Confusion[0][0], rep.Confusion[0][1]},
		[]any{"True 1", rep.Confusion[1][0], rep.Confusion[1][1]},
	)
	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		if err := f.SetSheetRow(classifierSheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", classifierSheet, i+1, err)
		}
	}
	return nil
}

// #endregion sheets
