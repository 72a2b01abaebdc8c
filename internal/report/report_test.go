package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/classifier"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

// #region fixtures
func episodes() []rollout.EpisodeResult {
	return []rollout.EpisodeResult{
		{Policy: "PPO Agent", Episode: 1, SampleIndex: 3, JammerLabel: channel.JammerActive, Steps: 100, AvgSINR: 11.2, AvgBER: 0.03, TotalReward: 1070.5},
		{Policy: "PPO Agent", Episode: 2, SampleIndex: 8, JammerLabel: channel.JammerPassive, Steps: 100, AvgSINR: 33.6, AvgBER: 0.0001, TotalReward: 3339},
	}
}

func summaries() []rollout.Summary {
	return []rollout.Summary{
		{Policy: "Fixed QPSK", Episodes: 100, AvgSINR: 15, AvgBER: 0.05, AvgReward: 1400},
		{Policy: "PPO Agent", Episodes: 100, AvgSINR: 22.4, AvgBER: 0.015, AvgReward: 2204.75},
	}
}

// #endregion fixtures

// #region csv-tests
func TestWriteEpisodes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEpisodes(&buf, episodes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "episode,avg_sinr,avg_ber,total_reward\n" +
		"1,11.2,0.03,1070.5\n" +
		"2,33.6,0.0001,3339\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteComparison(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteComparison(&buf, summaries()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Policy,Avg SINR,Avg BER,Avg Reward\n" +
		"Fixed QPSK,15,0.05,1400\n" +
		"PPO Agent,22.4,0.015,2204.75\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveEpisodesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ppo_evaluation_log.csv")
	if err := SaveEpisodesCSV(path, episodes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("episode,avg_sinr")) {
		t.Errorf("unexpected file contents %q", b)
	}
}

func TestSaveComparisonCSV_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	if err := SaveComparisonCSV(path, summaries()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// #endregion csv-tests

// #region workbook-tests
func TestWorkbook_Save(t *testing.T) {
	rep := classifier.Report{
		Confusion: [2][2]int{{40, 2}, {3, 55}},
		Accuracy:  0.95,
	}
	wb := Workbook{Episodes: episodes(), Summaries: summaries(), Classifier: &rep}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := wb.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Episodes", "Comparison", "Classifier"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheet list mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows("Episodes")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "PPO Agent" || rows[1][3] != "active" || rows[2][7] != "3339" {
		t.Errorf("unexpected episode rows %v", rows[1:])
	}

	cmpRows, _ := f.GetRows("Comparison")
	if len(cmpRows) != 3 || cmpRows[2][0] != "PPO Agent" {
		t.Errorf("unexpected comparison rows %v", cmpRows)
	}

	cell, _ := f.GetCellValue("Classifier", "C8")
	if cell != "55" {
		t.Errorf("expected true-active/pred-active count 55 at C8, got %q", cell)
	}
}

func TestWorkbook_OnlySummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmp.xlsx")
	if err := (Workbook{Summaries: summaries()}).Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if diff := cmp.Diff([]string{"Comparison"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheet list mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkbook_Empty(t *testing.T) {
	if err := (Workbook{}).Save(filepath.Join(t.TempDir(), "x.xlsx")); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

// #endregion workbook-tests

// #region chart-tests
func TestEvaluationCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	if err := EvaluationCurve(path, "PPO Evaluation Metrics Over Episodes", episodes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPNG(t, path)
}

func TestComparisonBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.png")
	if err := ComparisonBars(path, "Comparison of PPO and Baselines", summaries()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPNG(t, path)
}

func TestCharts_NoData(t *testing.T) {
	dir := t.TempDir()
	if err := EvaluationCurve(filepath.Join(dir, "a.png"), "", nil); !errors.Is(err, ErrNoData) {
		t.Errorf("curve: expected ErrNoData, got %v", err)
	}
	if err := ComparisonBars(filepath.Join(dir, "b.png"), "", nil); !errors.Is(err, ErrNoData) {
		t.Errorf("bars: expected ErrNoData, got %v", err)
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG", path)
	}
}

// #endregion chart-tests
