package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/replay"
	"github.com/antijam/mimo-controller/internal/runstore"
	"github.com/antijam/mimo-controller/internal/scaler"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to antijam.db")
	runID := flag.String("run", "", "run id with a step log")
	datasetPath := flag.String("dataset", "", "dataset the run was recorded on")
	scalerPath := flag.String("scaler", "", "scaler artifact the run was recorded with")
	maxEpisodes := flag.Int("episodes", 4, "export at most N episodes per policy")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *runID == "" || *datasetPath == "" || *scalerPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --run id --dataset data.csv --scaler scaler.bin --out fixture.json [--episodes N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *datasetPath, *scalerPath, *maxEpisodes, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, runID, datasetPath, scalerPath string, maxEpisodes int, outPath string) error {
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	meta, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	inters, err := replay.LoadRun(store, runID)
	if err != nil {
		return err
	}
	if len(inters) == 0 {
		return fmt.Errorf("run %s has no logged steps", runID)
	}

	data, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}
	sc, err := scaler.Load(scalerPath)
	if err != nil {
		return err
	}

	inters = limitEpisodes(inters, maxEpisodes)

	// Only the referenced rows are exported; indices are remapped to fixture order.
	remap := make(map[int]int)
	var rows []int
	for _, in := range inters {
		if _, ok := remap[in.SampleIndex]; !ok {
			remap[in.SampleIndex] = -1
			rows = append(rows, in.SampleIndex)
		}
	}
	sort.Ints(rows)

	f := &replay.Fixture{
		Description: fmt.Sprintf("Exported from %s run %s (%s)", meta.Kind, runID, meta.CreatedAt.Format("2006-01-02T15:04:05Z")),
		Columns:     data.Columns(),
		Scaler:      replay.FixtureScaler{Mean: sc.Mean, Scale: sc.Scale},
		Config:      replay.FixtureConfig{MaxSteps: 100, Tolerance: replay.DefaultReplayConfig().Tolerance},
	}
	for i, idx := range rows {
		if idx < 0 || idx >= data.Len() {
			return fmt.Errorf("sample %d not in dataset of %d rows", idx, data.Len())
		}
		s := data.Sample(idx)
		f.Samples = append(f.Samples, replay.FixtureSample{Features: s.Features, Label: int(s.Label)})
		remap[idx] = i
	}
	for _, in := range inters {
		in.SampleIndex = remap[in.SampleIndex]
		f.Interactions = append(f.Interactions, replay.FromInteraction(in))
	}

	if err := f.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d steps over %d samples to %s\n", len(f.Interactions), len(f.Samples), outPath)
	return nil
}

// limitEpisodes keeps the first n episodes of every policy.
func limitEpisodes(inters []replay.Interaction, n int) []replay.Interaction {
	if n <= 0 {
		return inters
	}
	out := inters[:0:0]
	for _, in := range inters {
		if in.Episode <= n {
			out = append(out, in)
		}
	}
	return out
}

// #endregion extract
