package runstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	policy        TEXT,
	episodes      INTEGER NOT NULL,
	config_json   TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS episode_metrics (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	policy        TEXT NOT NULL,
	episode       INTEGER NOT NULL,
	sample_index  INTEGER NOT NULL,
	jammer_label  INTEGER NOT NULL,
	steps         INTEGER NOT NULL,
	avg_sinr      REAL NOT NULL,
	avg_ber       REAL NOT NULL,
	total_reward  REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS step_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	policy        TEXT NOT NULL,
	episode       INTEGER NOT NULL,
	step          INTEGER NOT NULL,
	action        TEXT NOT NULL,
	observation   BLOB,
	sinr          REAL NOT NULL,
	ber           REAL NOT NULL,
	reward        REAL NOT NULL,
	terminated    INTEGER NOT NULL,
	prediction    INTEGER,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_episode_metrics_run ON episode_metrics(run_id);
CREATE INDEX IF NOT EXISTS idx_step_log_run ON step_log(run_id, episode, step);
`

// #endregion schema

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store persists runs and their per-episode metrics in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the step logger.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-run
// CreateRun records a new run. cfg is stored as JSON when non-nil.
func (s *Store) CreateRun(kind, policy string, episodes int, cfg any) (Run, error) {
	run := Run{
		RunID:     uuid.New().String(),
		Kind:      kind,
		Policy:    policy,
		Episodes:  episodes,
		CreatedAt: time.Now().UTC(),
	}
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return Run{}, fmt.Errorf("marshal config: %w", err)
		}
		run.ConfigJSON = string(b)
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, kind, policy, episodes, config_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Kind, nullIfEmpty(run.Policy), run.Episodes, nullIfEmpty(run.ConfigJSON),
		run.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// #endregion create-run

// #region record-episodes
// RecordEpisodes stores episode results for a run in one transaction.
func (s *Store) RecordEpisodes(runID string, results []rollout.EpisodeResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO episode_metrics (run_id, policy, episode, sample_index, jammer_label, steps, avg_sinr, avg_ber, total_reward)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(runID, r.Policy, r.Episode, r.SampleIndex, int(r.JammerLabel), r.Steps,
			r.AvgSINR, r.AvgBER, r.TotalReward)
		if err != nil {
			return fmt.Errorf("insert episode %d: %w", r.Episode, err)
		}
	}
	return tx.Commit()
}

// #endregion record-episodes

// #region get-run
// GetRun retrieves a run by id.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, kind, policy, episodes, config_json, created_at FROM runs WHERE run_id = ?`, id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs with their row counts.
func (s *Store) ListRuns(limit int) ([]RunWithCounts, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.kind, r.policy, r.episodes, r.config_json, r.created_at,
		        (SELECT COUNT(*) FROM episode_metrics e WHERE e.run_id = r.run_id),
		        (SELECT COUNT(*) FROM step_log l WHERE l.run_id = r.run_id)
		 FROM runs r ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunWithCounts
	for rows.Next() {
		var rc RunWithCounts
		var policy, cfgJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&rc.RunID, &rc.Kind, &policy, &rc.Episodes, &cfgJSON, &createdStr,
			&rc.EpisodeRows, &rc.StepRows); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rc.Policy = policy.String
		rc.ConfigJSON = cfgJSON.String
		rc.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, rc)
	}
	return out, rows.Err()
}

// #endregion list-runs

// #region list-episodes
// ListEpisodes returns a run's episodes in insertion order.
func (s *Store) ListEpisodes(runID string) ([]rollout.EpisodeResult, error) {
	rows, err := s.db.Query(
		`SELECT policy, episode, sample_index, jammer_label, steps, avg_sinr, avg_ber, total_reward
		 FROM episode_metrics WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []rollout.EpisodeResult
	for rows.Next() {
		var r rollout.EpisodeResult
		var label int
		if err := rows.Scan(&r.Policy, &r.Episode, &r.SampleIndex, &label, &r.Steps,
			&r.AvgSINR, &r.AvgBER, &r.TotalReward); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.JammerLabel = channel.JammerLabel(label)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion list-episodes

// #region policy-summaries
// PolicySummaries aggregates a run's episodes per policy, in the order the
// policies were first recorded.
func (s *Store) PolicySummaries(runID string) ([]rollout.Summary, error) {
	rows, err := s.db.Query(
		`SELECT policy, COUNT(*), AVG(avg_sinr), AVG(avg_ber), AVG(total_reward),
		        AVG(total_reward * total_reward)
		 FROM episode_metrics WHERE run_id = ?
		 GROUP BY policy ORDER BY MIN(id)`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("policy summaries: %w", err)
	}
	defer rows.Close()

	var out []rollout.Summary
	for rows.Next() {
		var sum rollout.Summary
		var meanSq float64
		if err := rows.Scan(&sum.Policy, &sum.Episodes, &sum.AvgSINR, &sum.AvgBER, &sum.AvgReward, &meanSq); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if v := meanSq - sum.AvgReward*sum.AvgReward; v > 0 {
			sum.RewardStdDev = math.Sqrt(v)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion policy-summaries

// #region helpers
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var policy, cfgJSON sql.NullString
	var createdStr string
	if err := row.Scan(&run.RunID, &run.Kind, &policy, &run.Episodes, &cfgJSON, &createdStr); err != nil {
		return Run{}, err
	}
	run.Policy = policy.String
	run.ConfigJSON = cfgJSON.String
	run.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return run, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers

// #region vector-encoding
// EncodeVector packs v as little-endian float64s.
func EncodeVector(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// DecodeVector unpacks EncodeVector output. A trailing partial value is ignored.
func DecodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

// #endregion vector-encoding
