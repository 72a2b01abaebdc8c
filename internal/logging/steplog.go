package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/rollout"
	"github.com/antijam/mimo-controller/internal/runstore"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-step
// LogStep writes one step to the step_log table.
func LogStep(db *sql.DB, entry StepEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO step_log (run_id, policy, episode, step, action, observation, sinr, ber, reward, terminated, prediction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Policy,
		entry.Episode,
		entry.Step,
		entry.Action.String(),
		nullIfEmpty(entry.Observation),
		entry.SINR,
		entry.BER,
		entry.Reward,
		boolToInt(entry.Terminated),
		nullIfNegative(entry.Prediction),
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log step: %w", err)
	}
	return nil
}

// #endregion log-step

// #region observer
// StepLogger returns a rollout observer that logs every step under runID.
func StepLogger(db *sql.DB, runID string) rollout.Observer {
	return func(ev rollout.StepEvent) error {
		return LogStep(db, StepEntry{
			RunID:       runID,
			Policy:      ev.Policy,
			Episode:     ev.Episode,
			Step:        ev.Step,
			Action:      ev.Action,
			Observation: ev.Result.Observation,
			SINR:        ev.Result.Info.SINR,
			BER:         ev.Result.Info.BER,
			Reward:      ev.Result.Reward,
			Terminated:  ev.Result.Terminated,
			Prediction:  NoPrediction,
		})
	}
}

// #endregion observer

// #region list-steps
// ListSteps reads a run's step log. episode <= 0 returns every episode.
func ListSteps(db *sql.DB, runID string, episode int) ([]StepEntry, error) {
	query := `SELECT run_id, policy, episode, step, action, observation, sinr, ber, reward, terminated, prediction, created_at
		 FROM step_log WHERE run_id = ?`
	args := []any{runID}
	if episode > 0 {
		query += ` AND episode = ?`
		args = append(args, episode)
	}
	query += ` ORDER BY id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []StepEntry
	for rows.Next() {
		var e StepEntry
		var action, createdStr string
		var obs []byte
		var terminated int
		var prediction sql.NullInt64
		if err := rows.Scan(&e.RunID, &e.Policy, &e.Episode, &e.Step, &action, &obs,
			&e.SINR, &e.BER, &e.Reward, &terminated, &prediction, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if e.Action, err = channel.ParseAction(action); err != nil {
			return nil, fmt.Errorf("step %d: %w", e.Step, err)
		}
		if len(obs) > 0 {
			e.Observation = runstore.DecodeVector(obs)
		}
		e.Terminated = terminated != 0
		e.Prediction = NoPrediction
		if prediction.Valid {
			e.Prediction = int(prediction.Int64)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-steps

// #region helpers
func nullIfEmpty(v []float64) any {
	if len(v) == 0 {
		return nil
	}
	return runstore.EncodeVector(v)
}

func nullIfNegative(n int) any {
	if n < 0 {
		return nil
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
