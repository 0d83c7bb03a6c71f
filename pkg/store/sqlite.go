package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS decision_runs (
    id               TEXT PRIMARY KEY,
    ts               DATETIME NOT NULL,
    config_version   INTEGER  NOT NULL,
    sport            TEXT     NOT NULL DEFAULT '',
    selected_count   INTEGER  NOT NULL DEFAULT 0,
    validated        INTEGER  NOT NULL DEFAULT 0,
    actual_ats       REAL     NOT NULL DEFAULT 0,
    actual_net_units REAL     NOT NULL DEFAULT 0,
    max_drawdown     REAL     NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS job_executions (
    id         TEXT PRIMARY KEY,
    job        TEXT     NOT NULL,
    started_at DATETIME NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    success    INTEGER  NOT NULL DEFAULT 0,
    error      TEXT     NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS config_records (
    key        TEXT PRIMARY KEY,
    value      TEXT     NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_version_ts ON decision_runs(config_version, ts DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_started    ON job_executions(started_at DESC);
`

// retentionJobExecutions bounds the job history kept on disk.
const retentionJobExecutions = 30 * 24 * time.Hour

// SQLiteStore implements Store on a single-file SQLite database
// (pure Go driver, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, applies the
// schema and prunes stale job history. Use ":memory:" for an ephemeral
// store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionJobExecutions)
	// Best effort: pruning failure is not worth failing startup over.
	s.db.ExecContext(ctx, `DELETE FROM job_executions WHERE started_at < ?`, cutoff)
}

// CreateRun persists a decision run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run DecisionEngineRun) error {
	if run.ID == "" {
		return fmt.Errorf("store: run id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_runs
		  (id, ts, config_version, sport, selected_count, validated, actual_ats, actual_net_units, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Timestamp.UTC(), run.ConfigVersion, run.Sport, run.SelectedCount,
		boolToInt(run.Validated), run.ActualATS, run.ActualNetUnits, run.MaxDrawdown,
	)
	if err != nil {
		return fmt.Errorf("store: create run %s: %w", run.ID, err)
	}
	return nil
}

// FindRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) FindRuns(ctx context.Context, filter RunFilter) ([]DecisionEngineRun, error) {
	q := `SELECT id, ts, config_version, sport, selected_count, validated, actual_ats, actual_net_units, max_drawdown
	      FROM decision_runs WHERE validated = ?`
	args := []interface{}{boolToInt(filter.Validated)}

	if filter.ConfigVersion > 0 {
		q += ` AND config_version = ?`
		args = append(args, filter.ConfigVersion)
	}
	if !filter.Since.IsZero() {
		q += ` AND ts >= ?`
		args = append(args, filter.Since.UTC())
	}
	q += ` ORDER BY ts DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find runs: %w", err)
	}
	defer rows.Close()

	var runs []DecisionEngineRun
	for rows.Next() {
		var r DecisionEngineRun
		var validated int
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.ConfigVersion, &r.Sport, &r.SelectedCount,
			&validated, &r.ActualATS, &r.ActualNetUnits, &r.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.Validated = validated != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CreateJobExecution persists a job execution record.
func (s *SQLiteStore) CreateJobExecution(ctx context.Context, exec JobExecution) error {
	if exec.ID == "" || exec.Job == "" {
		return fmt.Errorf("store: job execution needs id and job name")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_executions (id, job, started_at, duration_ms, success, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.Job, exec.StartedAt.UTC(), exec.Duration.Milliseconds(),
		boolToInt(exec.Success), exec.Error,
	)
	if err != nil {
		return fmt.Errorf("store: create job execution %s: %w", exec.ID, err)
	}
	return nil
}

// RecentJobExecutions returns the latest executions, newest first.
func (s *SQLiteStore) RecentJobExecutions(ctx context.Context, limit int) ([]JobExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job, started_at, duration_ms, success, error
		FROM job_executions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent job executions: %w", err)
	}
	defer rows.Close()

	var execs []JobExecution
	for rows.Next() {
		var e JobExecution
		var durationMs int64
		var success int
		if err := rows.Scan(&e.ID, &e.Job, &e.StartedAt, &durationMs, &success, &e.Error); err != nil {
			return nil, fmt.Errorf("store: scan job execution: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Success = success != 0
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// GetConfig returns a config record by key.
func (s *SQLiteStore) GetConfig(ctx context.Context, key string) (ConfigRecord, error) {
	var rec ConfigRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM config_records WHERE key = ?`, key,
	).Scan(&rec.Key, &rec.Value, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return ConfigRecord{}, ErrNotFound
	}
	if err != nil {
		return ConfigRecord{}, fmt.Errorf("store: get config %q: %w", key, err)
	}
	return rec, nil
}

// SetConfig upserts a config record.
func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("store: config key is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: set config %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
