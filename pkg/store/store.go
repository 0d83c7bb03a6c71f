// Package store is the keyed durable store behind the pipeline:
// decision-engine runs, job executions and configuration records. The
// core treats it as a simple repository; engine internals live behind
// the Store interface.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("store: not found")

// DecisionEngineRun is one historical automated-decision run. Runs are
// created by the decision pipeline and annotated with outcomes once the
// underlying events resolve; a validated run is immutable.
type DecisionEngineRun struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ConfigVersion  int       `json:"config_version"`
	Sport          string    `json:"sport"`
	SelectedCount  int       `json:"selected_count"`
	Validated      bool      `json:"validated"`
	ActualATS      float64   `json:"actual_ats"`
	ActualNetUnits float64   `json:"actual_net_units"`
	MaxDrawdown    float64   `json:"max_drawdown"`
}

// RunFilter selects decision runs. Zero fields are not applied, except
// Validated which is always honored.
type RunFilter struct {
	ConfigVersion int
	Validated     bool
	Since         time.Time
	Limit         int
}

// JobExecution records one scheduled invocation of a pipeline entry
// point: what ran, for how long, and whether it succeeded.
type JobExecution struct {
	ID        string        `json:"id"`
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// ConfigRecord is one piece of named configuration.
type ConfigRecord struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the durable repository the pipeline reads and writes.
type Store interface {
	// CreateRun persists a decision run.
	CreateRun(ctx context.Context, run DecisionEngineRun) error

	// FindRuns returns runs matching the filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]DecisionEngineRun, error)

	// CreateJobExecution persists a job execution record.
	CreateJobExecution(ctx context.Context, exec JobExecution) error

	// RecentJobExecutions returns the latest executions, newest first.
	RecentJobExecutions(ctx context.Context, limit int) ([]JobExecution, error)

	// GetConfig returns a config record by key, or ErrNotFound.
	GetConfig(ctx context.Context, key string) (ConfigRecord, error)

	// SetConfig upserts a config record.
	SetConfig(ctx context.Context, key, value string) error

	// Close releases underlying resources.
	Close() error
}
