// Package store persists the per-run progress of conditional propagation:
// how many segments a run has produced, the engine's step counter, and the
// terminal outcome. The store is an optional ledger next to the on-disk
// trajectory parts: propagation works without one, and continuation never
// trusts a record over re-evaluating the recovered segments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run has no recorded progress.
var ErrNotFound = errors.New("not found")

// Run status values recorded at each progress save.
const (
	StatusStepping         = "stepping"
	StatusConditionMet     = "condition_met"
	StatusMaxStepsExceeded = "max_steps_exceeded"
)

// RunRecord is one progress observation of a propagation run.
type RunRecord struct {
	// RunName is the engine run name grouping the run's files.
	RunName string

	// Workdir is the working directory holding the run's segments.
	Workdir string

	// Segment counts segments produced so far, recovered ones included.
	Segment int

	// StepsDone is the engine's authoritative step counter.
	StepsDone int

	// Status is one of the Status constants.
	Status string

	// Condition is the index of the condition that became true, or -1.
	Condition int

	// UpdatedAt is when the record was saved.
	UpdatedAt time.Time
}

// Store persists run progress.
//
// Implementations must be safe for concurrent use: independent
// propagation runs may save progress at the same time.
type Store interface {
	// SaveProgress appends a progress record for rec.RunName.
	SaveProgress(ctx context.Context, rec RunRecord) error

	// LoadLatest returns the most recent record of a run, or ErrNotFound.
	LoadLatest(ctx context.Context, runName string) (RunRecord, error)

	// History returns all records of a run in save order.
	History(ctx context.Context, runName string) ([]RunRecord, error)

	// Close releases any underlying resources.
	Close() error
}
