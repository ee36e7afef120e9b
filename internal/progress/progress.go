// Package progress tracks background job state: a record per job id moving
// through queued → processing → one terminal state, with counters that are
// safe to poll while the owning runner mutates them.
package progress

import (
	"context"
	"errors"
)

// Job status values
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusEmpty      = "empty"
	StatusFailed     = "failed"
)

var (
	// ErrNotFound is returned when no record exists for a job id
	ErrNotFound = errors.New("job progress not found")

	// ErrDuplicateJob is returned when creating a record for an id that already exists
	ErrDuplicateJob = errors.New("job id already exists")

	// ErrInvalidTransition is returned when updating a record that reached a terminal state
	ErrInvalidTransition = errors.New("job is in a terminal state")
)

// IsTerminal reports whether a status permits no further transitions
func IsTerminal(status string) bool {
	switch status {
	case StatusComplete, StatusEmpty, StatusFailed:
		return true
	}
	return false
}

// Record is the pollable progress state of one job
type Record struct {
	JobID     string `json:"-"`
	Status    string `json:"status"`
	Percent   int    `json:"percent"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Reason    string `json:"reason,omitempty"`
}

// percent derives the completion percentage, 0 while total is unknown
func percent(processed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(processed * 100 / total)
}

// Patch is a partial update merged into a record. Nil fields are left
// untouched. Processed is monotonic: a value lower than the stored one is
// ignored (a stale write from the single owning runner, not an error).
type Patch struct {
	Status    *string
	Processed *int64
	Total     *int64
	Reason    *string
}

// Store is the progress persistence contract. Implementations must be safe
// for concurrent readers polling while the owning runner writes.
type Store interface {
	// Create initializes a record with status=queued, processed=0, total=0.
	// Returns ErrDuplicateJob if the id is taken; this is the job claim point.
	Create(ctx context.Context, jobID string) error

	// Update atomically merges patch fields. Returns ErrNotFound for an
	// unknown id and ErrInvalidTransition once the record is terminal.
	Update(ctx context.Context, jobID string, patch Patch) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, jobID string) (*Record, error)
}

// String returns a pointer to v, for building patches
func String(v string) *string { return &v }

// Int64 returns a pointer to v, for building patches
func Int64(v int64) *int64 { return &v }
