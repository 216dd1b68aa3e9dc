// Package status tracks per-input processing state across pipeline runs.
// It replaces ad-hoc spreadsheet bookkeeping with a SQLite store so that
// interrupted batches can be resumed and dataset statistics queried.
package status

import (
	"context"
	"errors"
	"time"
)

// State represents the processing state of a single input file.
type State string

const (
	// StatePending indicates the input has been registered but not started.
	StatePending State = "PENDING"
	// StateRunning indicates the input is currently being processed.
	StateRunning State = "RUNNING"
	// StateCompleted indicates the input finished successfully.
	StateCompleted State = "COMPLETED"
	// StateFailed indicates processing failed for this input.
	StateFailed State = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is
// attempted.
var ErrInvalidTransition = errors.New("status: invalid state transition")

// ErrNotFound is returned when no record exists for a file.
var ErrNotFound = errors.New("status: record not found")

// validTransitions defines which state transitions are allowed. Terminal
// states allow re-entry to RUNNING so a failed input can be reprocessed.
var validTransitions = map[State][]State{
	StatePending:   {StateRunning},
	StateRunning:   {StateCompleted, StateFailed},
	StateCompleted: {StateRunning},
	StateFailed:    {StateRunning},
}

// canTransition checks if a transition between two states is allowed.
func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Record is the processing status of one input file.
type Record struct {
	// BaseFilename is the input file name without extension, the key
	// every artifact of a run is derived from.
	BaseFilename string
	// RunID identifies the batch run that last touched this input.
	RunID string
	// State is the current processing state.
	State State
	// DurationSec is the probed duration of the input.
	DurationSec float64
	// SegmentCount is the number of planned segments.
	SegmentCount int
	// TranscribedCount is the number of chunks that survived
	// transcription and acceptance filtering.
	TranscribedCount int
	// Error holds the failure message when State is FAILED.
	Error string
	// CreatedAt is when the record was first written.
	CreatedAt time.Time
	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// Transition moves the record to a new state, stamping UpdatedAt.
func (r *Record) Transition(to State) error {
	if !canTransition(r.State, to) {
		return ErrInvalidTransition
	}
	r.State = to
	r.UpdatedAt = time.Now()
	return nil
}

// Summary aggregates the store for batch reporting.
type Summary struct {
	Total            int
	Completed        int
	Failed           int
	TotalDurationSec float64
	TotalSegments    int
	TotalTranscribed int
}

// Store defines the interface for status persistence.
type Store interface {
	// Upsert writes the record, inserting or replacing by BaseFilename.
	Upsert(ctx context.Context, rec *Record) error

	// Get retrieves a record by base filename.
	// Returns ErrNotFound when no record exists.
	Get(ctx context.Context, baseFilename string) (*Record, error)

	// List returns all records ordered by base filename.
	List(ctx context.Context) ([]*Record, error)

	// Summarize aggregates the store into dataset statistics.
	Summarize(ctx context.Context) (Summary, error)
}
