package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/scheduler"
)

// ErrNotFound is returned when no entry exists for a handle id.
var ErrNotFound = errors.New("ledger entry not found")

// Entry is the recorded outcome of one handle.
type Entry struct {
	RunID         string
	HandleID      string
	ParentID      string
	Work          string
	State         string
	Error         string
	FailedService string
	Outputs       bog.Bag
	SubmittedAt   time.Time
	FinishedAt    time.Time
}

// Store persists ledger entries.
type Store interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, handleID string) (*Entry, error)
	// ListRun returns a run's entries in the order they were saved.
	ListRun(ctx context.Context, runID string) ([]*Entry, error)
	Close() error
}

// Recorder returns a scheduler.Recorder saving every outcome into s under
// runID.
func Recorder(s Store, runID string) scheduler.Recorder {
	return &recorder{store: s, runID: runID}
}

type recorder struct {
	store Store
	runID string
}

func (r *recorder) Record(ctx context.Context, o scheduler.Outcome) error {
	e := &Entry{
		RunID:         r.runID,
		HandleID:      o.HandleID,
		ParentID:      o.ParentID,
		Work:          o.Work,
		State:         o.State.String(),
		FailedService: o.FailedService,
		Outputs:       o.Outputs,
		SubmittedAt:   o.Submitted,
		FinishedAt:    o.Finished,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return r.store.Save(ctx, e)
}
