package scheduler

import (
	"context"
	"time"

	"github.com/vk/bogflow/internal/bog"
)

// Outcome is what a handle recorded when it became terminal.
type Outcome struct {
	HandleID      string
	ParentID      string
	Work          string
	State         State
	Err           error
	FailedService string
	Outputs       bog.Bag
	Submitted     time.Time
	Finished      time.Time
}

// Recorder persists outcomes. Record is called from the goroutine that ran
// the work, before the handle is marked terminal.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}
