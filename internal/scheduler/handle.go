package scheduler

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/bogflow/internal/bog"
)

// State is the lifecycle state of a handle.
type State int32

const (
	Pending State = iota
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Unsuccessful lists the services of a work that failed or never ran.
type Unsuccessful struct {
	Failed []string
	NotRun []string
}

// Empty reports whether every service of the work ran successfully.
func (u Unsuccessful) Empty() bool { return len(u.Failed) == 0 && len(u.NotRun) == 0 }

// Handle refers to submitted work and its eventual outcome. All methods are
// safe for concurrent use.
type Handle struct {
	id        string
	work      string
	parent    *Handle
	submitted time.Time
	done      chan struct{}
	state     atomic.Int32

	// Written once, before state leaves Pending and done is closed.
	outputs       bog.Bag
	bag           bog.Bag
	err           error
	failedService string
	unsuccessful  Unsuccessful
	finished      time.Time
	seq           uint64

	mu       sync.Mutex
	children []*Handle
}

func newHandle(work string, parent *Handle) *Handle {
	return &Handle{
		id:        uuid.NewString(),
		work:      work,
		parent:    parent,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

// ID returns the handle's unique id.
func (h *Handle) ID() string { return h.id }

// Work returns the label of the submitted work, its services joined by "|".
func (h *Handle) Work() string { return h.work }

// Parent returns the handle of the invocation that enqueued this one, or nil.
func (h *Handle) Parent() *Handle { return h.parent }

// State returns the current state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed once the handle is terminal.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the failure cause of a FAILURE handle, nil otherwise.
func (h *Handle) Err() error {
	if h.State() != Failure {
		return nil
	}
	return h.err
}

// FailedService names the element whose failure ended the work.
func (h *Handle) FailedService() string {
	if h.State() != Failure {
		return ""
	}
	return h.failedService
}

// Unsuccessful reports the work's failed and not-run services. It is empty
// while the handle is pending.
func (h *Handle) Unsuccessful() Unsuccessful {
	if h.State() == Pending {
		return Unsuccessful{}
	}
	return h.unsuccessful
}

// Submitted returns when the work was submitted.
func (h *Handle) Submitted() time.Time { return h.submitted }

// Finished returns when the handle became terminal, or the zero time.
func (h *Handle) Finished() time.Time {
	if h.State() == Pending {
		return time.Time{}
	}
	return h.finished
}

// Children returns the handles enqueued by this handle's bodies so far.
func (h *Handle) Children() []*Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.children)
}

func (h *Handle) addChild(c *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.children = append(h.children, c)
}

// result is everything a handle records when it becomes terminal.
type result struct {
	outputs       bog.Bag
	bag           bog.Bag
	err           error
	failedService string
	unsuccessful  Unsuccessful
}

func (h *Handle) complete(r result, seq uint64) {
	h.outputs = r.outputs
	h.bag = r.bag
	h.err = r.err
	h.failedService = r.failedService
	h.unsuccessful = r.unsuccessful
	h.finished = time.Now()
	h.seq = seq

	state := Success
	if r.err != nil {
		state = Failure
	}
	if !h.state.CompareAndSwap(int32(Pending), int32(state)) {
		panic("scheduler: handle " + h.id + " completed twice")
	}
	close(h.done)
}

func (h *Handle) interrupted() *ChainInterrupted {
	return &ChainInterrupted{HandleID: h.id, Work: h.work, Service: h.failedService, Cause: h.err}
}
