package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/registry"
)

type taskKey struct{}

// Task is the view a running body has of its own invocation. Bodies get it
// from their context with Current.
type Task struct {
	engine   *Engine
	handle   *Handle
	def      *registry.Definition
	inputs   bog.Bag
	bag      bog.Bag

	// mu guards finished and submitting. The body's invocation does not end
	// until every submission that passed begin has attached its handle.
	mu         sync.Mutex
	idle       *sync.Cond
	finished   bool
	submitting int
}

func newTask(e *Engine, h *Handle, def *registry.Definition, inputs, bag bog.Bag) *Task {
	t := &Task{engine: e, handle: h, def: def, inputs: inputs, bag: bag}
	t.idle = sync.NewCond(&t.mu)
	return t
}

func (t *Task) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return ErrTaskFinished
	}
	t.submitting++
	return nil
}

func (t *Task) end() {
	t.mu.Lock()
	t.submitting--
	t.mu.Unlock()
	t.idle.Broadcast()
}

// finish closes the task to new work and waits out submissions in progress.
func (t *Task) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	for t.submitting > 0 {
		t.idle.Wait()
	}
}

func withTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, t)
}

// Current returns the task of the body running with ctx, or nil outside a
// body.
func Current(ctx context.Context) *Task {
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}

// Service returns the name of the running service.
func (t *Task) Service() string { return t.def.Name }

// Definition returns the definition being executed.
func (t *Task) Definition() *registry.Definition { return t.def }

// Original returns the definition the running one overrides, or nil.
func (t *Task) Original() *registry.Definition { return t.def.Original() }

// Handle returns the handle the invocation belongs to.
func (t *Task) Handle() *Handle { return t.handle }

// Inputs returns the resolved inputs, the same bag the body was called with.
func (t *Task) Inputs() bog.Bag { return t.inputs }

// Bag returns the full bag visible to the invocation: everything inherited
// plus the signature's explicit bindings.
func (t *Task) Bag() bog.Bag { return t.bag }

// Enqueue submits child work. The child is attached to this invocation's
// handle, so waiting on that handle also waits for the child.
func (t *Task) Enqueue(ctx context.Context, w chain.Work, inherited bog.Bag) (*Handle, error) {
	if err := t.begin(); err != nil {
		return nil, err
	}
	defer t.end()
	return t.engine.submit(ctx, t.handle, w, inherited)
}

// EnqueueAndWait is Enqueue followed by Wait with raise and Extract.
func (t *Task) EnqueueAndWait(ctx context.Context, w chain.Work, inherited bog.Bag, opts ExtractOptions) (bog.Bag, error) {
	h, err := t.Enqueue(ctx, w, inherited)
	if err != nil {
		return bog.Bag{}, err
	}
	return waitAndExtract(ctx, h, opts)
}

// EnqueueParallel is SubmitParallel for child work. The invocation does not
// end before the last of works has been submitted.
func (t *Task) EnqueueParallel(ctx context.Context, works []chain.Work, inherited bog.Bag, limit int) ([]*Handle, error) {
	if err := t.begin(); err != nil {
		return nil, err
	}
	defer t.end()
	return t.engine.submitParallel(ctx, t.handle, works, inherited, limit)
}

// CallOriginal runs the definition this one overrides with everything the
// running invocation received (its bag and its resolved inputs) plus args,
// waits for it and returns its outputs.
func (t *Task) CallOriginal(ctx context.Context, args chain.Args) (bog.Bag, error) {
	orig := t.def.Original()
	if orig == nil {
		return bog.Bag{}, fmt.Errorf("%w: '%s' from %s", ErrNoOriginal, t.def.Name, t.def.Source)
	}
	return t.EnqueueAndWait(ctx, chain.SigOf(orig, args), t.bag.Merge(t.inputs), ExtractOptions{})
}
