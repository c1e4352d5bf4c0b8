package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/metrics"
	"github.com/vk/bogflow/internal/registry"
)

// Engine submits work and manages handles.
type Engine struct {
	reg          chain.Resolver
	metrics      *metrics.Collector
	recorder     Recorder
	strict       bool
	defaultLimit int

	seq atomic.Uint64
	wg  sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics reports submissions and invocations to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithRecorder hands every terminal outcome to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithStrictSerialization fails invocations whose inputs or outputs cannot be
// encoded, as they would be when crossing a process boundary.
func WithStrictSerialization() Option {
	return func(e *Engine) { e.strict = true }
}

// WithDefaultLimit sets the cap SubmitParallel uses when called with a
// non-positive limit.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) { e.defaultLimit = n }
}

// New creates an engine resolving services through reg.
func New(reg chain.Resolver, opts ...Option) *Engine {
	e := &Engine{reg: reg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit starts w with inherited as its initial bag and returns a pending
// handle. Malformed work, unknown services and resolution errors of the first
// signature are returned directly; nothing is started in that case.
func (e *Engine) Submit(ctx context.Context, w chain.Work, inherited bog.Bag) (*Handle, error) {
	return e.submit(ctx, nil, w, inherited)
}

// SubmitAndWait submits w, waits for it and its descendants, and extracts
// its outputs. A failure is returned as a *ChainInterrupted.
func (e *Engine) SubmitAndWait(ctx context.Context, w chain.Work, inherited bog.Bag, opts ExtractOptions) (bog.Bag, error) {
	return e.submitAndWait(ctx, nil, w, inherited, opts)
}

// Drain blocks until every piece of work submitted to the engine has finished.
func (e *Engine) Drain() { e.wg.Wait() }

func (e *Engine) submitAndWait(ctx context.Context, parent *Handle, w chain.Work, inherited bog.Bag, opts ExtractOptions) (bog.Bag, error) {
	h, err := e.submit(ctx, parent, w, inherited)
	if err != nil {
		return bog.Bag{}, err
	}
	return waitAndExtract(ctx, h, opts)
}

func waitAndExtract(ctx context.Context, h *Handle, opts ExtractOptions) (bog.Bag, error) {
	if err := Wait(ctx, h, true); err != nil {
		return bog.Bag{}, err
	}
	return Extract(h, opts)
}

// step is one element of submitted work with its definition resolved.
type step struct {
	inject bog.Bag
	sig    *chain.Signature
	def    *registry.Definition
}

// resolution is a signature's resolved inputs and explicit bindings.
type resolution struct {
	inputs bog.Bag
	bound  bog.Bag
}

func (e *Engine) plan(w chain.Work) ([]step, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nothing to submit", chain.ErrInvalidChain)
	}
	c, err := chain.New(w)
	if err != nil {
		return nil, err
	}
	elems := c.Elements()
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: nothing to submit", chain.ErrInvalidChain)
	}

	steps := make([]step, 0, len(elems))
	for _, el := range elems {
		switch el := el.(type) {
		case chain.InjectArgs:
			steps = append(steps, step{inject: el.Values()})
		case *chain.Signature:
			def := el.Definition()
			if def == nil {
				if def, err = e.reg.Resolve(el.Service()); err != nil {
					return nil, err
				}
			}
			steps = append(steps, step{sig: el, def: def})
		}
	}
	return steps, nil
}

func (e *Engine) submit(ctx context.Context, parent *Handle, w chain.Work, inherited bog.Bag) (*Handle, error) {
	steps, err := e.plan(w)
	if err != nil {
		return nil, err
	}

	// The first signature sees inherited plus any leading injects, so its
	// resolution can be checked before anything starts.
	var first *resolution
	bag := inherited
	for _, st := range steps {
		if st.sig == nil {
			bag = bag.Merge(st.inject)
			continue
		}
		inputs, bound, err := chain.Resolve(st.def, st.sig, bag)
		if err != nil {
			return nil, err
		}
		first = &resolution{inputs: inputs, bound: bound}
		break
	}

	label := chain.Label(w)
	h := newHandle(label, parent)
	if parent != nil {
		parent.addChild(h)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Work submitted.", "work", label, "handle", h.id, "parent", parentID(parent))
	e.metrics.Submitted(label)

	e.wg.Add(1)
	go e.run(context.WithoutCancel(ctx), h, steps, inherited, first)
	return h, nil
}

// run executes the steps in order and completes h.
func (e *Engine) run(ctx context.Context, h *Handle, steps []step, inherited bog.Bag, first *resolution) {
	defer e.wg.Done()
	defer e.metrics.HandleDone()

	bag := inherited
	var r result
	usedFirst := false

	for i, st := range steps {
		if st.sig == nil {
			bag = bag.Merge(st.inject)
			continue
		}

		var res resolution
		var err error
		if !usedFirst && first != nil {
			res, usedFirst = *first, true
		} else {
			res.inputs, res.bound, err = chain.Resolve(st.def, st.sig, bag)
		}

		var out bog.Bag
		if err == nil {
			out, err = e.invoke(ctx, h, st.def, res.inputs, bag.Merge(res.bound))
		}
		if err != nil {
			r.err = err
			r.failedService = st.def.Name
			r.unsuccessful = Unsuccessful{Failed: []string{st.def.Name}, NotRun: remaining(steps[i+1:])}
			break
		}

		bag = bag.Merge(res.bound).Merge(out)
		r.outputs = r.outputs.Merge(out)
	}
	r.bag = bag

	seq := e.seq.Add(1)
	e.record(ctx, h, r)
	h.complete(r, seq)

	logger := ctxlog.FromContext(ctx)
	if r.err != nil {
		logger.Warn("Work failed.", "work", h.work, "handle", h.id, "service", r.failedService, "error", r.err)
		return
	}
	logger.Debug("Work succeeded.", "work", h.work, "handle", h.id, "outputs", r.outputs.Keys())
}

// invoke runs one body with a task in its context and maps its returns.
func (e *Engine) invoke(ctx context.Context, h *Handle, def *registry.Definition, inputs, bag bog.Bag) (out bog.Bag, err error) {
	task := newTask(e, h, def, inputs, bag)
	ctx = withTask(ctxlog.With(ctx, "service", def.Name, "handle", h.id), task)
	logger := ctxlog.FromContext(ctx)

	start := time.Now()
	defer func() {
		task.finish()
		state := Success
		if err != nil {
			state = Failure
		}
		e.metrics.Invoked(def.Name, state.String(), time.Since(start))
		logger.Debug("Service finished.", "state", state, "duration", time.Since(start))
	}()

	if e.strict {
		if _, err := bog.Encode(inputs); err != nil {
			return bog.Bag{}, fmt.Errorf("%w: inputs of service '%s': %w", ErrNotSerializable, def.Name, err)
		}
	}

	logger.Debug("Service started.", "inputs", inputs.Keys(), "depth", def.Depth())
	values, err := callBody(ctx, def, inputs)
	if err != nil {
		return bog.Bag{}, err
	}
	out, err = def.MapReturns(values)
	if err != nil {
		return bog.Bag{}, err
	}

	if e.strict {
		if _, err := bog.Encode(out); err != nil {
			return bog.Bag{}, fmt.Errorf("%w: outputs of service '%s': %w", ErrNotSerializable, def.Name, err)
		}
	}
	return out, nil
}

func callBody(ctx context.Context, def *registry.Definition, inputs bog.Bag) (values []any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Service: def.Name, Value: rec, Stack: debug.Stack()}
		}
	}()
	return def.Body(ctx, inputs)
}

// failedHandle returns an already terminal handle for work that never ran.
func (e *Engine) failedHandle(ctx context.Context, parent *Handle, w chain.Work, cause error) *Handle {
	label := "invalid"
	var notRun []string
	if w != nil {
		label = chain.Label(w)
		if c, err := chain.New(w); err == nil {
			for _, s := range c.Signatures() {
				notRun = append(notRun, s.Service())
			}
		}
	}
	h := newHandle(label, parent)
	r := result{err: cause, unsuccessful: Unsuccessful{NotRun: notRun}}
	e.record(ctx, h, r)
	h.complete(r, e.seq.Add(1))
	return h
}

func (e *Engine) record(ctx context.Context, h *Handle, r result) {
	if e.recorder == nil {
		return
	}
	state := Success
	if r.err != nil {
		state = Failure
	}
	o := Outcome{
		HandleID:      h.id,
		ParentID:      parentID(h.parent),
		Work:          h.work,
		State:         state,
		Err:           r.err,
		FailedService: r.failedService,
		Outputs:       r.outputs,
		Submitted:     h.submitted,
		Finished:      time.Now(),
	}
	if err := e.recorder.Record(ctx, o); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to record outcome.", "handle", h.id, "error", err)
	}
}

func remaining(steps []step) []string {
	var out []string
	for _, st := range steps {
		if st.sig != nil {
			out = append(out, st.def.Name)
		}
	}
	return out
}

func parentID(p *Handle) string {
	if p == nil {
		return ""
	}
	return p.id
}
