package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/registry"
)

func TestCurrent_NilOutsideBody(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Current(context.Background()))
}

func TestTask_WaitCoversDescendants(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	release := make(chan struct{})
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("child", nil, []string{"c"}, gate(release, "child-value")),
		svc("parent", nil, []string{"p"}, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			if _, err := Current(ctx).Enqueue(ctx, chain.Sig("child", nil), bog.Bag{}); err != nil {
				return nil, err
			}
			return []any{"parent-value"}, nil
		}),
	})
	h, err := e.Submit(context.Background(), chain.Sig("parent", nil), bog.Bag{})
	require.NoError(t, err)

	// --- Act ---
	waited := make(chan error, 1)
	go func() { waited <- Wait(context.Background(), h, true) }()

	// --- Assert ---
	select {
	case err := <-waited:
		t.Fatalf("Wait returned before the child finished: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-waited)

	require.Len(t, h.Children(), 1)
	assert.Equal(t, Success, h.Children()[0].State())
	assert.Same(t, h, h.Children()[0].Parent())

	own, err := Extract(h, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, own.Keys())

	merged, err := Extract(h, ExtractOptions{MergeChildren: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"p": "parent-value", "c": "child-value"}, merged.Map())
}

// slowResolver delays resolving one service name and closes entered when
// that resolution starts.
type slowResolver struct {
	*registry.Registry
	name    string
	delay   time.Duration
	entered chan struct{}
	once    sync.Once
}

func (r *slowResolver) Resolve(name string) (*registry.Definition, error) {
	if name == r.name {
		r.once.Do(func() { close(r.entered) })
		time.Sleep(r.delay)
	}
	return r.Registry.Resolve(name)
}

func TestTask_WaitCoversChildEnqueuedAsBodyReturns(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg := registry.New()
	resolver := &slowResolver{Registry: reg, name: "child", delay: 100 * time.Millisecond, entered: make(chan struct{})}
	var childRan atomic.Bool
	require.NoError(t, reg.Register(svc("child", nil, []string{"c"}, func(context.Context, bog.Bag) ([]any, error) {
		childRan.Store(true)
		return []any{"child-value"}, nil
	})))
	enqueued := make(chan error, 1)
	require.NoError(t, reg.Register(svc("parent", nil, nil, func(ctx context.Context, _ bog.Bag) ([]any, error) {
		task := Current(ctx)
		go func() {
			_, err := task.Enqueue(ctx, chain.Sig("child", nil), bog.Bag{})
			enqueued <- err
		}()
		<-resolver.entered
		return nil, nil
	})))
	reg.Freeze()
	e := New(resolver)
	t.Cleanup(e.Drain)

	h, err := e.Submit(context.Background(), chain.Sig("parent", nil), bog.Bag{})
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, Wait(context.Background(), h, true))

	// --- Assert ---
	require.NoError(t, <-enqueued)
	require.Len(t, h.Children(), 1)
	assert.True(t, childRan.Load())
	assert.Equal(t, Success, h.Children()[0].State())

	merged, err := Extract(h, ExtractOptions{MergeChildren: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"c": "child-value"}, merged.Map())
}

func TestExtract_MergeChildrenLastCompletedWins(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	release := make(chan struct{})
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("late", nil, []string{"x"}, gate(release, "late-child")),
		svc("early", nil, []string{"x"}, returning("early-child")),
		svc("outlived", nil, []string{"x"}, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			if _, err := Current(ctx).Enqueue(ctx, chain.Sig("late", nil), bog.Bag{}); err != nil {
				return nil, err
			}
			return []any{"parent"}, nil
		}),
		svc("outlasting", nil, []string{"x"}, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			if _, err := Current(ctx).EnqueueAndWait(ctx, chain.Sig("early", nil), bog.Bag{}, ExtractOptions{}); err != nil {
				return nil, err
			}
			return []any{"parent"}, nil
		}),
	})
	outlived, err := e.Submit(context.Background(), chain.Sig("outlived", nil), bog.Bag{})
	require.NoError(t, err)
	outlasting, err := e.Submit(context.Background(), chain.Sig("outlasting", nil), bog.Bag{})
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, Wait(context.Background(), outlasting, true))
	require.Eventually(t, func() bool { return outlived.State() == Success }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, Wait(context.Background(), outlived, true))

	// --- Assert ---
	got, err := ExtractKeys(outlived, ExtractOptions{MergeChildren: true}, "x")
	require.NoError(t, err)
	assert.Equal(t, []any{"late-child"}, got)

	got, err = ExtractKeys(outlasting, ExtractOptions{MergeChildren: true}, "x")
	require.NoError(t, err)
	assert.Equal(t, []any{"parent"}, got)
}

func TestTask_ChildFailureIsNotRaisedOnParent(t *testing.T) {
	t.Parallel()
	boom := errors.New("child broke")
	var child *Handle
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("child", nil, nil, failing(boom)),
		svc("parent", nil, nil, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			var err error
			child, err = Current(ctx).Enqueue(ctx, chain.Sig("child", nil), bog.Bag{})
			return nil, err
		}),
	})

	h, err := e.Submit(context.Background(), chain.Sig("parent", nil), bog.Bag{})
	require.NoError(t, err)

	require.NoError(t, Wait(context.Background(), h, true))
	assert.Equal(t, Success, h.State())
	assert.Equal(t, Failure, child.State())
	assert.ErrorIs(t, Wait(context.Background(), child, true), boom)
}

func TestTask_EnqueueAndWaitReturnsChildOutputs(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("double", []string{"n"}, []string{"n2"}, func(_ context.Context, in bog.Bag) ([]any, error) {
			n, _ := in.Get("n")
			return []any{n.(int) * 2}, nil
		}),
		svc("fanout", []string{"n"}, []string{"sum"}, func(ctx context.Context, in bog.Bag) ([]any, error) {
			task := Current(ctx)
			out, err := task.EnqueueAndWait(ctx, chain.Sig("double", nil), task.Inputs(), ExtractOptions{})
			if err != nil {
				return nil, err
			}
			n2, _ := out.Get("n2")
			return []any{n2}, nil
		}),
	})

	out, err := e.SubmitAndWait(context.Background(), chain.Sig("fanout", chain.Args{"n": 21}), bog.Bag{}, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sum": 42}, out.Map())
}

func TestTask_EnqueueParallelFromBody(t *testing.T) {
	t.Parallel()
	probe := &concurrencyProbe{}
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("idx", []string{"i"}, []string{"out"}, probe.body),
		svc("batch", nil, []string{"count"}, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			works := make([]chain.Work, 5)
			for i := range works {
				works[i] = chain.Sig("idx", chain.Args{"i": i})
			}
			hs, err := Current(ctx).EnqueueParallel(ctx, works, bog.Bag{}, 2)
			if err != nil {
				return nil, err
			}
			return []any{len(hs)}, WaitAll(ctx, hs, true)
		}),
	})

	h, err := e.Submit(context.Background(), chain.Sig("batch", nil), bog.Bag{})
	require.NoError(t, err)
	require.NoError(t, Wait(context.Background(), h, true))

	assert.Len(t, h.Children(), 5)
	got, err := ExtractKeys(h, ExtractOptions{}, "count")
	require.NoError(t, err)
	assert.Equal(t, []any{5}, got)
}

func TestTask_CallOriginalDelegatesDownTheStack(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base := svc("greet", []string{"name"}, []string{"greeting"}, func(_ context.Context, in bog.Bag) ([]any, error) {
		name, _ := in.Get("name")
		return []any{fmt.Sprintf("hello %v", name)}, nil
	})
	override := svc("greet", []string{"name"}, []string{"greeting", registry.Dynamic}, func(ctx context.Context, in bog.Bag) ([]any, error) {
		task := Current(ctx)
		out, err := task.CallOriginal(ctx, nil)
		if err != nil {
			return nil, err
		}
		g, _ := out.Get("greeting")
		return []any{fmt.Sprintf("%v!", g), map[string]any{"depth": task.Definition().Depth()}}, nil
	})
	override.Source = "plugin"
	e, reg := newTestEngine(t, []*registry.Definition{base, override})

	// --- Act ---
	out, err := e.SubmitAndWait(context.Background(), chain.Sig("greet", chain.Args{"name": "bog"}), bog.Bag{}, ExtractOptions{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"greeting": "hello bog!", "depth": 1}, out.Map())
	assert.Len(t, reg.Stack("greet"), 2)
}

func TestTask_CallOriginalWithoutOriginal(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("alone", nil, nil, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			_, err := Current(ctx).CallOriginal(ctx, nil)
			return nil, err
		}),
	})

	_, err := e.SubmitAndWait(context.Background(), chain.Sig("alone", nil), bog.Bag{}, ExtractOptions{})

	assert.ErrorIs(t, err, ErrNoOriginal)
}

func TestTask_FinishedTaskRejectsNewWork(t *testing.T) {
	t.Parallel()
	var saved *Task
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("keep", nil, nil, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			saved = Current(ctx)
			return nil, nil
		}),
	})

	_, err := e.SubmitAndWait(context.Background(), chain.Sig("keep", nil), bog.Bag{}, ExtractOptions{})
	require.NoError(t, err)

	_, err = saved.Enqueue(context.Background(), chain.Sig("keep", nil), bog.Bag{})
	assert.ErrorIs(t, err, ErrTaskFinished)
	_, err = saved.EnqueueAndWait(context.Background(), chain.Sig("keep", nil), bog.Bag{}, ExtractOptions{})
	assert.ErrorIs(t, err, ErrTaskFinished)
	_, err = saved.EnqueueParallel(context.Background(), []chain.Work{chain.Sig("keep", nil)}, bog.Bag{}, 1)
	assert.ErrorIs(t, err, ErrTaskFinished)
}

func TestTask_ExposesInputsAndBag(t *testing.T) {
	t.Parallel()
	var inputs, full bog.Bag
	e, _ := newTestEngine(t, []*registry.Definition{
		svc("peek", []string{"a"}, nil, func(ctx context.Context, _ bog.Bag) ([]any, error) {
			task := Current(ctx)
			inputs, full = task.Inputs(), task.Bag()
			return nil, nil
		}),
	})
	inherited := bog.New(map[string]any{"a": 1, "other": "x"})

	_, err := e.SubmitAndWait(context.Background(), chain.Sig("peek", chain.Args{"extra": true}), inherited, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, inputs.Map())
	assert.Equal(t, map[string]any{"a": 1, "other": "x", "extra": true}, full.Map())
}
