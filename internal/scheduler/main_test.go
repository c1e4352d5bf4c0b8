package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/registry"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type bodyFunc = func(ctx context.Context, in bog.Bag) ([]any, error)

// svc builds a definition whose parameters are all required.
func svc(name string, params, returns []string, body bodyFunc) *registry.Definition {
	d := &registry.Definition{Name: name, Returns: returns, Body: body, Source: "test"}
	for _, p := range params {
		d.Params = append(d.Params, registry.Param{Name: p})
	}
	return d
}

func returning(values ...any) bodyFunc {
	return func(context.Context, bog.Bag) ([]any, error) { return values, nil }
}

// newTestEngine registers defs and returns an engine that is drained when the
// test ends.
func newTestEngine(t *testing.T, defs []*registry.Definition, opts ...Option) (*Engine, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	for _, d := range defs {
		require.NoError(t, reg.Register(d))
	}
	reg.Freeze()
	e := New(reg, opts...)
	t.Cleanup(e.Drain)
	return e, reg
}

type memRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *memRecorder) Record(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *memRecorder) byID() map[string]Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Outcome, len(r.outcomes))
	for _, o := range r.outcomes {
		out[o.HandleID] = o
	}
	return out
}

// gate blocks a body until released.
func gate(ch <-chan struct{}, values ...any) bodyFunc {
	return func(context.Context, bog.Bag) ([]any, error) {
		<-ch
		return values, nil
	}
}
