package integration_tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/handlers"
	"github.com/vk/bogflow/internal/scheduler"
	"github.com/vk/bogflow/internal/testutil"
)

func services() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		Handlers: map[string]handlers.Func{
			"OnRunProduce": func(context.Context, bog.Bag) ([]any, error) { return []any{"made"}, nil },
			"OnRunConsume": func(_ context.Context, in bog.Bag) ([]any, error) {
				v, _ := in.Get("item")
				return []any{v}, nil
			},
			"OnRunExplode": func(context.Context, bog.Bag) ([]any, error) { panic("kaboom") },
		},
		Manifest: `
service "produce" {
  lifecycle {
    on_run = "OnRunProduce"
  }

  returns = ["product"]
}

service "consume" {
  lifecycle {
    on_run = "OnRunConsume"
  }

  input "item" {
    type = string
  }

  returns = ["consumed"]
}

service "explode" {
  lifecycle {
    on_run = "OnRunExplode"
  }
}
`,
	}
}

func TestErrorHandling_MissingArgumentInFirstElementIsSynchronous(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, nil, services())

	handle, err := h.Engine.Submit(h.Ctx, chain.Must(chain.New(chain.Sig("consume", nil), chain.Sig("produce", nil))), bog.Bag{})

	require.Nil(t, handle)
	var missing *chain.MissingArgumentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "consume", missing.Service)
	assert.Equal(t, "item", missing.Param)
}

func TestErrorHandling_MissingArgumentLaterFailsTheChain(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := testutil.NewHarness(t, nil, services())
	work := chain.Must(chain.New(chain.Sig("produce", nil), chain.Sig("consume", nil), chain.Sig("produce", nil)))

	// --- Act ---
	handle, err := h.Engine.Submit(h.Ctx, work, bog.Bag{})
	require.NoError(t, err)
	waitErr := scheduler.Wait(h.Ctx, handle, true)

	// --- Assert ---
	require.ErrorIs(t, waitErr, chain.ErrMissingRequiredArgument)
	var interrupted *scheduler.ChainInterrupted
	require.ErrorAs(t, waitErr, &interrupted)
	assert.Equal(t, "consume", interrupted.Service)
	assert.Equal(t, scheduler.Unsuccessful{Failed: []string{"consume"}, NotRun: []string{"produce"}}, handle.Unsuccessful())
}

func TestErrorHandling_RenameFeedsAndMissingRenameFails(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, nil, services())

	out, err := h.Engine.SubmitAndWait(h.Ctx,
		chain.Must(chain.New(chain.Sig("produce", nil), chain.Sig("consume", chain.Args{"item": "@product"}))),
		bog.Bag{}, scheduler.ExtractOptions{})
	require.NoError(t, err)
	consumed, _ := out.Get("consumed")
	assert.Equal(t, "made", consumed)

	_, err = h.Engine.Submit(h.Ctx, chain.Sig("consume", chain.Args{"item": "@nothing"}), bog.Bag{})
	require.ErrorIs(t, err, bog.ErrMissingBogKey)
}

func TestErrorHandling_PanicBecomesFailure(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, nil, services())

	_, err := h.Engine.SubmitAndWait(h.Ctx,
		chain.Must(chain.New(chain.Sig("produce", nil), chain.Sig("explode", nil))),
		bog.Bag{}, scheduler.ExtractOptions{})

	var panicErr *scheduler.PanicError
	require.True(t, errors.As(err, &panicErr), "got %v", err)
	assert.Equal(t, "explode", panicErr.Service)
	assert.Equal(t, "kaboom", panicErr.Value)
}
