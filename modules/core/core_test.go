package core_test

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
	"github.com/vk/bogflow/modules/core"
)

var errBroken = errors.New("broken")

func fixtures() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		Handlers: map[string]handlers.Func{
			"OnRunHello": func(context.Context, bog.Bag) ([]any, error) { return []any{"hello"}, nil },
			"OnRunFail":  func(context.Context, bog.Bag) ([]any, error) { return nil, errBroken },
			"OnRunNop":   func(context.Context, bog.Bag) ([]any, error) { return nil, nil },
		},
		Manifest: `
service "hello" {
  lifecycle {
    on_run = "OnRunHello"
  }

  returns = ["greeting"]
}

service "fail" {
  lifecycle {
    on_run = "OnRunFail"
  }
}

service "nop" {
  lifecycle {
    on_run = "OnRunNop"
  }
}
`,
	}
}

func TestRootTask_RunsDelimitedChain(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := testutil.NewHarness(t, nil, &core.Module{}, fixtures())
	root := chain.Sig(core.RootTaskService, chain.Args{
		"chain":       "hello, CopyBogKeys",
		"bog_key_map": map[string]any{"greeting": "copied"},
	})

	// --- Act ---
	out, err := h.Engine.SubmitAndWait(h.Ctx, root, bog.Bag{}, scheduler.ExtractOptions{})

	// --- Assert ---
	require.NoError(t, err)
	results, _ := out.Get("chain_results")
	assert.Equal(t, map[string]any{"greeting": "hello", "copied": "hello"}, results)
	unsuccessful, _ := out.Get("unsuccessful_services")
	assert.Equal(t, map[string]any{}, unsuccessful)
	assert.Contains(t, h.Logs.String(), "Chain completed successfully")
}

func TestRootTask_ComposedChainAndInheritedBag(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := testutil.NewHarness(t, nil, &core.Module{}, fixtures())
	work := chain.Must(chain.New(
		chain.Sig("CopyBogKeys", chain.Args{"bog_key_map": map[string]any{"name": "who"}}),
	))
	root := chain.Sig(core.RootTaskService, chain.Args{"chain": work})

	// --- Act ---
	out, err := h.Engine.SubmitAndWait(h.Ctx, root, bog.New(map[string]any{"name": "ada"}), scheduler.ExtractOptions{})

	// --- Assert ---
	require.NoError(t, err)
	results, _ := out.Get("chain_results")
	assert.Equal(t, map[string]any{"who": "ada"}, results)
}

func TestRootTask_ReportsUnsuccessfulServices(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := testutil.NewHarness(t, nil, &core.Module{}, fixtures())
	root := chain.Sig(core.RootTaskService, chain.Args{"chain": []any{"hello", "fail", "nop"}})

	// --- Act ---
	vals, err := func() ([]any, error) {
		handle, err := h.Engine.Submit(h.Ctx, root, bog.Bag{})
		if err != nil {
			return nil, err
		}
		if err := scheduler.Wait(h.Ctx, handle, true); err != nil {
			return nil, err
		}
		return scheduler.ExtractKeys(handle, scheduler.ExtractOptions{}, "chain_results", "unsuccessful_services")
	}()

	// --- Assert ---
	require.NoError(t, err, "the root itself succeeds")
	assert.Equal(t, map[string]any{}, vals[0])
	assert.Equal(t, map[string]any{
		"failed":  []string{"fail"},
		"not_run": []string{"nop"},
	}, vals[1])
	assert.Contains(t, h.Logs.String(), "Chain did not complete")
}

func TestRootTask_RejectsBadChain(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		chain any
	}{
		{name: "empty string", chain: " , "},
		{name: "not a name", chain: []any{"hello", 3}},
		{name: "unsupported", chain: 42},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := testutil.NewHarness(t, nil, &core.Module{}, fixtures())

			_, err := h.Engine.SubmitAndWait(h.Ctx, chain.Sig(core.RootTaskService, chain.Args{"chain": tc.chain}), bog.Bag{}, scheduler.ExtractOptions{})

			require.ErrorIs(t, err, chain.ErrInvalidChain)
			var ci *scheduler.ChainInterrupted
			require.ErrorAs(t, err, &ci)
			assert.Equal(t, core.RootTaskService, ci.Service)
		})
	}
}

func TestCopyBogKeys(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    chain.Args
		want    map[string]any
		wantErr error
	}{
		{
			name: "copies present keys",
			args: chain.Args{"bog_key_map": map[string]any{"a": "x", "b": "y"}},
			want: map[string]any{"a": int64(1), "b": "two", "x": int64(1), "y": "two"},
		},
		{
			name: "skips missing keys",
			args: chain.Args{"bog_key_map": map[string]any{"a": "x", "missing": "z"}},
			want: map[string]any{"a": int64(1), "b": "two", "x": int64(1)},
		},
		{
			name:    "strict fails on missing keys",
			args:    chain.Args{"bog_key_map": map[string]any{"missing": "z"}, "strict": true},
			wantErr: bog.ErrMissingBogKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			h := testutil.NewHarness(t, nil, &core.Module{})
			inherited := bog.New(map[string]any{"a": int64(1), "b": "two"})
			work := chain.Sig("CopyBogKeys", tc.args)

			// --- Act ---
			handle, err := h.Engine.Submit(h.Ctx, work, inherited)
			require.NoError(t, err)
			err = scheduler.Wait(h.Ctx, handle, true)

			// --- Assert ---
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, "CopyBogKeys", handle.FailedService())
				return
			}
			require.NoError(t, err)
			all, err := scheduler.Extract(handle, scheduler.ExtractOptions{IncludeInputs: true})
			require.NoError(t, err)
			got := all.Without("bog_key_map", "strict").Map()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCopyBogKeys_OutsideScheduler(t *testing.T) {
	t.Parallel()

	_, err := core.OnRunCopyBogKeys(context.Background(), bog.Bag{})

	require.Error(t, err)
}
