package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/scheduler"
)

// errNoTask is returned when a body is invoked outside the scheduler.
var errNoTask = errors.New("not running inside the scheduler")

// OnRunRootTask runs the chain given as its `chain` input as a child, with
// the whole bag it received injected in front. It waits without raising and
// returns the chain's results, merged with those of its descendants, and its
// unsuccessful services.
func OnRunRootTask(ctx context.Context, in bog.Bag) ([]any, error) {
	task := scheduler.Current(ctx)
	if task == nil {
		return nil, errNoTask
	}
	logger := ctxlog.FromContext(ctx)

	raw, _ := in.Get("chain")
	work, err := toWork(raw)
	if err != nil {
		return nil, err
	}
	c, err := chain.New(chain.InjectBag(task.Bag()), work)
	if err != nil {
		return nil, err
	}

	logger.Info("▶️ Starting chain.", "chain", work)
	h, err := task.Enqueue(ctx, c, bog.Bag{})
	if err != nil {
		return nil, err
	}
	if err := scheduler.Wait(ctx, h, false); err != nil {
		return nil, err
	}

	results := map[string]any{}
	if out, err := scheduler.Extract(h, scheduler.ExtractOptions{MergeChildren: true}); err == nil {
		results = out.Map()
	}
	u := h.Unsuccessful()
	if u.Empty() {
		logger.Info("✅ Chain completed successfully.", "chain", work)
	} else {
		logger.Warn("❌ Chain did not complete.", "chain", work, "failed", u.Failed, "not_run", u.NotRun, "error", h.Err())
	}
	return []any{results, unsuccessfulMap(u)}, nil
}

func toWork(v any) (chain.Work, error) {
	switch v := v.(type) {
	case chain.Work:
		return v, nil
	case string:
		names := chain.SplitList(v)
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: chain '%s' names no services", chain.ErrInvalidChain, v)
		}
		return chain.FromList(names, nil)
	case []any:
		names := make([]string, 0, len(v))
		for _, n := range v {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("%w: chain entry %v is not a service name", chain.ErrInvalidChain, n)
			}
			names = append(names, s)
		}
		return chain.FromList(names, nil)
	default:
		return nil, fmt.Errorf("%w: unsupported chain value %T", chain.ErrInvalidChain, v)
	}
}

// unsuccessfulMap is the bag form of scheduler.Unsuccessful.
func unsuccessfulMap(u scheduler.Unsuccessful) map[string]any {
	out := map[string]any{}
	if len(u.Failed) > 0 {
		out["failed"] = u.Failed
	}
	if len(u.NotRun) > 0 {
		out["not_run"] = u.NotRun
	}
	return out
}
