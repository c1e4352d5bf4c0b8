package core

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/scheduler"
)

// OnRunCopyBogKeys copies entries of the bag under new names. The result is
// returned through the dynamic slot, keyed by the new names.
func OnRunCopyBogKeys(ctx context.Context, in bog.Bag) ([]any, error) {
	task := scheduler.Current(ctx)
	if task == nil {
		return nil, errNoTask
	}
	logger := ctxlog.FromContext(ctx)

	raw, _ := in.Get("bog_key_map")
	mapping, _ := raw.(map[string]any)
	strictRaw, _ := in.Get("strict")
	strict, _ := strictRaw.(bool)

	bag := task.Bag()
	out := make(map[string]any, len(mapping))
	for _, from := range slices.Sorted(maps.Keys(mapping)) {
		to := fmt.Sprint(mapping[from])
		v, ok := bag.Get(from)
		if !ok {
			if strict {
				return nil, fmt.Errorf("strict is set and the bag has no entry for '%s': %w", from, bog.ErrMissingBogKey)
			}
			logger.Debug("No bag entry to copy, skipping.", "key", from)
			continue
		}
		logger.Debug("Copying bag entry.", "from", from, "to", to)
		out[to] = v
	}
	return []any{out}, nil
}
