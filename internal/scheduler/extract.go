package scheduler

import (
	"fmt"
	"slices"

	"github.com/vk/bogflow/internal/bog"
)

// ExtractOptions tune what Extract returns. The zero value returns only the
// outputs the work itself produced.
type ExtractOptions struct {
	// MergeChildren unions in the outputs of every successful descendant.
	// Outputs are applied in completion order, the handle itself included,
	// so the last to finish wins a collision.
	MergeChildren bool
	// IncludeInputs returns the full final bag, including inherited and
	// explicitly bound values, instead of only the outputs.
	IncludeInputs bool
}

// Extract returns the outputs of a SUCCESS handle. Any other state yields
// ErrIncompleteChain.
func Extract(h *Handle, opts ExtractOptions) (bog.Bag, error) {
	if st := h.State(); st != Success {
		return bog.Bag{}, fmt.Errorf("%w: handle %s (%s) is %s", ErrIncompleteChain, h.id, h.work, st)
	}
	out := h.outputs
	if opts.IncludeInputs {
		out = h.bag
	}
	if opts.MergeChildren {
		for _, d := range byCompletion(append(completedDescendants(h), h)) {
			out = out.Merge(d.outputs)
		}
	}
	return out, nil
}

// ExtractKeys returns the values of keys from a SUCCESS handle, in order. A
// key the outputs lack yields bog.ErrMissingBogKey.
func ExtractKeys(h *Handle, opts ExtractOptions, keys ...string) ([]any, error) {
	b, err := Extract(h, opts)
	if err != nil {
		return nil, err
	}
	return b.Values(keys...)
}

// completedDescendants returns the successful descendants of h.
func completedDescendants(h *Handle) []*Handle {
	var out []*Handle
	var walk func(*Handle)
	walk = func(p *Handle) {
		for _, c := range p.Children() {
			if c.State() == Success {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(h)
	return out
}

func byCompletion(hs []*Handle) []*Handle {
	slices.SortFunc(hs, func(a, b *Handle) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return hs
}
