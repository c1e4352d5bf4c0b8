package scheduler

import (
	"context"
	"fmt"
	"iter"
	"slices"
)

// Wait blocks until h and every work it spawned are terminal. When h failed
// and raise is set, the failure is returned as a *ChainInterrupted carrying
// the original error.
func Wait(ctx context.Context, h *Handle, raise bool) error {
	if err := waitTree(ctx, h); err != nil {
		return err
	}
	if raise && h.State() == Failure {
		return h.interrupted()
	}
	return nil
}

// WaitAll waits for every handle and its descendants before reporting
// anything. With raise set, one failure is returned as a *ChainInterrupted
// and several as a *MultipleFailures, in input order.
func WaitAll(ctx context.Context, handles []*Handle, raise bool) error {
	for _, h := range handles {
		if err := waitTree(ctx, h); err != nil {
			return err
		}
	}
	if !raise {
		return nil
	}

	var failures []*ChainInterrupted
	for _, h := range handles {
		if h.State() == Failure {
			failures = append(failures, h.interrupted())
		}
	}
	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	default:
		return &MultipleFailures{Failures: failures}
	}
}

// WaitAny yields handles as they become terminal, in completion order.
// Handles that are already terminal come first, ordered by when they
// finished. If ctx ends before every handle was yielded, a final nil handle
// is yielded with an error wrapping ErrWaitTimeout. Breaking out of the loop
// stops the iteration without affecting the work. Each range over the result
// starts afresh.
func WaitAny(ctx context.Context, handles []*Handle) iter.Seq2[*Handle, error] {
	return func(yield func(*Handle, error) bool) {
		var ready, pending []*Handle
		for _, h := range handles {
			if h.State() == Pending {
				pending = append(pending, h)
			} else {
				ready = append(ready, h)
			}
		}
		slices.SortStableFunc(ready, func(a, b *Handle) int {
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
		for _, h := range ready {
			if !yield(h, nil) {
				return
			}
		}
		if len(pending) == 0 {
			return
		}

		stop := make(chan struct{})
		defer close(stop)
		completed := make(chan *Handle, len(pending))
		for _, h := range pending {
			go func() {
				select {
				case <-h.done:
					completed <- h
				case <-stop:
				}
			}()
		}

		for left := len(pending); left > 0; left-- {
			select {
			case h := <-completed:
				if !yield(h, nil) {
					return
				}
			case <-ctx.Done():
				yield(nil, fmt.Errorf("%w: %d of %d handles still pending: %w",
					ErrWaitTimeout, left, len(handles), context.Cause(ctx)))
				return
			}
		}
	}
}

func waitTree(ctx context.Context, h *Handle) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("%w: handle %s (%s): %w", ErrWaitTimeout, h.id, h.work, context.Cause(ctx))
	}
	for _, c := range h.Children() {
		if err := waitTree(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
