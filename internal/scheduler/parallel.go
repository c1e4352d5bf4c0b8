package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/ctxlog"
	"golang.org/x/sync/semaphore"
)

// SubmitParallel runs works with at most limit of them pending at any time,
// submitting the next as soon as one finishes. It returns once every
// submitted handle is terminal; handles[i] always belongs to works[i].
//
// Work that Submit rejects gets an already failed handle in its position.
// If ctx ends before every work got a slot, the withheld positions get
// failed handles carrying ErrNotSubmitted and the context error is returned.
// A non-positive limit falls back to the engine's default, and to no cap when
// that is unset too.
func (e *Engine) SubmitParallel(ctx context.Context, works []chain.Work, inherited bog.Bag, limit int) ([]*Handle, error) {
	return e.submitParallel(ctx, nil, works, inherited, limit)
}

func (e *Engine) submitParallel(ctx context.Context, parent *Handle, works []chain.Work, inherited bog.Bag, limit int) ([]*Handle, error) {
	if len(works) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if limit <= 0 || limit > len(works) {
		limit = len(works)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Submitting capped parallel batch.", "count", len(works), "limit", limit)

	sem := semaphore.NewWeighted(int64(limit))
	handles := make([]*Handle, len(works))
	var wg sync.WaitGroup
	var withheld error

	for i, w := range works {
		if err := sem.Acquire(ctx, 1); err != nil {
			withheld = err
			for j := i; j < len(works); j++ {
				handles[j] = e.failedHandle(ctx, parent, works[j], fmt.Errorf("%w: %w", ErrNotSubmitted, err))
			}
			logger.Warn("Capped parallel batch interrupted; remaining work withheld.", "withheld", len(works)-i, "error", err)
			break
		}

		h, err := e.submit(ctx, parent, w, inherited)
		if err != nil {
			sem.Release(1)
			handles[i] = e.failedHandle(ctx, parent, w, err)
			continue
		}
		handles[i] = h

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-h.done
			sem.Release(1)
		}()
	}

	wg.Wait()
	return handles, withheld
}
