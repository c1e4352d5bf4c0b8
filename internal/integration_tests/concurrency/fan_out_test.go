package integration_tests

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/scheduler"
	"github.com/vk/bogflow/internal/testutil"
)

func sleepers(n int) ([]chain.Work, []string) {
	works := make([]chain.Work, n)
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("s%d", i)
		works[i] = chain.Sig("sleeper", chain.Args{"id": ids[i]})
	}
	return works, ids
}

// TestConcurrency_FanOutExecution validates that parallel work submitted
// with a cap as large as the group runs at the same time.
func TestConcurrency_FanOutExecution(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	const count = 4
	mod := testutil.NewMockSleeperModule(nil, 100*time.Millisecond)
	h := testutil.NewHarness(t, nil, mod)
	works, ids := sleepers(count)

	// --- Act ---
	start := time.Now()
	handles, err := h.Engine.SubmitParallel(h.Ctx, works, bog.Bag{}, count)
	require.NoError(t, err)
	require.NoError(t, scheduler.WaitAll(h.Ctx, handles, true))
	elapsed := time.Since(start)

	// --- Assert ---
	assert.Less(t, elapsed, time.Duration(count)*100*time.Millisecond, "parallel work ran sequentially")
	first, ok := mod.Record(ids[0])
	require.True(t, ok)
	for _, id := range ids[1:] {
		rec, ok := mod.Record(id)
		require.True(t, ok, "sleeper %s never ran", id)
		assert.True(t, first.Overlaps(rec), "sleeper %s did not overlap with %s", id, ids[0])
	}
}

// TestConcurrency_CapSerialises validates that a cap of one runs parallel
// work one after another, in submission order.
func TestConcurrency_CapSerialises(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	done := make(chan string, 3)
	mod := testutil.NewMockSleeperModule(done, 20*time.Millisecond)
	h := testutil.NewHarness(t, nil, mod)
	works, ids := sleepers(3)

	// --- Act ---
	handles, err := h.Engine.SubmitParallel(h.Ctx, works, bog.Bag{}, 1)
	require.NoError(t, err)
	require.NoError(t, scheduler.WaitAll(h.Ctx, handles, true))
	close(done)

	// --- Assert ---
	var order []string
	for id := range done {
		order = append(order, id)
	}
	assert.Equal(t, ids, order)
	for i := 1; i < len(ids); i++ {
		prev, _ := mod.Record(ids[i-1])
		cur, _ := mod.Record(ids[i])
		assert.False(t, prev.Overlaps(cur), "%s overlapped with %s", ids[i], ids[i-1])
	}
}
