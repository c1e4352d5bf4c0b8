package runstore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// MemoryStore is an ephemeral, thread-safe Store. Entries of concurrently
// finishing handles are independent, so they live in a sync.Map keyed by
// handle id; a counter keeps their insertion order.
type MemoryStore struct {
	entries sync.Map // Key: handle id, Value: memEntry
	seq     atomic.Uint64
}

type memEntry struct {
	seq   uint64
	entry Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of e.
func (s *MemoryStore) Save(_ context.Context, e *Entry) error {
	s.entries.Store(e.HandleID, memEntry{seq: s.seq.Add(1), entry: *e})
	return nil
}

// Get retrieves the entry of a handle.
func (s *MemoryStore) Get(_ context.Context, handleID string) (*Entry, error) {
	v, ok := s.entries.Load(handleID)
	if !ok {
		return nil, ErrNotFound
	}
	e := v.(memEntry).entry
	return &e, nil
}

// ListRun returns every entry of runID in insertion order.
func (s *MemoryStore) ListRun(_ context.Context, runID string) ([]*Entry, error) {
	var found []memEntry
	s.entries.Range(func(_, v any) bool {
		if me := v.(memEntry); me.entry.RunID == runID {
			found = append(found, me)
		}
		return true
	})
	slices.SortFunc(found, func(a, b memEntry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]*Entry, len(found))
	for i := range found {
		out[i] = &found[i].entry
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
