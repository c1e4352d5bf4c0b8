package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"testing/fstest"
	"time"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/registry"
)

// SleeperManifest declares the "sleeper" service MockSleeperModule binds.
const SleeperManifest = `
service "sleeper" {
  lifecycle {
    on_run = "OnRunSleeper"
  }

  input "id" {
    type = string
  }

  returns = ["slept"]
}
`

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It records the execution time of each invocation, keyed by its `id`.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the "sleeper" service's Go handler.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunSleeper", m.onRun)
}

// Manifests implements the registry.ManifestProvider interface.
func (m *MockSleeperModule) Manifests() fs.FS {
	return fstest.MapFS{"sleeper.hcl": {Data: []byte(SleeperManifest)}}
}

// Record returns the execution record for id.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}

func (m *MockSleeperModule) onRun(_ context.Context, in bog.Bag) ([]any, error) {
	raw, _ := in.Get("id")
	id := fmt.Sprint(raw)

	startTime := time.Now()
	time.Sleep(m.sleepDuration)
	endTime := time.Now()

	m.mu.Lock()
	m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- id
	}
	return []any{id}, nil
}
