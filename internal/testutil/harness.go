package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/bogflow/internal/app"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/hcl"
	"github.com/vk/bogflow/internal/registry"
	"github.com/vk/bogflow/internal/scheduler"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness is a registry built the way the application builds it, and an
// engine over it.
type Harness struct {
	Ctx      context.Context
	Engine   *scheduler.Engine
	Registry *registry.Registry
	Logs     *SafeBuffer
}

// NewHarness writes files (relative path -> HCL) to a temporary directory,
// loads them as plugin manifests after the manifests the modules embed, and
// returns a harness whose engine is drained when the test ends. Set
// BOGFLOW_TEST_LOGS=true to print the captured logs.
func NewHarness(t *testing.T, files map[string]string, modules ...registry.Module) *Harness {
	t.Helper()

	var pluginPaths []string
	if len(files) > 0 {
		dir := t.TempDir()
		for name, content := range files {
			path := filepath.Join(dir, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		}
		pluginPaths = []string{dir}
	}

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reg, _, err := app.BuildRegistry(ctx, hcl.NewLoaderWithEnv(nil), nil, pluginPaths, modules...)
	require.NoError(t, err)

	engine := scheduler.New(reg, scheduler.WithStrictSerialization())
	t.Cleanup(func() {
		engine.Drain()
		if os.Getenv("BOGFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return &Harness{Ctx: ctx, Engine: engine, Registry: reg, Logs: logs}
}
