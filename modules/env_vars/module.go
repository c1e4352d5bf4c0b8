// Package env_vars provides the env_vars service, which publishes
// environment variables into the bag.
package env_vars

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/registry"
)

//go:embed manifest.hcl
var manifests embed.FS

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ overrides os.Environ, for tests.
	Environ func() []string
}

// onRun returns every environment variable whose name starts with `prefix`,
// keyed by its name without the prefix, through the dynamic slot.
func (m *Module) onRun(ctx context.Context, in bog.Bag) ([]any, error) {
	environ := os.Environ
	if m.Environ != nil {
		environ = m.Environ
	}
	raw, _ := in.Get("prefix")
	prefix, _ := raw.(string)

	out := make(map[string]any)
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		if name := strings.TrimPrefix(k, prefix); name != "" {
			out[name] = v
		}
	}
	return []any{out}, nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunEnvVars", m.onRun)
}

// Manifests returns the embedded service manifests.
func (m *Module) Manifests() fs.FS { return manifests }
