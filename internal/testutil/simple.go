package testutil

import (
	"io/fs"
	"testing/fstest"

	"github.com/vk/bogflow/internal/handlers"
	"github.com/vk/bogflow/internal/registry"
)

// SimpleModule is a test helper for easily creating a mock module from a set
// of handlers and the manifest that binds them.
type SimpleModule struct {
	Handlers map[string]handlers.Func
	Manifest string
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for name, fn := range m.Handlers {
		r.RegisterHandler(name, fn)
	}
}

// Manifests implements the registry.ManifestProvider interface.
func (m *SimpleModule) Manifests() fs.FS {
	if m.Manifest == "" {
		return fstest.MapFS{}
	}
	return fstest.MapFS{"manifest.hcl": {Data: []byte(m.Manifest)}}
}
