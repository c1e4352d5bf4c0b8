// Package core provides the built-in services every run relies on: RootTask,
// which wraps the user's chain, and CopyBogKeys.
package core

import (
	"embed"
	"io/fs"

	"github.com/vk/bogflow/internal/registry"
)

//go:embed manifest.hcl
var manifests embed.FS

// RootTaskService is the name of the service a run submits first.
const RootTaskService = "RootTask"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handlers with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunRootTask", OnRunRootTask)
	r.RegisterHandler("OnRunCopyBogKeys", OnRunCopyBogKeys)
}

// Manifests returns the embedded service manifests.
func (m *Module) Manifests() fs.FS { return manifests }
