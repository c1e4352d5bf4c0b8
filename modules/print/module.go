// Package print provides the print service, which writes selected bag
// entries to the log.
package print

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/registry"
	"github.com/vk/bogflow/internal/scheduler"
)

//go:embed manifest.hcl
var manifests embed.FS

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunPrint logs the bag entries named by `keys`, in order, or every entry
// when keys is empty. Missing keys are logged as such. It returns how many
// entries it printed.
func OnRunPrint(ctx context.Context, in bog.Bag) ([]any, error) {
	logger := ctxlog.FromContext(ctx)

	bag := in
	if task := scheduler.Current(ctx); task != nil {
		bag = task.Bag()
	}

	raw, _ := in.Get("keys")
	list, _ := raw.([]any)
	keys := make([]string, 0, len(list))
	for _, k := range list {
		keys = append(keys, fmt.Sprint(k))
	}
	if len(keys) == 0 {
		keys = bag.Without("keys").Keys()
	}

	printed := int64(0)
	for _, k := range keys {
		v, ok := bag.Get(k)
		if !ok {
			logger.Info("Printing bag entry.", "key", k, "value", "(missing)")
			continue
		}
		logger.Info("Printing bag entry.", "key", k, "value", v)
		printed++
	}
	return []any{printed}, nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunPrint", OnRunPrint)
}

// Manifests returns the embedded service manifests.
func (m *Module) Manifests() fs.FS { return manifests }
