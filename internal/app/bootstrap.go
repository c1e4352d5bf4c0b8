package app

import (
	"context"
	"fmt"

	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/registry"
)

// BuildRegistry registers modules, then loads, in order, the manifests the
// modules embed, the files under manifestPaths and the files under
// pluginPaths. A service named again by a later manifest overrides the
// earlier definition. The returned registry is validated and frozen; the
// model holds every loaded service and workflow.
func BuildRegistry(ctx context.Context, loader config.Loader, manifestPaths, pluginPaths []string, modules ...registry.Module) (*registry.Registry, *config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "handlers", reg.Names())

	model := &config.Model{}
	populate := func(m *config.Model) error {
		if err := reg.PopulateFromModel(ctx, m); err != nil {
			return err
		}
		model.Merge(m)
		return nil
	}

	for _, mod := range modules {
		mp, ok := mod.(registry.ManifestProvider)
		if !ok {
			continue
		}
		m, err := loader.LoadFS(ctx, mp.Manifests(), fmt.Sprintf("%T", mod))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load embedded manifests of %T: %w", mod, err)
		}
		if err := populate(m); err != nil {
			return nil, nil, err
		}
	}

	for _, group := range []struct {
		kind  string
		paths []string
	}{
		{"manifests", manifestPaths},
		{"plugins", pluginPaths},
	} {
		if len(group.paths) == 0 {
			continue
		}
		m, err := loader.Load(ctx, group.paths...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", group.kind, err)
		}
		if err := populate(m); err != nil {
			return nil, nil, err
		}
		logger.Debug("Configuration loaded.", "kind", group.kind, "services", len(m.Services), "workflows", len(m.Workflows))
	}

	if err := reg.Validate(ctx); err != nil {
		return nil, nil, err
	}
	reg.Freeze()
	logger.Debug("Registry validation passed.", "services", len(reg.Services()))
	return reg, model, nil
}
