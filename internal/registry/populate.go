package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/ctyconv"
)

// PopulateFromModel turns every manifest in the model into a definition
// bound to its on_run handler and registers it. Manifests are applied in
// model order, so a later manifest for the same name overrides an earlier
// one.
func (r *Registry) PopulateFromModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, svc := range model.Services {
		def, err := r.definitionFromManifest(svc)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := r.Register(def); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		logger.Debug("Service definition populated from manifest.", "service", svc.Name, "source", svc.Source)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry population failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (r *Registry) definitionFromManifest(svc *config.ServiceDefinition) (*Definition, error) {
	if svc.Lifecycle == nil || svc.Lifecycle.OnRun == "" {
		return nil, fmt.Errorf("service '%s' (%s): manifest has no on_run handler", svc.Name, svc.Source)
	}
	body, ok := r.Lookup(svc.Lifecycle.OnRun)
	if !ok {
		return nil, fmt.Errorf("service '%s' (%s): on_run handler '%s' is not registered", svc.Name, svc.Source, svc.Lifecycle.OnRun)
	}

	def := &Definition{
		Name:        svc.Name,
		Description: svc.Description,
		Returns:     svc.Returns,
		Body:        body,
		Handler:     svc.Lifecycle.OnRun,
		Source:      svc.Source,
	}
	for _, in := range svc.Inputs {
		p := Param{Name: in.Name, Type: in.Type, Description: in.Description}
		if in.Default != nil {
			v, err := ctyconv.ToNative(*in.Default)
			if err != nil {
				return nil, fmt.Errorf("service '%s', input '%s': invalid default: %w", svc.Name, in.Name, err)
			}
			p.Default, p.HasDefault = v, true
		} else if in.Optional {
			p.HasDefault = true
		}
		def.Params = append(def.Params, p)
	}
	return def, nil
}
