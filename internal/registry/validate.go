package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/ctyconv"
	"github.com/zclconf/go-cty/cty"
)

// Validate checks every definition in every override stack: parameter
// defaults must convert to their declared type, and returns must be well
// formed. Handlers that no definition binds are reported as warnings.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string
	bound := make(map[string]bool)

	for _, name := range r.Services() {
		for _, def := range r.Stack(name) {
			if err := def.validate(); err != nil {
				errs = append(errs, err.Error())
			}
			if def.Handler != "" {
				bound[def.Handler] = true
			}
			for _, p := range def.Params {
				if p.Type == cty.NilType || p.Type.Equals(cty.DynamicPseudoType) {
					logger.Debug("Service input accepts any type.", "service", name, "input", p.Name)
				}
				if !p.HasDefault || p.Default == nil {
					continue
				}
				if _, isRef := bog.AsRef(p.Default); isRef {
					continue
				}
				if _, err := ctyconv.Coerce(p.Default, p.Type); err != nil {
					errs = append(errs, fmt.Sprintf("service '%s', input '%s': default does not match declared type: %v", name, p.Name, err))
				}
			}
		}
	}

	for _, h := range r.Names() {
		if !bound[h] {
			logger.Warn("Handler is registered but no service definition binds it.", "handler", h)
		}
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
