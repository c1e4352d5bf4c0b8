package hcl

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// translateService converts a decoded `service` block into the agnostic model.
func translateService(ctx context.Context, s *schema.Service, source string) (*config.ServiceDefinition, error) {
	def := &config.ServiceDefinition{
		Name:        s.Name,
		Description: s.Description,
		Returns:     s.Returns,
		Source:      source,
	}
	if s.Lifecycle != nil {
		def.Lifecycle = &config.Lifecycle{OnRun: s.Lifecycle.OnRun}
	}
	for _, in := range s.Inputs {
		input, err := translateInput(ctx, in, s.Name)
		if err != nil {
			return nil, err
		}
		def.Inputs = append(def.Inputs, input)
	}
	return def, nil
}

// translateInput handles a single input block: its type expression and its
// default. A null default counts as no default.
func translateInput(ctx context.Context, in *schema.Input, service string) (*config.InputDefinition, error) {
	ty, err := typeExprToCtyType(ctx, in.Type)
	if err != nil {
		return nil, fmt.Errorf("in service '%s', input '%s': %w", service, in.Name, err)
	}

	input := &config.InputDefinition{
		Name:        in.Name,
		Type:        ty,
		Description: in.Description,
		Optional:    in.Optional,
	}
	if in.Default != nil {
		val, diags := in.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for input '%s' in service '%s': %w", in.Name, service, diags)
		}
		if !val.IsNull() {
			input.Default = &val
			input.Optional = true
		}
	}
	return input, nil
}

func (l *Loader) translateWorkflow(name string, inject *schema.Attributes, steps []*schema.Step, source string) (*config.Workflow, error) {
	wf := &config.Workflow{Name: name, Source: source}

	var err error
	if wf.Inject, err = l.evalAttributes(inject); err != nil {
		return nil, fmt.Errorf("workflow '%s' (%s), inject: %w", name, source, err)
	}
	for i, s := range steps {
		args, err := l.evalAttributes(s.Arguments)
		if err != nil {
			return nil, fmt.Errorf("workflow '%s' (%s), step %d '%s': %w", name, source, i, s.Service, err)
		}
		wf.Steps = append(wf.Steps, &config.Step{Service: s.Service, Arguments: args})
	}
	return wf, nil
}

// evalAttributes evaluates every attribute of a free-form block.
func (l *Loader) evalAttributes(block *schema.Attributes) (map[string]cty.Value, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(map[string]cty.Value, len(attrs))
	var all hcl.Diagnostics
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		val, diags := attrs[name].Expr.Value(l.evalCtx)
		if diags.HasErrors() {
			all = append(all, diags...)
			continue
		}
		out[name] = val
	}
	if all.HasErrors() {
		return nil, all
	}
	return out, nil
}
