package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// Dynamic is the return slot marker whose value is a mapping merged into the
// outputs key by key.
const Dynamic = "*"

// Param is a single declared input of a service.
type Param struct {
	Name        string
	Type        cty.Type // cty.NilType or cty.DynamicPseudoType accept anything
	Description string
	Default     any
	HasDefault  bool
}

// Definition describes one registered service.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Returns     []string
	Body        handlers.Func
	// Handler is the on_run name the body was bound through, empty for
	// definitions written in Go.
	Handler string
	// Source names where the definition came from: a manifest path, or the
	// Go package for definitions registered in code.
	Source string

	original *Definition
	depth    int
}

// Original returns the definition this one overrides, or nil.
func (d *Definition) Original() *Definition { return d.original }

// Depth is the definition's position in its override stack, 0 for the first
// registration of a name.
func (d *Definition) Depth() int { return d.depth }

// Param returns the declared parameter called name.
func (d *Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// HasDynamicReturn reports whether the definition declares a dynamic slot.
func (d *Definition) HasDynamicReturn() bool {
	return slices.Contains(d.Returns, Dynamic)
}

// NamedReturns returns the declared return names without the dynamic marker.
func (d *Definition) NamedReturns() []string {
	out := make([]string, 0, len(d.Returns))
	for _, r := range d.Returns {
		if r != Dynamic {
			out = append(out, r)
		}
	}
	return out
}

// MapReturns pairs a body's positional result with the declared return
// slots. Slots are applied left to right, so on a name collision between a
// dynamic slot and a named one the later slot wins.
func (d *Definition) MapReturns(values []any) (bog.Bag, error) {
	if len(d.Returns) == 0 {
		return bog.Bag{}, nil
	}
	if len(values) != len(d.Returns) {
		return bog.Bag{}, fmt.Errorf("%w: service '%s' declares %d return(s) %v but its body returned %d value(s)",
			ErrReturnsCoding, d.Name, len(d.Returns), d.Returns, len(values))
	}

	out := bog.Bag{}
	for i, slot := range d.Returns {
		if slot != Dynamic {
			out = out.With(slot, values[i])
			continue
		}
		switch dyn := values[i].(type) {
		case nil:
		case bog.Bag:
			out = out.Merge(dyn)
		case map[string]any:
			out = out.MergeMap(dyn)
		default:
			return bog.Bag{}, fmt.Errorf("%w: service '%s' dynamic return at position %d must be a mapping, got %T",
				ErrReturnsCoding, d.Name, i, values[i])
		}
	}
	return out, nil
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDefinition)
	}
	if d.Body == nil {
		return fmt.Errorf("%w: service '%s' has no body", ErrInvalidDefinition, d.Name)
	}

	seenParams := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" || p.Name == Dynamic {
			return fmt.Errorf("%w: service '%s' has an invalid parameter name %q", ErrInvalidDefinition, d.Name, p.Name)
		}
		if _, dup := seenParams[p.Name]; dup {
			return fmt.Errorf("%w: service '%s' declares parameter '%s' twice", ErrInvalidDefinition, d.Name, p.Name)
		}
		seenParams[p.Name] = struct{}{}
	}

	counts := make(map[string]int, len(d.Returns))
	for _, r := range d.Returns {
		if r == "" {
			return fmt.Errorf("%w: service '%s' declares an empty return name", ErrReturnsCoding, d.Name)
		}
		counts[r]++
	}
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		if counts[name] < 2 {
			continue
		}
		if name == Dynamic {
			return fmt.Errorf("%w: service '%s' declares more than one dynamic return", ErrReturnsCoding, d.Name)
		}
		return fmt.Errorf("%w: service '%s' declares return '%s' more than once", ErrReturnsCoding, d.Name, name)
	}
	return nil
}
