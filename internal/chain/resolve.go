package chain

import (
	"fmt"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/ctyconv"
	"github.com/vk/bogflow/internal/registry"
)

// Resolve computes the inputs of def's body for sig against bag.
//
// inputs holds one entry per declared parameter, in declaration order, with
// declared types applied. bound holds the signature's explicit bindings with
// rename references replaced by their values; it includes bindings for names
// def does not declare, since explicit arguments also flow forward into the
// bag.
func Resolve(def *registry.Definition, sig *Signature, bag bog.Bag) (inputs, bound bog.Bag, err error) {
	for name, v := range sig.args.All() {
		if ref, ok := bog.AsRef(v); ok {
			target, err := bag.Lookup(string(ref))
			if err != nil {
				return bog.Bag{}, bog.Bag{}, fmt.Errorf("service '%s', argument '%s' (%s): %w", def.Name, name, ref, err)
			}
			v = target
		}
		bound = bound.With(name, v)
	}

	for _, p := range def.Params {
		v, err := resolveParam(def, p, bound, bag)
		if err != nil {
			return bog.Bag{}, bog.Bag{}, err
		}
		if v, err = ctyconv.Coerce(v, p.Type); err != nil {
			return bog.Bag{}, bog.Bag{}, fmt.Errorf("service '%s', input '%s': %w", def.Name, p.Name, err)
		}
		inputs = inputs.With(p.Name, v)
	}
	return inputs, bound, nil
}

func resolveParam(def *registry.Definition, p registry.Param, bound, bag bog.Bag) (any, error) {
	if v, ok := bound.Get(p.Name); ok {
		return v, nil
	}
	if v, ok := bag.Get(p.Name); ok {
		resolved, err := bag.Deref(v)
		if err != nil {
			return nil, fmt.Errorf("service '%s', input '%s' via bag entry %v: %w", def.Name, p.Name, v, err)
		}
		return resolved, nil
	}
	if p.HasDefault {
		resolved, err := bag.Deref(p.Default)
		if err != nil {
			return nil, fmt.Errorf("service '%s', input '%s' via default %v: %w", def.Name, p.Name, p.Default, err)
		}
		return resolved, nil
	}
	return nil, &MissingArgumentError{Service: def.Name, Param: p.Name}
}
