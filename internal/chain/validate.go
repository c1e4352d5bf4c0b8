package chain

import (
	"fmt"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/registry"
)

// Resolver looks up the active definition for a service name.
type Resolver interface {
	Resolve(name string) (*registry.Definition, error)
}

// Validate checks a chain without running it. Starting from the names in
// initial plus any injected values, it tracks which names the bag will hold
// after each element and reports required parameters nothing provides and
// rename references to names nothing produces. Once an element declares a
// dynamic return, every later lookup is assumed satisfiable.
func Validate(reg Resolver, w Work, initial ...string) error {
	available := make(map[string]bool, len(initial))
	for _, k := range initial {
		available[k] = true
	}
	dynamic := false
	var problems []string

	for _, e := range w.Elements() {
		switch e := e.(type) {
		case InjectArgs:
			for _, k := range e.values.Keys() {
				available[k] = true
			}
		case *Signature:
			def := e.def
			if def == nil {
				var err error
				if def, err = reg.Resolve(e.service); err != nil {
					problems = append(problems, err.Error())
					continue
				}
			}

			for name, v := range e.args.All() {
				if ref, ok := bog.AsRef(v); ok && !available[string(ref)] && !dynamic {
					problems = append(problems, fmt.Sprintf("service '%s', argument '%s': %s is not produced by any earlier element", def.Name, name, ref))
				}
			}
			for _, p := range def.Params {
				if e.args.Has(p.Name) || available[p.Name] || dynamic {
					continue
				}
				if !p.HasDefault {
					problems = append(problems, fmt.Sprintf("service '%s': required argument '%s' is not provided", def.Name, p.Name))
					continue
				}
				if ref, ok := bog.AsRef(p.Default); ok && !available[string(ref)] {
					problems = append(problems, fmt.Sprintf("service '%s', input '%s': default %s is not produced by any earlier element", def.Name, p.Name, ref))
				}
			}

			for _, k := range e.args.Keys() {
				available[k] = true
			}
			for _, r := range def.Returns {
				if r == registry.Dynamic {
					dynamic = true
					continue
				}
				available[r] = true
			}
		}
	}

	if len(problems) > 0 {
		return &InvalidChainArgsError{Problems: problems}
	}
	return nil
}
