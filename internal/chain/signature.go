package chain

import (
	"fmt"
	"strings"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/registry"
)

// Args are explicit argument bindings for a signature.
type Args map[string]any

// Signature binds a service to explicit arguments. It is immutable and is
// resolved only when it executes.
type Signature struct {
	service string
	def     *registry.Definition
	args    bog.Bag
}

// Sig binds the service registered as name. The active definition is looked
// up at submission time.
func Sig(name string, args Args) *Signature {
	return &Signature{service: name, args: bog.New(args)}
}

// SigOf binds a specific definition instead of the active one for its name.
// Overrides use it to delegate to their original.
func SigOf(def *registry.Definition, args Args) *Signature {
	return &Signature{service: def.Name, def: def, args: bog.New(args)}
}

// Service returns the bound service name.
func (s *Signature) Service() string { return s.service }

// Definition returns the pinned definition, or nil when the signature
// resolves its service by name.
func (s *Signature) Definition() *registry.Definition { return s.def }

// Args returns the explicit bindings.
func (s *Signature) Args() bog.Bag { return s.args }

// WithArgs returns a copy of s with extra bindings; they win over existing ones.
func (s *Signature) WithArgs(args Args) *Signature {
	return &Signature{service: s.service, def: s.def, args: s.args.MergeMap(args)}
}

// WithBag is WithArgs for a bag.
func (s *Signature) WithBag(args bog.Bag) *Signature {
	return &Signature{service: s.service, def: s.def, args: s.args.Merge(args)}
}

// Elements implements Work.
func (s *Signature) Elements() []Element { return []Element{s} }

func (s *Signature) element() {}

func (s *Signature) String() string {
	if s.args.Len() == 0 {
		return s.service
	}
	parts := make([]string, 0, s.args.Len())
	for k, v := range s.args.All() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s(%s)", s.service, strings.Join(parts, ", "))
}

// InjectArgs is the pseudo-element that merges literal values into the bag.
// It is only legal as the first element of a chain.
type InjectArgs struct {
	values bog.Bag
}

// Inject returns an InjectArgs element for kv.
func Inject(kv map[string]any) InjectArgs { return InjectArgs{values: bog.New(kv)} }

// InjectBag returns an InjectArgs element for an existing bag.
func InjectBag(b bog.Bag) InjectArgs { return InjectArgs{values: b} }

// Values returns the injected values.
func (i InjectArgs) Values() bog.Bag { return i.values }

// Elements implements Work.
func (i InjectArgs) Elements() []Element { return []Element{i} }

func (i InjectArgs) element() {}

func (i InjectArgs) String() string {
	return fmt.Sprintf("InjectArgs(%s)", strings.Join(i.values.Keys(), ", "))
}
