package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/vk/bogflow/internal/handlers"
)

// Module is the interface that all compiled-in modules implement to register
// their handlers and Go-defined services.
type Module interface {
	Register(r *Registry)
}

// ManifestProvider is implemented by modules that embed the HCL manifests
// binding their handlers to service names.
type ManifestProvider interface {
	Manifests() fs.FS
}

// Registry holds the handler table and the per-name override stacks for a
// single application instance.
type Registry struct {
	*handlers.Handlers

	mu     sync.RWMutex
	active map[string]*Definition
	frozen bool
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Handlers: handlers.New(),
		active:   make(map[string]*Definition),
	}
}

// Register pushes def onto the override stack for its name. The registry
// stores a copy; the previously active definition becomes its Original.
func (r *Registry) Register(def *Definition) error {
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register '%s'", ErrFrozen, def.Name)
	}

	stored := *def
	stored.Params = slices.Clone(def.Params)
	stored.Returns = slices.Clone(def.Returns)
	stored.original = r.active[def.Name]
	stored.depth = 0
	if stored.original != nil {
		stored.depth = stored.original.depth + 1
		slog.Debug("Overriding service.", "name", def.Name, "source", def.Source, "overrides", stored.original.Source, "depth", stored.depth)
	} else {
		slog.Debug("Registering service.", "name", def.Name, "source", def.Source)
	}
	r.active[def.Name] = &stored
	return nil
}

// MustRegister is Register for compiled-in modules, where a bad definition is
// a programmer error.
func (r *Registry) MustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Resolve returns the active definition for name.
func (r *Registry) Resolve(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.active[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrServiceNotFound, name)
	}
	return def, nil
}

// Stack returns every definition registered under name, active first.
func (r *Registry) Stack(name string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for d := r.active[name]; d != nil; d = d.original {
		out = append(out, d)
	}
	return out
}

// Services returns the names of all registered services, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.active))
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
