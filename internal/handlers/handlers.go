// Package handlers holds the compiled Go bodies that service manifests bind to
// through their on_run attribute.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/bogflow/internal/bog"
)

// Func is the executable body of a service. It receives its resolved inputs
// and returns one value per declared return slot.
type Func func(ctx context.Context, in bog.Bag) ([]any, error)

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]Func
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]Func),
	}
}

// RegisterHandler registers a Go function under the name manifests refer to.
func (h *Handlers) RegisterHandler(name string, fn Func) {
	if fn == nil {
		panic(fmt.Sprintf("handler '%s' registered with a nil function", name))
	}
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	slog.Debug("Registering handler.", "name", name)
	h.all[name] = fn
}

// Lookup returns the handler registered under name.
func (h *Handlers) Lookup(name string) (Func, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns all registered handler names, sorted.
func (h *Handlers) Names() []string {
	return slices.Sorted(maps.Keys(h.all))
}
