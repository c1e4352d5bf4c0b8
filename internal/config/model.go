package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of everything a
// loader read.
type Model struct {
	// Services are kept in load order. A name appearing more than once is an
	// override of the earlier definition.
	Services  []*ServiceDefinition
	Workflows []*Workflow
}

// Merge appends other's services and workflows after m's.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Services = append(m.Services, other.Services...)
	m.Workflows = append(m.Workflows, other.Workflows...)
}

// Workflow looks up a workflow by name.
func (m *Model) Workflow(name string) (*Workflow, bool) {
	for _, w := range m.Workflows {
		if w.Name == name {
			return w, true
		}
	}
	return nil, false
}

// --- Service manifests ---

// ServiceDefinition is the format-agnostic representation of a service manifest.
type ServiceDefinition struct {
	Name        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      []*InputDefinition
	// Returns lists the declared return slots in order; "*" marks the
	// dynamic slot.
	Returns []string
	Source  string
}

// Lifecycle maps a service's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input parameter of a service.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// --- Workflows ---

// Workflow is a chain written down in a file: an optional inject block
// followed by ordered steps.
type Workflow struct {
	Name   string
	Inject map[string]cty.Value
	Steps  []*Step
	Source string
}

// Step is one signature of a workflow.
type Step struct {
	Service   string
	Arguments map[string]cty.Value
}
