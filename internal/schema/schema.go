// Package schema holds the gohcl decoding targets for bogflow's HCL files.
// The hcl package decodes into these structs and translates them into the
// config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Service Manifest Schemas ---

// Lifecycle maps a service's events to registered Go handler names.
type Lifecycle struct {
	OnRun string `hcl:"on_run"`
}

// Input defines a single parameter of a service.
type Input struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    bool           `hcl:"optional,optional"`
}

// Service represents a `service` manifest block.
type Service struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Lifecycle   *Lifecycle `hcl:"lifecycle,block"`
	Inputs      []*Input   `hcl:"input,block"`
	Returns     []string   `hcl:"returns,optional"`
}

// --- Workflow Schemas ---

// Attributes is a block holding free-form attributes, such as `inject` or a
// step's `arguments`.
type Attributes struct {
	Body hcl.Body `hcl:",remain"`
}

// Step represents a `step` block: one signature of a workflow, labelled with
// the service it runs.
type Step struct {
	Service   string      `hcl:"service,label"`
	Arguments *Attributes `hcl:"arguments,block"`
}

// Workflow represents a named `workflow` block.
type Workflow struct {
	Name   string      `hcl:"name,label"`
	Inject *Attributes `hcl:"inject,block"`
	Steps  []*Step     `hcl:"step,block"`
}

// File is everything a single file may contain. Top-level `inject` and
// `step` blocks form a workflow named after the file.
type File struct {
	Services  []*Service  `hcl:"service,block"`
	Workflows []*Workflow `hcl:"workflow,block"`
	Inject    *Attributes `hcl:"inject,block"`
	Steps     []*Step     `hcl:"step,block"`
	Remain    hcl.Body    `hcl:",remain"`
}
