// Package hcl implements config.Loader for HCL files.
//
// A file may hold any mix of `service` manifests, named `workflow` blocks,
// and top-level `inject` and `step` blocks. The top-level blocks form a
// workflow named after the file. Attribute values are evaluated with an
// `env` variable holding the process environment and a small set of string
// functions from the cty standard library.
package hcl
