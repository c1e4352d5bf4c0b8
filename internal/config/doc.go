// Package config defines the format-agnostic model that loaders produce:
// service manifests and workflow files.
//
// Nothing here knows about HCL. The hcl package parses files and translates
// them into this model; the registry and the application consume it.
package config
