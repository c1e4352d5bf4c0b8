// Package app wires bogflow together: it builds the logger, registers the
// compiled-in modules, loads their manifests and any plugin manifests into
// the registry, and runs a chain through the scheduler under a RootTask,
// writing run.json and the ledger as it goes.
package app
