// Package registry maps service names to their definitions.
//
// A definition couples the parameter list and declared returns read from a
// manifest (or written in Go) with the compiled body registered by a module.
// Registering a second definition under an existing name does not replace the
// first: definitions stack per name, the most recent one is active, and each
// definition can reach the one directly below it through Original. This is
// how plugins override a service while still delegating to it.
//
// The registry is populated once at startup, validated, and then frozen.
// After Freeze it is read-only and safe for concurrent lookups.
package registry
