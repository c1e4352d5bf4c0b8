// Package chain builds the values the scheduler executes.
//
// A Signature binds a service name to explicit arguments. Arguments are
// literals or rename references (bog.Ref, or a string "@name") that read a
// bag entry under a different parameter name. A Chain is an immutable,
// ordered sequence of signatures, optionally headed by an InjectArgs element
// whose values are merged into the bag verbatim. Chains compose with New,
// Append and Then, which always return a new chain.
//
// Resolve computes a signature's inputs from the current bag:
//
//  1. an explicit literal binding wins,
//  2. an explicit rename reference reads the named bag entry,
//  3. otherwise the parameter's own name is looked up in the bag,
//  4. otherwise the declared default is used,
//  5. otherwise resolution fails with ErrMissingRequiredArgument.
//
// Bag values and defaults that are themselves rename references are followed
// one level.
package chain
