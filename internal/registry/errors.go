package registry

import "errors"

var (
	// ErrServiceNotFound is returned when no definition is registered under a name.
	ErrServiceNotFound = errors.New("service not found")
	// ErrReturnsCoding covers malformed return declarations and bodies whose
	// result does not match what their definition declares.
	ErrReturnsCoding = errors.New("returns coding error")
	// ErrInvalidDefinition is returned for definitions that cannot be registered.
	ErrInvalidDefinition = errors.New("invalid service definition")
	// ErrFrozen is returned by Register once the registry is frozen.
	ErrFrozen = errors.New("registry is frozen")
)
