package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRequiredArgument is matched by every *MissingArgumentError.
	ErrMissingRequiredArgument = errors.New("missing required argument")
	// ErrInvalidChain reports a chain that cannot be built or submitted.
	ErrInvalidChain = errors.New("invalid chain")
	// ErrInvalidChainArgs is matched by every *InvalidChainArgsError.
	ErrInvalidChainArgs = errors.New("invalid chain arguments")
)

// MissingArgumentError reports a parameter that no binding, bag entry or
// default could satisfy.
type MissingArgumentError struct {
	Service string
	Param   string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("service '%s': missing required argument '%s'", e.Service, e.Param)
}

func (e *MissingArgumentError) Is(target error) bool { return target == ErrMissingRequiredArgument }

// InvalidChainArgsError lists every problem static validation found.
type InvalidChainArgsError struct {
	Problems []string
}

func (e *InvalidChainArgsError) Error() string {
	return fmt.Sprintf("invalid chain arguments:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *InvalidChainArgsError) Is(target error) bool { return target == ErrInvalidChainArgs }
