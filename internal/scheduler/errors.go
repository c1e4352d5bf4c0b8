package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompleteChain is returned by Extract for a handle that is not SUCCESS.
	ErrIncompleteChain = errors.New("incomplete chain")
	// ErrChainInterrupted is matched by every *ChainInterrupted.
	ErrChainInterrupted = errors.New("chain interrupted")
	// ErrWaitTimeout is returned when a wait's context ends first.
	ErrWaitTimeout = errors.New("wait timed out")
	// ErrNotSubmitted is the cause carried by capped-parallel work that was
	// withheld because its context ended before a slot was free.
	ErrNotSubmitted = errors.New("work was not submitted")
	// ErrNotSerializable is returned under strict serialisation for inputs or
	// outputs that cannot be encoded.
	ErrNotSerializable = errors.New("value is not serializable")
	// ErrNoOriginal is returned by CallOriginal from a definition that does
	// not override anything.
	ErrNoOriginal = errors.New("definition has no original")
	// ErrTaskFinished is returned when a task is used after its body returned.
	ErrTaskFinished = errors.New("task already finished")
)

// ChainInterrupted is raised by a wait that observed a failed handle.
type ChainInterrupted struct {
	HandleID string
	Work     string
	// Service is the element that failed; empty when the work never ran.
	Service string
	Cause   error
}

func (e *ChainInterrupted) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("chain interrupted: %s [%s]: %v", e.Work, e.HandleID, e.Cause)
	}
	return fmt.Sprintf("chain interrupted: service '%s' failed in %s [%s]: %v", e.Service, e.Work, e.HandleID, e.Cause)
}

func (e *ChainInterrupted) Unwrap() error { return e.Cause }

func (e *ChainInterrupted) Is(target error) bool { return target == ErrChainInterrupted }

// MultipleFailures is raised by WaitAll when more than one handle failed.
type MultipleFailures struct {
	Failures []*ChainInterrupted
}

func (e *MultipleFailures) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%d chains failed:\n- %s", len(e.Failures), strings.Join(parts, "\n- "))
}

func (e *MultipleFailures) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

// PanicError is the failure cause of a body that panicked.
type PanicError struct {
	Service string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("service '%s' panicked: %v", e.Service, e.Value)
}
