package chain

import (
	"fmt"
	"slices"
	"strings"
)

// Element is a single step of a chain: a *Signature or an InjectArgs.
type Element interface {
	element()
}

// Work is anything the scheduler can run: a *Signature, an InjectArgs or a
// Chain.
type Work interface {
	Elements() []Element
}

// Chain is an immutable ordered sequence of elements.
type Chain struct {
	elems []Element
}

// New composes works in order into one chain. Consecutive InjectArgs at the
// head of the chain merge, later values winning; an InjectArgs anywhere else
// is rejected.
func New(works ...Work) (Chain, error) {
	var out []Element
	for _, w := range works {
		if w == nil {
			return Chain{}, fmt.Errorf("%w: nil work", ErrInvalidChain)
		}
		for _, e := range w.Elements() {
			switch e := e.(type) {
			case InjectArgs:
				if len(out) == 0 {
					out = append(out, e)
					continue
				}
				if prev, ok := out[0].(InjectArgs); ok && len(out) == 1 {
					out[0] = InjectArgs{values: prev.values.Merge(e.values)}
					continue
				}
				return Chain{}, fmt.Errorf("%w: InjectArgs must be the first element of a chain, found after %s", ErrInvalidChain, out[len(out)-1])
			case *Signature:
				if e == nil {
					return Chain{}, fmt.Errorf("%w: nil signature", ErrInvalidChain)
				}
				out = append(out, e)
			default:
				return Chain{}, fmt.Errorf("%w: unsupported element %T", ErrInvalidChain, e)
			}
		}
	}
	return Chain{elems: out}, nil
}

// Append is New(a, b): a's elements followed by b's.
func Append(a, b Work) (Chain, error) { return New(a, b) }

// Then returns c followed by works.
func (c Chain) Then(works ...Work) (Chain, error) {
	return New(append([]Work{c}, works...)...)
}

// Must panics if err is non-nil. It is meant for chains built from literals.
func Must(c Chain, err error) Chain {
	if err != nil {
		panic(err)
	}
	return c
}

// Elements implements Work. The returned slice is a copy.
func (c Chain) Elements() []Element { return slices.Clone(c.elems) }

// Len returns the number of elements, InjectArgs included.
func (c Chain) Len() int { return len(c.elems) }

// Signatures returns the chain's signatures in order.
func (c Chain) Signatures() []*Signature { return signatures(c.elems) }

func (c Chain) String() string {
	parts := make([]string, 0, len(c.elems))
	for _, e := range c.elems {
		parts = append(parts, fmt.Sprint(e))
	}
	return strings.Join(parts, " | ")
}

// Label names a work for logs and reports: its service names joined by "|".
func Label(w Work) string {
	sigs := signatures(w.Elements())
	if len(sigs) == 0 {
		return "InjectArgs"
	}
	names := make([]string, 0, len(sigs))
	for _, s := range sigs {
		names = append(names, s.service)
	}
	return strings.Join(names, "|")
}

func signatures(elems []Element) []*Signature {
	var out []*Signature
	for _, e := range elems {
		if s, ok := e.(*Signature); ok && s != nil {
			out = append(out, s)
		}
	}
	return out
}
