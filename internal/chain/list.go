package chain

import (
	"strings"
)

// SplitList splits a delimited list of names. Commas, semicolons, pipes and
// whitespace all separate entries; empty entries are dropped.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', '|', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
}

// FromList builds InjectArgs(inject) followed by one argument-less signature
// per name.
func FromList(names []string, inject map[string]any) (Chain, error) {
	works := make([]Work, 0, len(names)+1)
	if len(inject) > 0 {
		works = append(works, Inject(inject))
	}
	for _, n := range names {
		works = append(works, Sig(n, nil))
	}
	return New(works...)
}
