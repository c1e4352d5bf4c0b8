package bog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingBogKey is matched by every *MissingKeyError.
var ErrMissingBogKey = errors.New("missing bog key")

// MissingKeyError reports a lookup of a name the bag does not hold.
type MissingKeyError struct {
	Key       string
	Available []string
}

func (e *MissingKeyError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("missing bog key %q: bag is empty", e.Key)
	}
	return fmt.Sprintf("missing bog key %q (bag has: %s)", e.Key, strings.Join(e.Available, ", "))
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingBogKey }
