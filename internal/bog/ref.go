package bog

import (
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// RefPrefix marks a string argument as a rename reference.
const RefPrefix = "@"

// Ref is a rename reference: "take the value from the bag entry with this
// name". It is written "@name" in manifests, workflow files and on the
// command line.
type Ref string

func (r Ref) String() string { return RefPrefix + string(r) }

// EncodeMsgpack writes the reference in its "@name" form so it survives a
// round trip as a reference.
func (r Ref) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(r.String())
}

// AsRef reports whether v is a rename reference, either a Ref or a string of
// the form "@name".
func AsRef(v any) (Ref, bool) {
	switch t := v.(type) {
	case Ref:
		return t, t != ""
	case string:
		if len(t) > len(RefPrefix) && strings.HasPrefix(t, RefPrefix) {
			return Ref(t[len(RefPrefix):]), true
		}
	}
	return "", false
}

// Deref resolves v one level through b when v is a rename reference. Values
// that are not references are returned as is.
func (b Bag) Deref(v any) (any, error) {
	ref, ok := AsRef(v)
	if !ok {
		return v, nil
	}
	return b.Lookup(string(ref))
}
