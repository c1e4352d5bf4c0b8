package bog

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Entry is a single key/value pair of a Bag.
type Entry struct {
	Key   string
	Value any
}

// Bag is an immutable, insertion-ordered mapping from name to value. The zero
// value is an empty bag ready to use.
type Bag struct {
	keys []string
	vals map[string]any
}

// New builds a bag from a map. Map iteration order is random, so keys are
// added in sorted order to keep diagnostics stable.
func New(kv map[string]any) Bag {
	return Bag{}.MergeMap(kv)
}

// Of builds a bag from entries, in order. A repeated key keeps its first
// position and its last value.
func Of(entries ...Entry) Bag {
	b := Bag{
		keys: make([]string, 0, len(entries)),
		vals: make(map[string]any, len(entries)),
	}
	for _, e := range entries {
		b.set(e.Key, e.Value)
	}
	return b
}

// Len returns the number of entries.
func (b Bag) Len() int { return len(b.keys) }

// Has reports whether key is present.
func (b Bag) Has(key string) bool {
	_, ok := b.vals[key]
	return ok
}

// Get returns the value stored under key.
func (b Bag) Get(key string) (any, bool) {
	v, ok := b.vals[key]
	return v, ok
}

// Lookup is Get that reports a missing key as a *MissingKeyError.
func (b Bag) Lookup(key string) (any, error) {
	v, ok := b.vals[key]
	if !ok {
		return nil, &MissingKeyError{Key: key, Available: b.Keys()}
	}
	return v, nil
}

// With returns a new bag with key set to value.
func (b Bag) With(key string, value any) Bag {
	out := b.clone(1)
	out.set(key, value)
	return out
}

// Merge returns a new bag holding b's entries overwritten and extended by
// other's. Last writer wins.
func (b Bag) Merge(other Bag) Bag {
	if other.Len() == 0 {
		return b
	}
	if b.Len() == 0 {
		return other
	}
	out := b.clone(other.Len())
	for _, k := range other.keys {
		out.set(k, other.vals[k])
	}
	return out
}

// MergeMap is Merge for a plain map; new keys are appended in sorted order.
func (b Bag) MergeMap(kv map[string]any) Bag {
	if len(kv) == 0 {
		return b
	}
	out := b.clone(len(kv))
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		out.set(k, kv[k])
	}
	return out
}

// Select returns a bag holding only keys, in the order given. It fails on the
// first key that is absent.
func (b Bag) Select(keys ...string) (Bag, error) {
	out := Bag{keys: make([]string, 0, len(keys)), vals: make(map[string]any, len(keys))}
	for _, k := range keys {
		v, err := b.Lookup(k)
		if err != nil {
			return Bag{}, err
		}
		out.set(k, v)
	}
	return out, nil
}

// Values returns the values stored under keys, in order.
func (b Bag) Values(keys ...string) ([]any, error) {
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := b.Lookup(k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Without returns a bag with keys removed.
func (b Bag) Without(keys ...string) Bag {
	out := Bag{keys: make([]string, 0, len(b.keys)), vals: make(map[string]any, len(b.keys))}
	for _, k := range b.keys {
		if slices.Contains(keys, k) {
			continue
		}
		out.set(k, b.vals[k])
	}
	return out
}

// Keys returns a copy of the keys in insertion order.
func (b Bag) Keys() []string { return slices.Clone(b.keys) }

// All iterates entries in insertion order.
func (b Bag) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range b.keys {
			if !yield(k, b.vals[k]) {
				return
			}
		}
	}
}

// Entries returns the entries in insertion order.
func (b Bag) Entries() []Entry {
	out := make([]Entry, 0, len(b.keys))
	for k, v := range b.All() {
		out = append(out, Entry{Key: k, Value: v})
	}
	return out
}

// Map returns a shallow copy of the bag as a plain map.
func (b Bag) Map() map[string]any {
	out := make(map[string]any, len(b.keys))
	for k, v := range b.All() {
		out[k] = v
	}
	return out
}

func (b Bag) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range b.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, b.vals[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (b Bag) clone(extra int) Bag {
	out := Bag{
		keys: make([]string, len(b.keys), len(b.keys)+extra),
		vals: make(map[string]any, len(b.keys)+extra),
	}
	copy(out.keys, b.keys)
	maps.Copy(out.vals, b.vals)
	return out
}

// set mutates b and must only be called on a freshly cloned bag.
func (b *Bag) set(key string, value any) {
	if b.vals == nil {
		b.vals = make(map[string]any)
	}
	if _, exists := b.vals[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = value
}
