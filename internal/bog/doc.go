// Package bog implements the goody bag: the ordered, name-unique key/value
// context that accumulates as a chain executes.
//
// A Bag is an immutable value. Every operation that "changes" a bag returns a
// new one and leaves the receiver untouched, so concurrent branches that start
// from the same bag never observe each other's writes and no locking is
// needed. Keys are unique; writing an existing key replaces its value while
// keeping the key's original position, which is preserved only for
// diagnostics.
//
// Bags cross process boundaries through Encode/Decode, a msgpack encoding that
// keeps key order.
package bog
