package bog

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serialises a bag with msgpack. Values that msgpack cannot represent,
// such as functions or channels, make it fail.
func Encode(b Bag) ([]byte, error) {
	data, err := msgpack.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bag: %w", err)
	}
	return data, nil
}

// Decode is the inverse of Encode. Nested maps come back as map[string]any.
func Decode(data []byte) (Bag, error) {
	var b Bag
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return Bag{}, fmt.Errorf("decode bag: %w", err)
	}
	return b, nil
}

// EncodeMsgpack writes the bag as a msgpack map in insertion order.
func (b Bag) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(b.keys)); err != nil {
		return err
	}
	for _, k := range b.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(b.vals[k]); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack map, keeping the order it was written in.
func (b *Bag) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	out := Bag{}
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out.set(k, v)
	}
	*b = out
	return nil
}
