package chain

import (
	"fmt"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vmihailenco/msgpack/v5"
)

// Chains encode as an array of elements. A signature is {service, args} and
// an InjectArgs is {inject}. Decoded signatures carry no definition and
// resolve by name when submitted.

// EncodeMsgpack implements msgpack.CustomEncoder.
func (c Chain) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(c.elems)); err != nil {
		return err
	}
	for _, e := range c.elems {
		if err := encodeElement(enc, e); err != nil {
			return err
		}
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s *Signature) EncodeMsgpack(enc *msgpack.Encoder) error {
	return Chain{elems: []Element{s}}.EncodeMsgpack(enc)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (i InjectArgs) EncodeMsgpack(enc *msgpack.Encoder) error {
	return Chain{elems: []Element{i}}.EncodeMsgpack(enc)
}

func encodeElement(enc *msgpack.Encoder, e Element) error {
	switch e := e.(type) {
	case *Signature:
		if err := enc.EncodeMapLen(2); err != nil {
			return err
		}
		if err := enc.EncodeString("service"); err != nil {
			return err
		}
		if err := enc.EncodeString(e.service); err != nil {
			return err
		}
		if err := enc.EncodeString("args"); err != nil {
			return err
		}
		if err := enc.Encode(e.args); err != nil {
			return fmt.Errorf("arguments of %s: %w", e.service, err)
		}
		return nil
	case InjectArgs:
		if err := enc.EncodeMapLen(1); err != nil {
			return err
		}
		if err := enc.EncodeString("inject"); err != nil {
			return err
		}
		return enc.Encode(e.values)
	default:
		return fmt.Errorf("%w: unsupported element %T", ErrInvalidChain, e)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (c *Chain) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	works := make([]Work, 0, max(n, 0))
	for i := 0; i < n; i++ {
		w, err := decodeElement(dec)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		works = append(works, w)
	}
	out, err := New(works...)
	if err != nil {
		return err
	}
	*c = out
	return nil
}

func decodeElement(dec *msgpack.Decoder) (Work, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}

	var service string
	var args, inject bog.Bag
	var isInject bool
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		switch key {
		case "service":
			if service, err = dec.DecodeString(); err != nil {
				return nil, err
			}
		case "args":
			if err := dec.Decode(&args); err != nil {
				return nil, err
			}
		case "inject":
			isInject = true
			if err := dec.Decode(&inject); err != nil {
				return nil, err
			}
		default:
			if err := dec.Skip(); err != nil {
				return nil, err
			}
		}
	}

	if isInject {
		return InjectBag(inject), nil
	}
	if service == "" {
		return nil, fmt.Errorf("%w: element has neither a service nor inject values", ErrInvalidChain)
	}
	return &Signature{service: service, args: args}, nil
}
