// Package ctyconv moves values between native Go and go-cty.
//
// Bags hold plain Go values. Manifests describe parameter types as cty types
// and HCL files produce cty values, so both directions are needed: HCL
// values become Go values when they enter a bag, and Go values are run
// through cty conversion when a parameter declares a type.
package ctyconv

import (
	"fmt"
	"maps"
	"math/big"
	"slices"

	"github.com/vk/bogflow/internal/bog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToNative recursively converts a cty.Value to its most natural Go
// counterpart. Numbers become int64 when they are whole and fit, float64
// otherwise.
func ToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			nv, err := ToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			nv, err := ToNative(ev)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			out[k.AsString()] = nv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported cty type: %s", ty.FriendlyName())
	}
}

// FromNative converts a Go value into a cty.Value. Untyped containers
// ([]any, map[string]any) become tuples and objects; anything else goes
// through gocty's implied type.
func FromNative(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case bog.Ref:
		return cty.StringVal(t.String()), nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case float64:
		return cty.NumberFloatVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(t))
		for i, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			av, err := FromNative(t[k])
			if err != nil {
				return cty.NilVal, fmt.Errorf("attribute %q: %w", k, err)
			}
			attrs[k] = av
		}
		return cty.ObjectVal(attrs), nil
	case bog.Bag:
		return FromNative(t.Map())
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

// Coerce converts v to the given cty type and back to Go. A nil type or
// DynamicPseudoType ("any") leaves v untouched.
func Coerce(v any, ty cty.Type) (any, error) {
	if ty == cty.NilType || ty.Equals(cty.DynamicPseudoType) || v == nil {
		return v, nil
	}
	cv, err := FromNative(v)
	if err != nil {
		return nil, err
	}
	converted, err := convert.Convert(cv, ty)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to required type %s: %w", cv.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return ToNative(converted)
}
