// Package codec exports decoded values to interchange formats. Decoding a
// binary stream produces core value terms; this package lowers them to
// plain Go values and serializes those as CBOR or JSON.
package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/partite-ai/binform/core"
)

// ErrNotAValue reports a term that is not a closed value form.
var ErrNotAValue = errors.New("codec: not a value")

// FromTerm lowers a decoded value term to plain Go data: records become
// string-keyed maps, vectors become slices, sum values become single-entry
// maps keyed by branch name, and the unit value becomes nil. Integers that
// fit are int64; wider ones stay *big.Int.
func FromTerm(t core.Term) (any, error) {
	switch t := t.(type) {
	case *core.UnitLit:
		return nil, nil
	case *core.BoolLit:
		return t.Value, nil
	case *core.IntLit:
		if t.Value.IsInt64() {
			return t.Value.Int64(), nil
		}
		return new(big.Int).Set(t.Value), nil
	case *core.FloatLit:
		return t.Value, nil
	case *core.StringLit:
		return t.Value, nil
	case *core.RecordLit:
		out := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			v, err := FromTerm(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil
	case *core.VectorLit:
		out := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			v, err := FromTerm(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case *core.SumLit:
		v, err := FromTerm(t.Value)
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", t.Name, err)
		}
		return map[string]any{t.Name: v}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotAValue, core.String(t))
	}
}

// ToTerm lifts plain Go data back into a value term. It inverts FromTerm
// up to field order: record fields come back sorted by the serializer, so
// the result is shaped for re-encoding against a format, not for
// byte-identical term comparison.
func ToTerm(v any) (core.Term, error) {
	switch v := v.(type) {
	case nil:
		return &core.UnitLit{}, nil
	case bool:
		return &core.BoolLit{Value: v}, nil
	case int64:
		return core.Int(v), nil
	case uint64:
		return &core.IntLit{Value: new(big.Int).SetUint64(v)}, nil
	case *big.Int:
		return &core.IntLit{Value: new(big.Int).Set(v)}, nil
	case big.Int:
		// The CBOR decoder hands back bignums by value.
		return &core.IntLit{Value: new(big.Int).Set(&v)}, nil
	case float64:
		return &core.FloatLit{Value: v}, nil
	case string:
		return &core.StringLit{Value: v}, nil
	case []any:
		elems := make([]core.Term, len(v))
		for i, e := range v {
			t, err := ToTerm(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = t
		}
		return &core.VectorLit{Elems: elems}, nil
	case map[string]any:
		fields := make([]core.RecordField, 0, len(v))
		for _, name := range sortedKeys(v) {
			fv, err := ToTerm(v[name])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			fields = append(fields, core.RecordField{Name: name, Value: fv})
		}
		return &core.RecordLit{Fields: fields}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported Go value %T", ErrNotAValue, v)
	}
}
