package binary

import (
	"fmt"
	"math"
	"math/big"

	"github.com/partite-ai/binform/core"
)

// Encoder derives a serializer for any elaborated format term. For any
// value a Decoder produced, encoding reproduces the exact bytes the decode
// consumed.
type Encoder struct {
	env   *core.Context
	insts *instMemo
}

// NewEncoder returns an encoder evaluating under the given context.
func NewEncoder(env *core.Context) *Encoder {
	if env == nil {
		env = core.NewContext()
	}
	return &Encoder{env: env, insts: newInstMemo(env)}
}

// Encode serializes a value of the format.
func (e *Encoder) Encode(format core.Term, value core.Term) ([]byte, error) {
	return e.encode(e.env, format, value)
}

func (e *Encoder) encode(env *core.Context, format core.Term, value core.Term) ([]byte, error) {
	switch t := e.insts.resolve(env, format).(type) {
	case *core.IntFormat:
		lit, ok := core.Normalize(env, value).(*core.IntLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected integer, have %s", ErrValueShape, core.String(value))
		}
		return encodeInt(lit.Value, t.Bits/8, t.Signed, t.Order)
	case *core.FloatFormat:
		lit, ok := core.Normalize(env, value).(*core.FloatLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected float, have %s", ErrValueShape, core.String(value))
		}
		var bits uint64
		if t.Bits == 32 {
			bits = uint64(math.Float32bits(float32(lit.Value)))
		} else {
			bits = math.Float64bits(lit.Value)
		}
		return encodeInt(new(big.Int).SetUint64(bits), t.Bits/8, false, t.Order)
	case *core.StrFormat:
		lit, ok := core.Normalize(env, value).(*core.StringLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected string, have %s", ErrValueShape, core.String(value))
		}
		raw, err := encodeString(t.Encoding, lit.Value)
		if err != nil {
			return nil, err
		}
		n, err := evalLen(env, t.Len)
		if err != nil {
			return nil, err
		}
		if len(raw) != n {
			return nil, fmt.Errorf("%w: %d bytes, declared %d", ErrStringWidth, len(raw), n)
		}
		return raw, nil
	case *core.ArrayFormat:
		vec, ok := core.Normalize(env, value).(*core.VectorLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected vector, have %s", ErrValueShape, core.String(value))
		}
		n, err := evalLen(env, t.Len)
		if err != nil {
			return nil, err
		}
		if len(vec.Elems) != n {
			return nil, fmt.Errorf("%w: %d elements, declared %d", ErrArityMismatch, len(vec.Elems), n)
		}
		return e.encodeElems(env, t.Elem, vec.Elems)
	case *core.ExtArrayFormat:
		vec, ok := core.Normalize(env, value).(*core.VectorLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected vector, have %s", ErrValueShape, core.String(value))
		}
		out, err := e.encodeElems(env, t.Elem, vec.Elems)
		if err != nil {
			return nil, err
		}
		if budget, err := evalLen(env, t.ByteLen); err == nil && len(out) != budget {
			return nil, constraintErr(fmt.Sprintf("existential array is %d bytes, budget is %d", len(out), budget))
		}
		return out, nil
	case *core.StructFormat:
		rec, ok := core.Normalize(env, value).(*core.RecordLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected record, have %s", ErrValueShape, core.String(value))
		}
		var out []byte
		inner := env
		for _, f := range t.Fields {
			fv, ok := rec.Field(f.Name)
			if !ok {
				return nil, fmt.Errorf("%w: missing field %s", ErrValueShape, f.Name)
			}
			raw, err := e.encode(inner, f.Format, fv)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			out = append(out, raw...)
			inner = inner.ExtendDef(f.Name, nil, fv)
			inner = inner.ExtendDef(f.Name+core.SizeSuffix, nil, core.Int(int64(len(raw))))
		}
		return out, nil
	case *core.WhereFormat:
		raw, err := e.encode(env, t.Format, value)
		if err != nil {
			return nil, err
		}
		inner := env.ExtendDef(t.Name, nil, value)
		inner = inner.ExtendDef(t.Name+core.SizeSuffix, nil, core.Int(int64(len(raw))))
		ok, err := core.EvalBool(inner, t.Pred)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, constraintErr(core.String(t.Pred))
		}
		return raw, nil
	case *core.IntersectFormat:
		rec, ok := core.Normalize(env, value).(*core.RecordLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected intersection record, have %s", ErrValueShape, core.String(value))
		}
		left, ok := rec.Field("left")
		if !ok {
			return nil, fmt.Errorf("%w: intersection record has no left projection", ErrValueShape)
		}
		// Both sides describe the same bytes; the left projection is the
		// canonical encoding.
		return e.encode(env, t.Left, left)
	case *core.InterpFormat:
		if t.Inverse == nil {
			return nil, ErrNoInverse
		}
		raw := core.Normalize(env, &core.App{Fn: t.Inverse, Arg: value})
		return e.encode(env, t.Format, raw)
	case *core.SwitchFormat:
		scrutinee := core.Normalize(env, t.Scrutinee)
		for _, a := range t.Arms {
			if core.Convertible(env, scrutinee, a.Pattern) {
				return e.encode(env, a.Body, value)
			}
		}
		if t.Otherwise != nil {
			return e.encode(env, t.Otherwise, value)
		}
		return nil, fmt.Errorf("%w: scrutinee %s", ErrNoMatchingSwitchArm, core.String(scrutinee))
	case *core.ChoiceFormat:
		if sum, ok := core.Normalize(env, value).(*core.SumLit); ok {
			for i, o := range t.Options {
				if i == sum.Branch || (sum.Name != "" && o.Name == sum.Name) {
					return e.encode(env, o.Format, sum.Value)
				}
			}
			return nil, fmt.Errorf("%w: no option %q", ErrValueShape, sum.Name)
		}
		// Untagged value: the options share a representation, so the one
		// whose constraints accept the value is the encoding.
		for _, o := range t.Options {
			raw, err := e.encode(env, o.Format, value)
			if err == nil {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("%w: value %s", ErrNoMatchingChoice, core.String(value))
	case *core.EmptyFormat:
		return nil, nil
	case *core.ErrorFormat:
		return nil, ErrAlwaysFails
	case *core.EndFormat:
		return nil, nil
	case *core.RepeatFormat:
		vec, ok := core.Normalize(env, value).(*core.VectorLit)
		if !ok {
			return nil, fmt.Errorf("%w: expected vector, have %s", ErrValueShape, core.String(value))
		}
		if t.Count != nil {
			n, err := evalLen(env, t.Count)
			if err != nil {
				return nil, err
			}
			if len(vec.Elems) != n {
				return nil, fmt.Errorf("%w: %d elements, declared %d", ErrArityMismatch, len(vec.Elems), n)
			}
		}
		return e.encodeElems(env, t.Elem, vec.Elems)
	case *core.LinkFormat:
		return e.encodeLink(env, t, value)
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrValueShape, core.String(t))
	}
}

func (e *Encoder) encodeElems(env *core.Context, elem core.Term, elems []core.Term) ([]byte, error) {
	var out []byte
	for i, v := range elems {
		raw, err := e.encode(env, elem, v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, raw...)
	}
	return out, nil
}

// encodeLink writes the offset (and, for slices, length) fields. The
// pointee itself lives elsewhere in the output and is written by whoever
// owns that region.
func (e *Encoder) encodeLink(env *core.Context, t *core.LinkFormat, value core.Term) ([]byte, error) {
	rec, ok := core.Normalize(env, value).(*core.RecordLit)
	if !ok {
		return nil, fmt.Errorf("%w: expected link record, have %s", ErrValueShape, core.String(value))
	}
	offset, ok := rec.Field("offset")
	if !ok {
		return nil, fmt.Errorf("%w: link record has no offset", ErrValueShape)
	}
	out, err := e.encode(env, t.Offset, offset)
	if err != nil {
		return nil, err
	}
	if t.Kind == core.LinkSlice {
		target, ok := rec.Field("target")
		if !ok {
			return nil, fmt.Errorf("%w: link record has no target", ErrValueShape)
		}
		vec, ok := core.Normalize(env, target).(*core.VectorLit)
		if !ok {
			return nil, fmt.Errorf("%w: slice target is %s", ErrValueShape, core.String(target))
		}
		body, err := e.encodeElems(env, t.Target, vec.Elems)
		if err != nil {
			return nil, err
		}
		raw, err := e.encode(env, t.Length, core.Int(int64(len(body))))
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}

// encodeInt emits width bytes in the given order. Out-of-range values are
// rejected rather than truncated.
func encodeInt(v *big.Int, width int, signed bool, order core.ByteOrder) ([]byte, error) {
	lo := new(big.Int)
	hi := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	enc := new(big.Int).Set(v)
	if signed {
		half := new(big.Int).Rsh(hi, 1)
		lo.Neg(half)
		hi = half
		if v.Sign() < 0 {
			enc.Add(enc, new(big.Int).Lsh(big.NewInt(1), uint(width*8)))
		}
	}
	if v.Cmp(lo) < 0 || v.Cmp(hi) >= 0 {
		return nil, constraintErr(fmt.Sprintf("%s does not fit in %d bytes", v, width))
	}
	out := make([]byte, width)
	enc.FillBytes(out)
	if order == core.OrderLittle {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}
