package binary

import (
	"fmt"
	"math"
	"math/big"

	"github.com/partite-ai/binform/core"
)

// Decoder derives a parser for any elaborated format term. The context
// supplies the definitions of named declarations so that recursive and
// parameterized references unfold during decoding.
type Decoder struct {
	env   *core.Context
	insts *instMemo
}

// NewDecoder returns a decoder evaluating under the given context.
func NewDecoder(env *core.Context) *Decoder {
	if env == nil {
		env = core.NewContext()
	}
	return &Decoder{env: env, insts: newInstMemo(env)}
}

// Decode parses a value of the format from the front of data. It returns
// the decoded value and the number of bytes consumed.
func (d *Decoder) Decode(format core.Term, data []byte) (core.Term, int, error) {
	cur := NewCursor(data)
	v, err := d.decode(d.env, format, cur)
	if err != nil {
		return nil, 0, err
	}
	return v, cur.Offset(), nil
}

// DecodeComplete is Decode but additionally requires the whole input to be
// consumed.
func (d *Decoder) DecodeComplete(format core.Term, data []byte) (core.Term, error) {
	v, n, err := d.Decode(format, data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d of %d bytes consumed", ErrEndNotReached, n, len(data))
	}
	return v, nil
}

func (d *Decoder) decode(env *core.Context, format core.Term, cur *Cursor) (core.Term, error) {
	switch t := d.insts.resolve(env, format).(type) {
	case *core.IntFormat:
		raw, err := cur.Consume(t.Bits / 8)
		if err != nil {
			return nil, err
		}
		return &core.IntLit{Value: decodeInt(raw, t.Signed, t.Order)}, nil
	case *core.FloatFormat:
		raw, err := cur.Consume(t.Bits / 8)
		if err != nil {
			return nil, err
		}
		bits := decodeInt(raw, false, t.Order).Uint64()
		if t.Bits == 32 {
			return &core.FloatLit{Value: float64(math.Float32frombits(uint32(bits)))}, nil
		}
		return &core.FloatLit{Value: math.Float64frombits(bits)}, nil
	case *core.StrFormat:
		n, err := evalLen(env, t.Len)
		if err != nil {
			return nil, err
		}
		raw, err := cur.Consume(n)
		if err != nil {
			return nil, err
		}
		s, err := decodeString(t.Encoding, raw)
		if err != nil {
			return nil, err
		}
		return &core.StringLit{Value: s}, nil
	case *core.ArrayFormat:
		n, err := evalLen(env, t.Len)
		if err != nil {
			return nil, err
		}
		elems := make([]core.Term, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.decode(env, t.Elem, cur)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, v)
		}
		return &core.VectorLit{Elems: elems}, nil
	case *core.ExtArrayFormat:
		n, err := evalLen(env, t.ByteLen)
		if err != nil {
			return nil, err
		}
		sub, err := cur.Bounded(n)
		if err != nil {
			return nil, err
		}
		var elems []core.Term
		for sub.Remaining() > 0 {
			v, err := d.decode(env, t.Elem, sub)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", len(elems), err)
			}
			elems = append(elems, v)
		}
		return &core.VectorLit{Elems: elems}, nil
	case *core.StructFormat:
		sub := cur.WithBase(StructBase)
		fields := make([]core.RecordField, 0, len(t.Fields))
		inner := env
		for _, f := range t.Fields {
			start := sub.Offset()
			v, err := d.decode(inner, f.Format, sub)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields = append(fields, core.RecordField{Name: f.Name, Value: v})
			inner = inner.ExtendDef(f.Name, nil, v)
			inner = inner.ExtendDef(f.Name+core.SizeSuffix, nil, core.Int(int64(sub.Offset()-start)))
		}
		cur.CommitFrom(sub)
		return &core.RecordLit{Fields: fields}, nil
	case *core.WhereFormat:
		start := cur.Offset()
		v, err := d.decode(env, t.Format, cur)
		if err != nil {
			return nil, err
		}
		inner := env.ExtendDef(t.Name, nil, v)
		inner = inner.ExtendDef(t.Name+core.SizeSuffix, nil, core.Int(int64(cur.Offset()-start)))
		ok, err := core.EvalBool(inner, t.Pred)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, constraintErr(core.String(t.Pred))
		}
		return v, nil
	case *core.IntersectFormat:
		leftCur := cur.Fork()
		left, err := d.decode(env, t.Left, leftCur)
		if err != nil {
			return nil, err
		}
		rightCur := cur.Fork()
		right, err := d.decode(env, t.Right, rightCur)
		if err != nil {
			return nil, err
		}
		if leftCur.Offset() != rightCur.Offset() {
			return nil, constraintErr(fmt.Sprintf("intersection sides consumed %d and %d bytes",
				leftCur.Offset()-cur.Offset(), rightCur.Offset()-cur.Offset()))
		}
		cur.CommitFrom(leftCur)
		return &core.RecordLit{Fields: []core.RecordField{
			{Name: "left", Value: left},
			{Name: "right", Value: right},
		}}, nil
	case *core.InterpFormat:
		raw, err := d.decode(env, t.Format, cur)
		if err != nil {
			return nil, err
		}
		return core.Normalize(env, &core.App{Fn: t.Conv, Arg: raw}), nil
	case *core.SwitchFormat:
		scrutinee := core.Normalize(env, t.Scrutinee)
		for _, a := range t.Arms {
			if core.Convertible(env, scrutinee, a.Pattern) {
				return d.decode(env, a.Body, cur)
			}
		}
		if t.Otherwise != nil {
			return d.decode(env, t.Otherwise, cur)
		}
		return nil, fmt.Errorf("%w: scrutinee %s", ErrNoMatchingSwitchArm, core.String(scrutinee))
	case *core.ChoiceFormat:
		tagged := choiceIsTagged(env, t)
		for i, o := range t.Options {
			fork := cur.Fork()
			v, err := d.decode(env, o.Format, fork)
			if err != nil {
				continue
			}
			cur.CommitFrom(fork)
			if tagged {
				return &core.SumLit{Branch: i, Name: o.Name, Value: v}, nil
			}
			return v, nil
		}
		return nil, fmt.Errorf("%w: at offset %d", ErrNoMatchingChoice, cur.Offset())
	case *core.EmptyFormat:
		return &core.UnitLit{}, nil
	case *core.ErrorFormat:
		return nil, ErrAlwaysFails
	case *core.EndFormat:
		if n := cur.Remaining(); n > 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrUnexpectedEnd, n)
		}
		return &core.UnitLit{}, nil
	case *core.RepeatFormat:
		if t.Count == nil {
			var elems []core.Term
			for cur.Remaining() > 0 {
				fork := cur.Fork()
				v, err := d.decode(env, t.Elem, fork)
				if err != nil {
					break
				}
				cur.CommitFrom(fork)
				elems = append(elems, v)
			}
			return &core.VectorLit{Elems: elems}, nil
		}
		n, err := evalLen(env, t.Count)
		if err != nil {
			return nil, err
		}
		elems := make([]core.Term, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.decode(env, t.Elem, cur)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, v)
		}
		return &core.VectorLit{Elems: elems}, nil
	case *core.LinkFormat:
		return d.decodeLink(env, t, cur)
	default:
		return nil, fmt.Errorf("%w: cannot decode %s", ErrValueShape, core.String(t))
	}
}

func (d *Decoder) decodeLink(env *core.Context, t *core.LinkFormat, cur *Cursor) (core.Term, error) {
	offv, err := d.decode(env, t.Offset, cur)
	if err != nil {
		return nil, err
	}
	offset, ok := offv.(*core.IntLit)
	if !ok {
		return nil, fmt.Errorf("%w: link offset is %s", ErrValueShape, core.String(offv))
	}

	length := int64(-1)
	if t.Kind == core.LinkSlice {
		lenv, err := d.decode(env, t.Length, cur)
		if err != nil {
			return nil, err
		}
		lit, ok := lenv.(*core.IntLit)
		if !ok {
			return nil, fmt.Errorf("%w: link length is %s", ErrValueShape, core.String(lenv))
		}
		length = lit.Value.Int64()
	}

	side, err := cur.Seek(t.Base, offset.Value.Int64(), length)
	if err != nil {
		return nil, err
	}

	var target core.Term
	if t.Kind == core.LinkSlice {
		var elems []core.Term
		for side.Remaining() > 0 {
			v, err := d.decode(env, t.Target, side)
			if err != nil {
				return nil, fmt.Errorf("link target element %d: %w", len(elems), err)
			}
			elems = append(elems, v)
		}
		target = &core.VectorLit{Elems: elems}
	} else {
		target, err = d.decode(env, t.Target, side)
		if err != nil {
			return nil, fmt.Errorf("link target: %w", err)
		}
	}

	return &core.RecordLit{Fields: []core.RecordField{
		{Name: "offset", Value: offset},
		{Name: "target", Value: target},
	}}, nil
}

// choiceIsTagged reports whether the options of a choice disagree on their
// representation, in which case decoded values carry a branch tag.
func choiceIsTagged(env *core.Context, t *core.ChoiceFormat) bool {
	repr, err := core.ReprOf(env, t)
	if err != nil {
		return false
	}
	_, tagged := repr.(*core.SumType)
	return tagged
}

func evalLen(env *core.Context, t core.Term) (int, error) {
	if t == nil {
		return 0, constraintErr("unresolved length")
	}
	n, err := core.EvalInt(env, t)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Sign() < 0 {
		return 0, constraintErr(fmt.Sprintf("length %s out of range", n))
	}
	return int(n.Int64()), nil
}

// decodeInt reinterprets raw bytes as an integer of the given signedness
// and byte order.
func decodeInt(raw []byte, signed bool, order core.ByteOrder) *big.Int {
	buf := raw
	if order == core.OrderLittle {
		buf = make([]byte, len(raw))
		for i, b := range raw {
			buf[len(raw)-1-i] = b
		}
	}
	v := new(big.Int).SetBytes(buf)
	if signed && len(buf) > 0 && buf[0]&0x80 != 0 {
		shift := uint(len(buf) * 8)
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), shift))
	}
	return v
}
