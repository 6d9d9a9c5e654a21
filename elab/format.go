package elab

import (
	"github.com/partite-ai/binform/ast"
	"github.com/partite-ai/binform/core"
)

var formatKind = &core.FormatKind{}

// inferFormat elaborates the format formers. Every former has type Format;
// the expression sublanguage inside them (lengths, predicates, scrutinees)
// goes back through the ordinary checker.
func (e *elaborator) inferFormat(env *core.Context, t ast.Term) (core.Term, core.Term, error) {
	switch t := t.(type) {
	case *ast.UInt:
		return &core.IntFormat{Bits: t.Bits, Order: e.order(t.Order)}, formatKind, nil
	case *ast.SInt:
		return &core.IntFormat{Bits: t.Bits, Signed: true, Order: e.order(t.Order)}, formatKind, nil
	case *ast.Float:
		return &core.FloatFormat{Bits: t.Bits, Order: e.order(t.Order)}, formatKind, nil
	case *ast.Str:
		length, err := e.check(env, t.Len, &core.IntType{})
		if err != nil {
			return nil, nil, err
		}
		return &core.StrFormat{Len: length, Encoding: t.Encoding}, formatKind, nil
	case *ast.Array:
		elem, err := e.check(env, t.Elem, formatKind)
		if err != nil {
			return nil, nil, err
		}
		length, err := e.check(env, t.Len, &core.IntType{})
		if err != nil {
			return nil, nil, err
		}
		return &core.ArrayFormat{Elem: elem, Len: length}, formatKind, nil
	case *ast.ExtArray:
		elem, err := e.check(env, t.Elem, formatKind)
		if err != nil {
			return nil, nil, err
		}
		// ByteLen stays open here; the enclosing constraint solves it.
		return &core.ExtArrayFormat{Elem: elem}, formatKind, nil
	case *ast.Struct:
		return e.inferStruct(env, t)
	case *ast.Where:
		return e.inferWhere(env, t)
	case *ast.Intersect:
		left, err := e.check(env, t.Left, formatKind)
		if err != nil {
			return nil, nil, err
		}
		right, err := e.check(env, t.Right, formatKind)
		if err != nil {
			return nil, nil, err
		}
		lc := core.Classify(env, core.Normalize(env, left))
		rc := core.Classify(env, core.Normalize(env, right))
		if lc.Kind == core.SizeFixed && rc.Kind == core.SizeFixed && lc.Size.Cmp(rc.Size) != 0 {
			return nil, nil, errAt(t.Span, ErrIntersectSizeMismatch, "%v vs %v bytes", lc.Size, rc.Size)
		}
		return &core.IntersectFormat{Left: left, Right: right}, formatKind, nil
	case *ast.Interp:
		return e.inferInterp(env, t)
	case *ast.Switch:
		return e.inferSwitch(env, t)
	case *ast.Choice:
		options := make([]core.ChoiceOption, 0, len(t.Options))
		for _, o := range t.Options {
			f, err := e.check(env, o.Format, formatKind)
			if err != nil {
				return nil, nil, err
			}
			options = append(options, core.ChoiceOption{Name: o.Name, Format: f})
		}
		return &core.ChoiceFormat{Options: options}, formatKind, nil
	case *ast.Empty:
		return &core.EmptyFormat{}, formatKind, nil
	case *ast.ErrorFormat:
		return &core.ErrorFormat{}, formatKind, nil
	case *ast.End:
		return &core.EndFormat{}, formatKind, nil
	case *ast.Repeat:
		var count core.Term
		if t.Count != nil {
			var err error
			count, err = e.check(env, t.Count, &core.IntType{})
			if err != nil {
				return nil, nil, err
			}
		}
		elem, err := e.check(env, t.Elem, formatKind)
		if err != nil {
			return nil, nil, err
		}
		return &core.RepeatFormat{Count: count, Elem: elem}, formatKind, nil
	case *ast.Link:
		return e.inferLink(env, t)
	default:
		return nil, nil, errAt(t.TermSpan(), ErrCannotInfer, "unsupported term %T", t)
	}
}

func (e *elaborator) order(o ast.ByteOrder) core.ByteOrder {
	switch o {
	case ast.OrderBig:
		return core.OrderBig
	case ast.OrderLittle:
		return core.OrderLittle
	default:
		return e.opts.DefaultByteOrder
	}
}

func (e *elaborator) inferStruct(env *core.Context, t *ast.Struct) (core.Term, core.Term, error) {
	fields := make([]core.StructFormatField, 0, len(t.Fields))
	inner := env
	for _, f := range t.Fields {
		ff, err := e.check(inner, f.Type, formatKind)
		if err != nil {
			return nil, nil, err
		}
		repr, err := core.ReprOf(inner, core.Normalize(inner, ff))
		if err != nil {
			return nil, nil, errAt(t.Span, ErrTypeMismatch, "field %s: %v", f.Name, err)
		}
		fields = append(fields, core.StructFormatField{Name: f.Name, Format: ff})
		inner = inner.ExtendClaim(f.Name, repr)
	}
	return &core.StructFormat{Fields: fields}, formatKind, nil
}

// inferWhere elaborates a refinement. When the refined format is an
// existential array and the predicate pins down its encoded size, the
// constraint is solved on the spot: the array's byte budget becomes the
// equated expression and the refinement wrapper disappears.
func (e *elaborator) inferWhere(env *core.Context, t *ast.Where) (core.Term, core.Term, error) {
	format, err := e.check(env, t.Format, formatKind)
	if err != nil {
		return nil, nil, err
	}
	head := core.Normalize(env, format)
	if ext, ok := head.(*core.ExtArrayFormat); ok && ext.ByteLen == nil {
		if budget, ok := e.solveSizeConstraint(env, t); ok {
			return &core.ExtArrayFormat{Elem: ext.Elem, ByteLen: budget}, formatKind, nil
		}
	}
	repr, err := core.ReprOf(env, head)
	if err != nil {
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "%v", err)
	}
	pred, err := e.check(env.ExtendClaim(t.Name, repr), t.Pred, &core.BoolType{})
	if err != nil {
		return nil, nil, err
	}
	return &core.WhereFormat{Name: t.Name, Format: format, Pred: pred}, formatKind, nil
}

// solveSizeConstraint matches predicates of the shape
// sizeof(name) == expr (or flipped) and elaborates expr as the byte budget.
func (e *elaborator) solveSizeConstraint(env *core.Context, t *ast.Where) (core.Term, bool) {
	bin, ok := t.Pred.(*ast.Binary)
	if !ok || bin.Op != ast.OpEq {
		return nil, false
	}
	if expr, ok := sizeOfSide(bin.Left, bin.Right, t.Name); ok {
		if budget, err := e.check(env, expr, &core.IntType{}); err == nil {
			return budget, true
		}
	}
	if expr, ok := sizeOfSide(bin.Right, bin.Left, t.Name); ok {
		if budget, err := e.check(env, expr, &core.IntType{}); err == nil {
			return budget, true
		}
	}
	return nil, false
}

func sizeOfSide(side, other ast.Term, name string) (ast.Term, bool) {
	sz, ok := side.(*ast.SizeOf)
	if !ok {
		return nil, false
	}
	ref, ok := sz.Term.(*ast.Name)
	if !ok || ref.Ident != name {
		return nil, false
	}
	return other, true
}

func (e *elaborator) inferInterp(env *core.Context, t *ast.Interp) (core.Term, core.Term, error) {
	format, err := e.check(env, t.Format, formatKind)
	if err != nil {
		return nil, nil, err
	}
	raw, err := core.ReprOf(env, core.Normalize(env, format))
	if err != nil {
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "%v", err)
	}
	conv, convTy, err := e.infer(env, t.Conv)
	if err != nil {
		return nil, nil, err
	}
	pi, ok := core.Normalize(env, convTy).(*core.Pi)
	if !ok {
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "interpretation %s is not a function", core.String(conv))
	}
	if !core.Convertible(env, pi.ParamType, raw) {
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "interpretation expects %s, format produces %s",
			core.String(pi.ParamType), core.String(raw))
	}
	repr := pi.Body
	if pi.Param != "" {
		repr = core.Subst(repr, pi.Param, &core.Var{Name: pi.Param + "'"})
	}
	var inverse core.Term
	if t.Inverse != nil {
		inverse, err = e.check(env, t.Inverse, &core.Pi{ParamType: repr, Body: raw})
		if err != nil {
			return nil, nil, err
		}
	}
	return &core.InterpFormat{Format: format, Conv: conv, Repr: repr, Inverse: inverse}, formatKind, nil
}

func (e *elaborator) inferSwitch(env *core.Context, t *ast.Switch) (core.Term, core.Term, error) {
	scrutinee, scrTy, err := e.infer(env, t.Scrutinee)
	if err != nil {
		return nil, nil, err
	}
	arms := make([]core.SwitchArm, 0, len(t.Arms))
	for _, a := range t.Arms {
		pattern, err := e.check(env, a.Pattern, scrTy)
		if err != nil {
			return nil, nil, err
		}
		body, err := e.check(env, a.Format, formatKind)
		if err != nil {
			return nil, nil, err
		}
		arms = append(arms, core.SwitchArm{Pattern: pattern, Body: body})
	}
	var otherwise core.Term
	if t.Otherwise != nil {
		otherwise, err = e.check(env, t.Otherwise, formatKind)
		if err != nil {
			return nil, nil, err
		}
	} else if e.opts.RequireOtherwise {
		return nil, nil, errAt(t.Span, ErrMissingOtherwise, "")
	}
	return &core.SwitchFormat{Scrutinee: scrutinee, Arms: arms, Otherwise: otherwise}, formatKind, nil
}

func (e *elaborator) inferLink(env *core.Context, t *ast.Link) (core.Term, core.Term, error) {
	offset, err := e.check(env, t.Offset, formatKind)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := core.Normalize(env, offset).(*core.IntFormat); !ok {
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "link offset must be an integer format")
	}
	var length core.Term
	if t.Kind == ast.LinkSlice {
		if t.Length == nil {
			return nil, nil, errAt(t.Span, ErrTypeMismatch, "slice link requires a length format")
		}
		length, err = e.check(env, t.Length, formatKind)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := core.Normalize(env, length).(*core.IntFormat); !ok {
			return nil, nil, errAt(t.Span, ErrTypeMismatch, "link length must be an integer format")
		}
	}
	target, err := e.check(env, t.Target, formatKind)
	if err != nil {
		return nil, nil, err
	}
	return &core.LinkFormat{
		Kind:   core.LinkKind(t.Kind),
		Base:   t.Base,
		Offset: offset,
		Length: length,
		Target: target,
	}, formatKind, nil
}
