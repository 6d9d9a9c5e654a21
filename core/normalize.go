package core

import (
	"fmt"
	"math/big"

	"github.com/partite-ai/binform/ast"
)

// SizeSuffix is appended to a bound name to record the byte extent of its
// encoded form in the context.
const SizeSuffix = "#size"

// Normalize reduces a term to weak-head normal form under the given
// context. Constructor-headed terms are returned as soon as their head is
// exposed; terms stuck on a claim-only variable stay neutral. Normalization
// of a well-typed term always terminates: reduction never descends under a
// binder without substituting an argument for it first.
func Normalize(env *Context, t Term) Term {
	switch t := t.(type) {
	case *Var:
		if def, ok := env.LookupDef(t.Name); ok {
			return Normalize(env, def)
		}
		return t
	case *Annot:
		return Normalize(env, t.Term)
	case *App:
		fn := Normalize(env, t.Fn)
		if lam, ok := fn.(*Lam); ok {
			return Normalize(env, Subst(lam.Body, lam.Param, t.Arg))
		}
		return &App{Fn: fn, Arg: t.Arg}
	case *Proj:
		inner := Normalize(env, t.Term)
		if rec, ok := inner.(*RecordLit); ok {
			if v, ok := rec.Field(t.Field); ok {
				return Normalize(env, v)
			}
			return &Proj{Term: inner, Field: t.Field}
		}
		return &Proj{Term: inner, Field: t.Field}
	case *If:
		cond := Normalize(env, t.Cond)
		if b, ok := cond.(*BoolLit); ok {
			if b.Value {
				return Normalize(env, t.Then)
			}
			return Normalize(env, t.Else)
		}
		// Stuck scrutinee: the conditional itself becomes neutral,
		// carrying both branches unevaluated.
		return &If{Cond: cond, Then: t.Then, Else: t.Else}
	case *Binary:
		return normalizeBinary(env, t)
	case *Not:
		inner := Normalize(env, t.Term)
		if b, ok := inner.(*BoolLit); ok {
			return &BoolLit{Value: !b.Value}
		}
		return &Not{Term: inner}
	case *SizeOf:
		// Decoders and encoders record the byte extent of each bound
		// value under the name's #size key.
		if v, ok := t.Term.(*Var); ok {
			if def, ok := env.LookupDef(v.Name + SizeSuffix); ok {
				return Normalize(env, def)
			}
		}
		inner := Normalize(env, t.Term)
		if size, ok := fixedSizeOf(env, inner); ok {
			return &IntLit{Value: size}
		}
		return &SizeOf{Term: inner}
	default:
		return t
	}
}

func normalizeBinary(env *Context, t *Binary) Term {
	left := Normalize(env, t.Left)

	// Short-circuit logical operators before touching the right operand.
	if lb, ok := left.(*BoolLit); ok {
		switch t.Op {
		case ast.OpAnd:
			if !lb.Value {
				return &BoolLit{Value: false}
			}
			return Normalize(env, t.Right)
		case ast.OpOr:
			if lb.Value {
				return &BoolLit{Value: true}
			}
			return Normalize(env, t.Right)
		}
	}

	right := Normalize(env, t.Right)

	if li, ok := left.(*IntLit); ok {
		if ri, ok := right.(*IntLit); ok {
			return evalIntOp(t.Op, li.Value, ri.Value)
		}
	}
	if lf, ok := left.(*FloatLit); ok {
		if rf, ok := right.(*FloatLit); ok {
			return evalFloatOp(t.Op, lf.Value, rf.Value)
		}
	}
	if ls, ok := left.(*StringLit); ok {
		if rs, ok := right.(*StringLit); ok {
			switch t.Op {
			case ast.OpEq:
				return &BoolLit{Value: ls.Value == rs.Value}
			case ast.OpNe:
				return &BoolLit{Value: ls.Value != rs.Value}
			}
		}
	}
	if lb, ok := left.(*BoolLit); ok {
		if rb, ok := right.(*BoolLit); ok {
			switch t.Op {
			case ast.OpEq:
				return &BoolLit{Value: lb.Value == rb.Value}
			case ast.OpNe:
				return &BoolLit{Value: lb.Value != rb.Value}
			}
		}
	}
	return &Binary{Op: t.Op, Left: left, Right: right}
}

func evalIntOp(op ast.BinOp, l, r *big.Int) Term {
	cmp := l.Cmp(r)
	switch op {
	case ast.OpEq:
		return &BoolLit{Value: cmp == 0}
	case ast.OpNe:
		return &BoolLit{Value: cmp != 0}
	case ast.OpLt:
		return &BoolLit{Value: cmp < 0}
	case ast.OpLe:
		return &BoolLit{Value: cmp <= 0}
	case ast.OpGt:
		return &BoolLit{Value: cmp > 0}
	case ast.OpGe:
		return &BoolLit{Value: cmp >= 0}
	case ast.OpAdd:
		return &IntLit{Value: new(big.Int).Add(l, r)}
	case ast.OpSub:
		return &IntLit{Value: new(big.Int).Sub(l, r)}
	case ast.OpMul:
		return &IntLit{Value: new(big.Int).Mul(l, r)}
	default:
		return &Binary{Op: op, Left: &IntLit{Value: l}, Right: &IntLit{Value: r}}
	}
}

func evalFloatOp(op ast.BinOp, l, r float64) Term {
	switch op {
	case ast.OpEq:
		return &BoolLit{Value: l == r}
	case ast.OpNe:
		return &BoolLit{Value: l != r}
	case ast.OpLt:
		return &BoolLit{Value: l < r}
	case ast.OpLe:
		return &BoolLit{Value: l <= r}
	case ast.OpGt:
		return &BoolLit{Value: l > r}
	case ast.OpGe:
		return &BoolLit{Value: l >= r}
	case ast.OpAdd:
		return &FloatLit{Value: l + r}
	case ast.OpSub:
		return &FloatLit{Value: l - r}
	case ast.OpMul:
		return &FloatLit{Value: l * r}
	default:
		return &Binary{Op: op, Left: &FloatLit{Value: l}, Right: &FloatLit{Value: r}}
	}
}

// fixedSizeOf resolves sizeof over a format term whose classification is
// statically fixed. Anything else stays symbolic.
func fixedSizeOf(env *Context, t Term) (*big.Int, bool) {
	if !IsFormat(t) {
		return nil, false
	}
	class := Classify(env, t)
	if class.Kind != SizeFixed {
		return nil, false
	}
	return class.Size, true
}

// IsFormat reports whether a weak-head normal term is headed by a format
// former.
func IsFormat(t Term) bool {
	switch t.(type) {
	case *IntFormat, *FloatFormat, *StrFormat, *ArrayFormat, *ExtArrayFormat,
		*StructFormat, *WhereFormat, *IntersectFormat, *InterpFormat,
		*SwitchFormat, *ChoiceFormat, *EmptyFormat, *ErrorFormat, *EndFormat,
		*RepeatFormat, *LinkFormat:
		return true
	}
	return false
}

// IsNeutral reports whether a weak-head normal term is stuck on a free
// variable.
func IsNeutral(t Term) bool {
	switch t := t.(type) {
	case *Var:
		return true
	case *App:
		return IsNeutral(t.Fn)
	case *Proj:
		return IsNeutral(t.Term)
	case *If:
		return IsNeutral(t.Cond)
	case *Binary:
		return IsNeutral(t.Left) || IsNeutral(t.Right)
	case *Not:
		return IsNeutral(t.Term)
	case *SizeOf:
		return IsNeutral(t.Term)
	default:
		return false
	}
}

// EvalBool fully evaluates a boolean expression under the context. It fails
// when the expression stays neutral.
func EvalBool(env *Context, t Term) (bool, error) {
	v := Normalize(env, t)
	if b, ok := v.(*BoolLit); ok {
		return b.Value, nil
	}
	return false, fmt.Errorf("expression %s did not reduce to a boolean", String(v))
}

// EvalInt fully evaluates an integer expression under the context.
func EvalInt(env *Context, t Term) (*big.Int, error) {
	v := Normalize(env, t)
	if i, ok := v.(*IntLit); ok {
		return i.Value, nil
	}
	return nil, fmt.Errorf("expression %s did not reduce to an integer", String(v))
}
