package elab

import (
	"github.com/partite-ai/binform/ast"
	"github.com/partite-ai/binform/core"
)

// analyze validates a fully elaborated format body: unknown-size placement,
// end exclusivity, zero-width repeats, pointee sizes, unresolved
// existentials, and choice distinguishability.
func (e *elaborator) analyze(env *core.Context, body core.Term, d *ast.Decl) error {
	return e.analyzeFormat(env, body, d)
}

func (e *elaborator) analyzeFormat(env *core.Context, t core.Term, d *ast.Decl) error {
	// References to other declarations are analyzed on their own; skipping
	// them here keeps recursive formats from looping the walk.
	if _, ok := declRef(t, e.module); ok {
		return nil
	}
	switch head := core.Normalize(env, t).(type) {
	case *core.StructFormat:
		inner := env
		for i, f := range head.Fields {
			last := i == len(head.Fields)-1
			ff := core.Normalize(inner, f.Format)
			if !last {
				if _, isEnd := ff.(*core.EndFormat); isEnd {
					return errAt(d.Span, ErrMisplacedEnd, "field %s of %s", f.Name, d.Name)
				}
				if core.Classify(inner, ff).Kind == core.SizeUnknown && !refersToDecl(ff, e.module) &&
					!onlyEndFollows(inner, head.Fields[i+1:]) {
					return errAt(d.Span, ErrUnknownSizeNotLast, "field %s of %s", f.Name, d.Name)
				}
			}
			// Recurse on the unnormalized field so the declaration guard
			// above stops the walk before a recursive reference unfolds.
			if err := e.analyzeFormat(inner, f.Format, d); err != nil {
				return err
			}
			repr, err := core.ReprOf(inner, ff)
			if err != nil {
				return errAt(d.Span, ErrTypeMismatch, "%v", err)
			}
			inner = inner.ExtendClaim(f.Name, repr)
		}
		return nil
	case *core.ArrayFormat:
		return e.analyzeFormat(env, head.Elem, d)
	case *core.ExtArrayFormat:
		if head.ByteLen == nil {
			return errAt(d.Span, ErrUnresolvedExistentialLength, "in %s", d.Name)
		}
		return e.analyzeFormat(env, head.Elem, d)
	case *core.WhereFormat:
		return e.analyzeFormat(env, head.Format, d)
	case *core.IntersectFormat:
		if err := e.analyzeFormat(env, head.Left, d); err != nil {
			return err
		}
		return e.analyzeFormat(env, head.Right, d)
	case *core.InterpFormat:
		return e.analyzeFormat(env, head.Format, d)
	case *core.SwitchFormat:
		for _, a := range head.Arms {
			if err := e.analyzeFormat(env, a.Body, d); err != nil {
				return err
			}
		}
		if head.Otherwise != nil {
			return e.analyzeFormat(env, head.Otherwise, d)
		}
		return nil
	case *core.ChoiceFormat:
		if err := e.checkDistinguishable(env, head, d); err != nil {
			return err
		}
		for i, o := range head.Options {
			last := i == len(head.Options)-1
			of := core.Normalize(env, o.Format)
			if !last && !e.opts.AllowNonLastUnknownChoice {
				if core.Classify(env, of).Kind == core.SizeUnknown && !refersToDecl(of, e.module) {
					return errAt(d.Span, ErrUnknownSizeNotLast, "option %s of %s", o.Name, d.Name)
				}
			}
			if err := e.analyzeFormat(env, o.Format, d); err != nil {
				return err
			}
		}
		return nil
	case *core.RepeatFormat:
		if head.Count == nil && core.MinSize(env, head.Elem).Sign() == 0 {
			return errAt(d.Span, ErrZeroWidthRepeat, "in %s", d.Name)
		}
		return e.analyzeFormat(env, head.Elem, d)
	case *core.LinkFormat:
		if head.Kind == core.LinkPointer {
			if core.Classify(env, core.Normalize(env, head.Target)).Kind == core.SizeUnknown {
				return errAt(d.Span, ErrPointeeUnknownSize, "in %s", d.Name)
			}
		}
		return e.analyzeFormat(env, head.Target, d)
	default:
		return nil
	}
}

// onlyEndFollows reports whether every remaining field is an end marker.
// An unknown-size field in that position still has a defined extent: it
// runs to the end of the input the marker asserts.
func onlyEndFollows(env *core.Context, fields []core.StructFormatField) bool {
	for _, f := range fields {
		if _, ok := core.Normalize(env, f.Format).(*core.EndFormat); !ok {
			return false
		}
	}
	return true
}

// declRef reports whether a term is a reference to (an instantiation of) a
// module declaration.
func declRef(t core.Term, m *ast.Module) (string, bool) {
	for {
		app, ok := t.(*core.App)
		if !ok {
			break
		}
		t = app.Fn
	}
	v, ok := t.(*core.Var)
	if !ok {
		return "", false
	}
	if _, ok := m.Lookup(v.Name); !ok {
		return "", false
	}
	return v.Name, true
}

// refersToDecl reports whether a format term mentions any declared name.
// Recursive declarations classify as unknown-size even when every concrete
// unfolding is bounded, so placement checks give them the benefit of the
// doubt; guarded-recursion checking still rules out non-productive cycles.
func refersToDecl(t core.Term, m *ast.Module) bool {
	for name := range core.FreeVars(t) {
		if _, ok := m.Lookup(name); ok {
			return true
		}
	}
	return false
}

// discriminant describes what the first bytes of a format can look like.
type discriminant struct {
	kind     discKind
	literals []core.Term
}

type discKind int

const (
	discAny     discKind = iota // no usable leading constraint
	discLiteral                 // leading value drawn from a literal set
	discEmpty                   // matches zero bytes unconditionally
	discEnd                     // matches zero bytes at end of input only
	discFail                    // never matches
)

// leadingDiscriminant extracts the discriminant of a format: the constraint
// literal on its first decoded value, if one exists.
func leadingDiscriminant(env *core.Context, t core.Term, depth int) discriminant {
	if depth > 32 {
		return discriminant{kind: discAny}
	}
	switch head := core.Normalize(env, t).(type) {
	case *core.StructFormat:
		if len(head.Fields) == 0 {
			return discriminant{kind: discEmpty}
		}
		return leadingDiscriminant(env, head.Fields[0].Format, depth+1)
	case *core.WhereFormat:
		if lits, ok := constraintLiterals(head.Name, head.Pred); ok {
			return discriminant{kind: discLiteral, literals: lits}
		}
		return leadingDiscriminant(env, head.Format, depth+1)
	case *core.IntersectFormat:
		left := leadingDiscriminant(env, head.Left, depth+1)
		if left.kind != discAny {
			return left
		}
		return leadingDiscriminant(env, head.Right, depth+1)
	case *core.InterpFormat:
		return leadingDiscriminant(env, head.Format, depth+1)
	case *core.ArrayFormat:
		return leadingDiscriminant(env, head.Elem, depth+1)
	case *core.RepeatFormat:
		return leadingDiscriminant(env, head.Elem, depth+1)
	case *core.EmptyFormat:
		return discriminant{kind: discEmpty}
	case *core.EndFormat:
		return discriminant{kind: discEnd}
	case *core.ErrorFormat:
		return discriminant{kind: discFail}
	default:
		return discriminant{kind: discAny}
	}
}

// constraintLiterals matches predicates of the shape name == lit, possibly
// joined by or, and collects the literal set.
func constraintLiterals(name string, pred core.Term) ([]core.Term, bool) {
	switch p := pred.(type) {
	case *core.Binary:
		switch p.Op {
		case ast.OpEq:
			if lit, ok := equatedLiteral(name, p.Left, p.Right); ok {
				return []core.Term{lit}, true
			}
			return nil, false
		case ast.OpOr:
			left, ok := constraintLiterals(name, p.Left)
			if !ok {
				return nil, false
			}
			right, ok := constraintLiterals(name, p.Right)
			if !ok {
				return nil, false
			}
			return append(left, right...), true
		}
	}
	return nil, false
}

func equatedLiteral(name string, a, b core.Term) (core.Term, bool) {
	if v, ok := a.(*core.Var); ok && v.Name == name && isLiteral(b) {
		return b, true
	}
	if v, ok := b.(*core.Var); ok && v.Name == name && isLiteral(a) {
		return a, true
	}
	return nil, false
}

func isLiteral(t core.Term) bool {
	switch t.(type) {
	case *core.IntLit, *core.StringLit, *core.BoolLit:
		return true
	}
	return false
}

// checkDistinguishable enforces pairwise disjoint discriminants over the
// options of a choice.
func (e *elaborator) checkDistinguishable(env *core.Context, c *core.ChoiceFormat, d *ast.Decl) error {
	discs := make([]discriminant, len(c.Options))
	for i, o := range c.Options {
		discs[i] = leadingDiscriminant(env, o.Format, 0)
	}
	for i := range discs {
		for j := i + 1; j < len(discs); j++ {
			if !disjoint(discs[i], discs[j]) {
				return errAt(d.Span, ErrNonDistinguishableChoice, "options %s and %s of %s",
					c.Options[i].Name, c.Options[j].Name, d.Name)
			}
		}
	}
	return nil
}

func disjoint(a, b discriminant) bool {
	if a.kind == discFail || b.kind == discFail {
		return true
	}
	zeroA := a.kind == discEmpty || a.kind == discEnd
	zeroB := b.kind == discEmpty || b.kind == discEnd
	if zeroA && zeroB {
		// Both match zero bytes; nothing tells them apart.
		return false
	}
	if zeroA || zeroB {
		return true
	}
	if a.kind != discLiteral || b.kind != discLiteral {
		return false
	}
	for _, la := range a.literals {
		for _, lb := range b.literals {
			if core.String(la) == core.String(lb) {
				return false
			}
		}
	}
	return true
}

// checkGuarded enforces that every recursive reference is reachable only
// after at least one byte has necessarily been consumed on every path from
// the declaration's own entry.
func (e *elaborator) checkGuarded(env *core.Context, d *ast.Decl) error {
	body := stripParams(e.defs[d.Name], len(d.Params))
	return e.guarded(env, body, d, false, map[string]bool{d.Name: true})
}

func (e *elaborator) guarded(env *core.Context, t core.Term, d *ast.Decl, consumed bool, visiting map[string]bool) error {
	switch t := t.(type) {
	case *core.Var:
		return e.guardedRef(env, t.Name, d, consumed, visiting)
	case *core.App:
		head := t.Fn
		for {
			app, ok := head.(*core.App)
			if !ok {
				break
			}
			head = app.Fn
		}
		if v, ok := head.(*core.Var); ok {
			return e.guardedRef(env, v.Name, d, consumed, visiting)
		}
		return nil
	case *core.StructFormat:
		for _, f := range t.Fields {
			if err := e.guarded(env, f.Format, d, consumed, visiting); err != nil {
				return err
			}
			if core.MinSize(env, f.Format).Sign() > 0 {
				consumed = true
			}
		}
		return nil
	case *core.ArrayFormat:
		return e.guarded(env, t.Elem, d, consumed, visiting)
	case *core.ExtArrayFormat:
		return e.guarded(env, t.Elem, d, consumed, visiting)
	case *core.WhereFormat:
		return e.guarded(env, t.Format, d, consumed, visiting)
	case *core.IntersectFormat:
		if err := e.guarded(env, t.Left, d, consumed, visiting); err != nil {
			return err
		}
		return e.guarded(env, t.Right, d, consumed, visiting)
	case *core.InterpFormat:
		return e.guarded(env, t.Format, d, consumed, visiting)
	case *core.SwitchFormat:
		for _, a := range t.Arms {
			if err := e.guarded(env, a.Body, d, consumed, visiting); err != nil {
				return err
			}
		}
		if t.Otherwise != nil {
			return e.guarded(env, t.Otherwise, d, consumed, visiting)
		}
		return nil
	case *core.ChoiceFormat:
		for _, o := range t.Options {
			if err := e.guarded(env, o.Format, d, consumed, visiting); err != nil {
				return err
			}
		}
		return nil
	case *core.RepeatFormat:
		return e.guarded(env, t.Elem, d, consumed, visiting)
	case *core.LinkFormat:
		// The offset field is decoded before the pointee is followed.
		return e.guarded(env, t.Target, d, true, visiting)
	case *core.If:
		if err := e.guarded(env, t.Then, d, consumed, visiting); err != nil {
			return err
		}
		return e.guarded(env, t.Else, d, consumed, visiting)
	case *core.Lam:
		return e.guarded(env, t.Body, d, consumed, visiting)
	default:
		return nil
	}
}

func (e *elaborator) guardedRef(env *core.Context, name string, d *ast.Decl, consumed bool, visiting map[string]bool) error {
	ref, ok := e.module.Lookup(name)
	if !ok {
		return nil
	}
	if consumed {
		return nil
	}
	if visiting[name] {
		return errAt(d.Span, ErrUnguardedRecursion, "%s refers back to itself before consuming any input", name)
	}
	visiting[name] = true
	defer delete(visiting, name)
	return e.guarded(env, stripParams(e.defs[ref.Name], len(ref.Params)), d, false, visiting)
}
