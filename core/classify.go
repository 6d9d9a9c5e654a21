package core

import (
	"math/big"
)

// SizeKind partitions formats by how much of their encoded size is known
// statically.
type SizeKind int

const (
	// SizeFixed formats occupy the same number of bytes in every encoding.
	SizeFixed SizeKind = iota
	// SizeVariable formats have data-dependent extent that decoding can
	// still delimit on its own.
	SizeVariable
	// SizeUnknown formats cannot delimit their own extent; they are only
	// usable where the surrounding context bounds them.
	SizeUnknown
)

func (k SizeKind) String() string {
	switch k {
	case SizeFixed:
		return "fixed"
	case SizeVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// SizeClass is the result of classifying a format term. Size is populated
// only when Kind is SizeFixed.
type SizeClass struct {
	Kind SizeKind
	Size *big.Int
}

func fixed(n int64) SizeClass { return SizeClass{Kind: SizeFixed, Size: big.NewInt(n)} }
func fixedBig(n *big.Int) SizeClass { return SizeClass{Kind: SizeFixed, Size: n} }

var (
	variable = SizeClass{Kind: SizeVariable}
	unknown  = SizeClass{Kind: SizeUnknown}
)

// Classify determines the size class of a format term under the context.
// Recursive format references classify as unknown rather than diverging.
func Classify(env *Context, t Term) SizeClass {
	return classify(env, t, map[string]bool{})
}

func classify(env *Context, t Term, seen map[string]bool) SizeClass {
	t = unfold(env, t, seen, func() Term { return nil })
	if t == nil {
		return unknown
	}
	switch t := t.(type) {
	case *IntFormat:
		return fixed(int64(t.Bits / 8))
	case *FloatFormat:
		return fixed(int64(t.Bits / 8))
	case *StrFormat:
		if n, ok := Normalize(env, t.Len).(*IntLit); ok {
			return fixedBig(n.Value)
		}
		return variable
	case *ArrayFormat:
		elem := classify(env, t.Elem, seen)
		if elem.Kind == SizeUnknown {
			return unknown
		}
		n, literal := Normalize(env, t.Len).(*IntLit)
		if elem.Kind == SizeFixed && literal {
			return fixedBig(new(big.Int).Mul(n.Value, elem.Size))
		}
		return variable
	case *ExtArrayFormat:
		if n, ok := Normalize(env, t.ByteLen).(*IntLit); ok {
			return fixedBig(n.Value)
		}
		return variable
	case *StructFormat:
		total := big.NewInt(0)
		kind := SizeFixed
		for _, f := range t.Fields {
			fc := classify(env, f.Format, seen)
			switch fc.Kind {
			case SizeUnknown:
				return unknown
			case SizeVariable:
				kind = SizeVariable
			case SizeFixed:
				if kind == SizeFixed {
					total.Add(total, fc.Size)
				}
			}
		}
		if kind == SizeFixed {
			return fixedBig(total)
		}
		return variable
	case *WhereFormat:
		return classify(env, t.Format, seen)
	case *IntersectFormat:
		left := classify(env, t.Left, seen)
		if left.Kind == SizeFixed {
			return left
		}
		right := classify(env, t.Right, seen)
		if right.Kind == SizeFixed {
			return right
		}
		if left.Kind == SizeUnknown || right.Kind == SizeUnknown {
			return unknown
		}
		return variable
	case *InterpFormat:
		return classify(env, t.Format, seen)
	case *SwitchFormat:
		branches := make([]Term, 0, len(t.Arms)+1)
		for _, a := range t.Arms {
			branches = append(branches, a.Body)
		}
		if t.Otherwise != nil {
			branches = append(branches, t.Otherwise)
		}
		return classifyBranches(env, branches, seen)
	case *ChoiceFormat:
		branches := make([]Term, 0, len(t.Options))
		for _, o := range t.Options {
			branches = append(branches, o.Format)
		}
		return classifyBranches(env, branches, seen)
	case *EmptyFormat, *ErrorFormat, *EndFormat:
		return fixed(0)
	case *RepeatFormat:
		if t.Count == nil {
			// An unbounded repeat has no extent of its own; only the
			// surrounding context (end of input, an end marker) stops it.
			return unknown
		}
		elem := classify(env, t.Elem, seen)
		if elem.Kind == SizeUnknown {
			return unknown
		}
		n, literal := Normalize(env, t.Count).(*IntLit)
		if !literal {
			// A symbolic count cannot be bounded without the
			// surrounding context supplying it.
			return unknown
		}
		if elem.Kind == SizeFixed {
			return fixedBig(new(big.Int).Mul(n.Value, elem.Size))
		}
		return variable
	case *LinkFormat:
		// The link occupies its offset (and, for slices, length) fields
		// in the stream; the referent is read out-of-band.
		out := classify(env, t.Offset, seen)
		if t.Length == nil || out.Kind != SizeFixed {
			return out
		}
		lc := classify(env, t.Length, seen)
		if lc.Kind != SizeFixed {
			return lc
		}
		return fixedBig(new(big.Int).Add(out.Size, lc.Size))
	default:
		return unknown
	}
}

// classifyBranches joins the classifications of alternative branches: all
// fixed at the same size stays fixed, otherwise the join degrades.
func classifyBranches(env *Context, branches []Term, seen map[string]bool) SizeClass {
	if len(branches) == 0 {
		return fixed(0)
	}
	first := classify(env, branches[0], seen)
	out := first
	for _, b := range branches[1:] {
		bc := classify(env, b, seen)
		if bc.Kind == SizeUnknown {
			return unknown
		}
		if out.Kind == SizeFixed && bc.Kind == SizeFixed && out.Size.Cmp(bc.Size) == 0 {
			continue
		}
		out = variable
	}
	if out.Kind == SizeUnknown {
		return unknown
	}
	return out
}

// MinSize computes a lower bound on the number of bytes any successful
// decoding of the format consumes. Recursive references are assumed to make
// progress, so a cycle contributes at least one byte.
func MinSize(env *Context, t Term) *big.Int {
	return minSize(env, t, map[string]bool{})
}

var one = big.NewInt(1)

func minSize(env *Context, t Term, seen map[string]bool) *big.Int {
	t = unfold(env, t, seen, func() Term { return nil })
	if t == nil {
		return new(big.Int).Set(one)
	}
	switch t := t.(type) {
	case *IntFormat:
		return big.NewInt(int64(t.Bits / 8))
	case *FloatFormat:
		return big.NewInt(int64(t.Bits / 8))
	case *StrFormat:
		if n, ok := Normalize(env, t.Len).(*IntLit); ok {
			return new(big.Int).Set(n.Value)
		}
		return big.NewInt(0)
	case *ArrayFormat:
		if n, ok := Normalize(env, t.Len).(*IntLit); ok {
			return new(big.Int).Mul(n.Value, minSize(env, t.Elem, seen))
		}
		return big.NewInt(0)
	case *ExtArrayFormat:
		if n, ok := Normalize(env, t.ByteLen).(*IntLit); ok {
			return new(big.Int).Set(n.Value)
		}
		return big.NewInt(0)
	case *StructFormat:
		total := big.NewInt(0)
		for _, f := range t.Fields {
			total.Add(total, minSize(env, f.Format, seen))
		}
		return total
	case *WhereFormat:
		return minSize(env, t.Format, seen)
	case *IntersectFormat:
		l := minSize(env, t.Left, seen)
		r := minSize(env, t.Right, seen)
		if l.Cmp(r) >= 0 {
			return l
		}
		return r
	case *InterpFormat:
		return minSize(env, t.Format, seen)
	case *SwitchFormat:
		min := (*big.Int)(nil)
		for _, a := range t.Arms {
			min = minOf(min, minSize(env, a.Body, seen))
		}
		if t.Otherwise != nil {
			min = minOf(min, minSize(env, t.Otherwise, seen))
		}
		if min == nil {
			return big.NewInt(0)
		}
		return min
	case *ChoiceFormat:
		min := (*big.Int)(nil)
		for _, o := range t.Options {
			min = minOf(min, minSize(env, o.Format, seen))
		}
		if min == nil {
			return big.NewInt(0)
		}
		return min
	case *RepeatFormat:
		if t.Count == nil {
			return big.NewInt(0)
		}
		if n, ok := Normalize(env, t.Count).(*IntLit); ok {
			return new(big.Int).Mul(n.Value, minSize(env, t.Elem, seen))
		}
		return big.NewInt(0)
	case *LinkFormat:
		total := minSize(env, t.Offset, seen)
		if t.Length != nil {
			total = new(big.Int).Add(total, minSize(env, t.Length, seen))
		}
		return total
	default:
		return big.NewInt(0)
	}
}

func minOf(a, b *big.Int) *big.Int {
	if a == nil || b.Cmp(a) < 0 {
		return b
	}
	return a
}

// unfold resolves a neutral reference through the context before
// classification, detecting cycles through the seen set. It returns the
// cycle fallback's result (nil Term means "cyclic") when the reference is
// already being unfolded.
func unfold(env *Context, t Term, seen map[string]bool, onCycle func() Term) Term {
	for {
		switch head := t.(type) {
		case *Var:
			key := head.Name
			if seen[key] {
				return onCycle()
			}
			def, ok := env.LookupDef(head.Name)
			if !ok {
				return t
			}
			seen[key] = true
			t = Normalize(env, def)
		case *App:
			key := String(t)
			if seen[key] {
				return onCycle()
			}
			next := Normalize(env, t)
			if sameTerm(next, t) {
				return next
			}
			seen[key] = true
			t = next
		case *Annot:
			t = head.Term
		case *If, *Proj, *SizeOf, *Binary:
			next := Normalize(env, t)
			if sameTerm(next, t) {
				return next
			}
			t = next
		default:
			return t
		}
	}
}

func sameTerm(a, b Term) bool {
	if a == b {
		return true
	}
	return String(a) == String(b)
}
