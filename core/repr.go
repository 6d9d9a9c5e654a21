package core

import (
	"fmt"
	"strconv"
)

// ReprOf projects a format term onto the host type of the values its decoder
// produces and its encoder consumes. The input must be in weak-head normal
// form headed by a format former.
func ReprOf(env *Context, t Term) (Term, error) {
	return reprOf(env, t, map[string]bool{})
}

func reprOf(env *Context, t Term, seen map[string]bool) (Term, error) {
	t = unfold(env, t, seen, func() Term { return t })
	switch t := t.(type) {
	case *IntFormat:
		return &IntType{}, nil
	case *FloatFormat:
		return &FloatType{}, nil
	case *StrFormat:
		return &StringType{}, nil
	case *ArrayFormat:
		elem, err := reprOf(env, t.Elem, seen)
		if err != nil {
			return nil, err
		}
		return &VectorType{Elem: elem}, nil
	case *ExtArrayFormat:
		elem, err := reprOf(env, t.Elem, seen)
		if err != nil {
			return nil, err
		}
		return &VectorType{Elem: elem}, nil
	case *StructFormat:
		fields := make([]RecordTypeField, 0, len(t.Fields))
		inner := env
		for _, f := range t.Fields {
			fr, err := reprOf(inner, f.Format, seen)
			if err != nil {
				return nil, err
			}
			fields = append(fields, RecordTypeField{Name: f.Name, Type: fr})
			inner = inner.ExtendClaim(f.Name, fr)
		}
		return &RecordType{Fields: fields}, nil
	case *WhereFormat:
		return reprOf(env, t.Format, seen)
	case *IntersectFormat:
		left, err := reprOf(env, t.Left, seen)
		if err != nil {
			return nil, err
		}
		right, err := reprOf(env, t.Right, seen)
		if err != nil {
			return nil, err
		}
		return &RecordType{Fields: []RecordTypeField{
			{Name: "left", Type: left},
			{Name: "right", Type: right},
		}}, nil
	case *InterpFormat:
		return t.Repr, nil
	case *SwitchFormat:
		branches := make([]Term, 0, len(t.Arms)+1)
		names := make([]string, 0, len(t.Arms)+1)
		for i, a := range t.Arms {
			branches = append(branches, a.Body)
			names = append(names, "arm"+strconv.Itoa(i))
		}
		if t.Otherwise != nil {
			branches = append(branches, t.Otherwise)
			names = append(names, "otherwise")
		}
		return joinReprs(env, names, branches, seen)
	case *ChoiceFormat:
		branches := make([]Term, 0, len(t.Options))
		names := make([]string, 0, len(t.Options))
		for _, o := range t.Options {
			branches = append(branches, o.Format)
			names = append(names, o.Name)
		}
		return joinReprs(env, names, branches, seen)
	case *EmptyFormat:
		return &UnitType{}, nil
	case *ErrorFormat:
		return &BottomType{}, nil
	case *EndFormat:
		return &UnitType{}, nil
	case *RepeatFormat:
		elem, err := reprOf(env, t.Elem, seen)
		if err != nil {
			return nil, err
		}
		return &VectorType{Elem: elem}, nil
	case *LinkFormat:
		target, err := reprOf(env, t.Target, seen)
		if err != nil {
			return nil, err
		}
		if t.Kind == LinkSlice {
			target = &VectorType{Elem: target}
		}
		return &RecordType{Fields: []RecordTypeField{
			{Name: "offset", Type: &IntType{}},
			{Name: "target", Type: target},
		}}, nil
	default:
		// Cyclic or parameter-dependent references stay symbolic; the
		// representation is resolved when the reference is.
		if IsNeutral(t) {
			return t, nil
		}
		return nil, fmt.Errorf("term %s is not a format", String(t))
	}
}

// joinReprs collapses alternative branch representations into one type. If
// every branch agrees up to conversion the shared type wins; otherwise the
// branches form a sum tagged by branch name.
func joinReprs(env *Context, names []string, branches []Term, seen map[string]bool) (Term, error) {
	if len(branches) == 0 {
		return &UnitType{}, nil
	}
	reprs := make([]Term, len(branches))
	for i, b := range branches {
		r, err := reprOf(env, b, seen)
		if err != nil {
			return nil, err
		}
		reprs[i] = r
	}
	shared := reprs[0]
	agree := true
	for _, r := range reprs[1:] {
		if _, isBottom := r.(*BottomType); isBottom {
			continue
		}
		if _, isBottom := shared.(*BottomType); isBottom {
			shared = r
			continue
		}
		if !Convertible(env, shared, r) {
			agree = false
			break
		}
	}
	if agree {
		return shared, nil
	}
	variants := make([]SumVariant, len(branches))
	for i := range branches {
		variants[i] = SumVariant{Name: names[i], Type: reprs[i]}
	}
	return &SumType{Variants: variants}, nil
}
