package core

// Convertible reports whether two terms are equal up to normalization and
// renaming of bound variables. Both sides are reduced to weak-head normal
// form before comparison, then compared structurally with recursive
// conversion on the subterms.
func Convertible(env *Context, a, b Term) bool {
	return convertible(env, a, b, 0)
}

const maxConvertDepth = 512

func convertible(env *Context, a, b Term, depth int) bool {
	if depth > maxConvertDepth {
		return false
	}
	a = Normalize(env, a)
	b = Normalize(env, b)

	switch a := a.(type) {
	case *Var:
		b, ok := b.(*Var)
		return ok && a.Name == b.Name
	case *Universe:
		b, ok := b.(*Universe)
		return ok && a.Level == b.Level
	case *FormatKind:
		_, ok := b.(*FormatKind)
		return ok
	case *IntType:
		_, ok := b.(*IntType)
		return ok
	case *BoolType:
		_, ok := b.(*BoolType)
		return ok
	case *FloatType:
		_, ok := b.(*FloatType)
		return ok
	case *StringType:
		_, ok := b.(*StringType)
		return ok
	case *UnitType:
		_, ok := b.(*UnitType)
		return ok
	case *BottomType:
		_, ok := b.(*BottomType)
		return ok
	case *VectorType:
		b, ok := b.(*VectorType)
		return ok && convertible(env, a.Elem, b.Elem, depth+1)
	case *SumType:
		b, ok := b.(*SumType)
		if !ok || len(a.Variants) != len(b.Variants) {
			return false
		}
		for i := range a.Variants {
			if a.Variants[i].Name != b.Variants[i].Name {
				return false
			}
			if !convertible(env, a.Variants[i].Type, b.Variants[i].Type, depth+1) {
				return false
			}
		}
		return true
	case *UnitLit:
		_, ok := b.(*UnitLit)
		return ok
	case *BoolLit:
		b, ok := b.(*BoolLit)
		return ok && a.Value == b.Value
	case *IntLit:
		b, ok := b.(*IntLit)
		return ok && a.Value.Cmp(b.Value) == 0
	case *FloatLit:
		b, ok := b.(*FloatLit)
		return ok && a.Value == b.Value
	case *StringLit:
		b, ok := b.(*StringLit)
		return ok && a.Value == b.Value
	case *Pi:
		b, ok := b.(*Pi)
		if !ok || !convertible(env, a.ParamType, b.ParamType, depth+1) {
			return false
		}
		return convertibleUnderBinder(env, a.Param, a.Body, b.Param, b.Body, depth)
	case *Lam:
		b, ok := b.(*Lam)
		if !ok {
			return false
		}
		return convertibleUnderBinder(env, a.Param, a.Body, b.Param, b.Body, depth)
	case *App:
		b, ok := b.(*App)
		return ok && convertible(env, a.Fn, b.Fn, depth+1) && convertible(env, a.Arg, b.Arg, depth+1)
	case *RecordType:
		b, ok := b.(*RecordType)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				return false
			}
			if !convertible(env, a.Fields[i].Type, b.Fields[i].Type, depth+1) {
				return false
			}
		}
		return true
	case *RecordLit:
		b, ok := b.(*RecordLit)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				return false
			}
			if !convertible(env, a.Fields[i].Value, b.Fields[i].Value, depth+1) {
				return false
			}
		}
		return true
	case *Proj:
		b, ok := b.(*Proj)
		return ok && a.Field == b.Field && convertible(env, a.Term, b.Term, depth+1)
	case *If:
		b, ok := b.(*If)
		return ok && convertible(env, a.Cond, b.Cond, depth+1) &&
			convertible(env, a.Then, b.Then, depth+1) &&
			convertible(env, a.Else, b.Else, depth+1)
	case *Binary:
		b, ok := b.(*Binary)
		return ok && a.Op == b.Op &&
			convertible(env, a.Left, b.Left, depth+1) &&
			convertible(env, a.Right, b.Right, depth+1)
	case *Not:
		b, ok := b.(*Not)
		return ok && convertible(env, a.Term, b.Term, depth+1)
	case *SizeOf:
		b, ok := b.(*SizeOf)
		return ok && convertible(env, a.Term, b.Term, depth+1)
	case *IntFormat:
		b, ok := b.(*IntFormat)
		return ok && a.Bits == b.Bits && a.Signed == b.Signed && a.Order == b.Order
	case *FloatFormat:
		b, ok := b.(*FloatFormat)
		return ok && a.Bits == b.Bits && a.Order == b.Order
	case *StrFormat:
		b, ok := b.(*StrFormat)
		return ok && a.Encoding == b.Encoding && convertible(env, a.Len, b.Len, depth+1)
	case *ArrayFormat:
		b, ok := b.(*ArrayFormat)
		return ok && convertible(env, a.Elem, b.Elem, depth+1) && convertible(env, a.Len, b.Len, depth+1)
	case *ExtArrayFormat:
		b, ok := b.(*ExtArrayFormat)
		return ok && convertible(env, a.Elem, b.Elem, depth+1) && convertible(env, a.ByteLen, b.ByteLen, depth+1)
	case *StructFormat:
		b, ok := b.(*StructFormat)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				return false
			}
			if !convertible(env, a.Fields[i].Format, b.Fields[i].Format, depth+1) {
				return false
			}
		}
		return true
	case *WhereFormat:
		b, ok := b.(*WhereFormat)
		if !ok || !convertible(env, a.Format, b.Format, depth+1) {
			return false
		}
		return convertibleUnderBinder(env, a.Name, a.Pred, b.Name, b.Pred, depth)
	case *IntersectFormat:
		b, ok := b.(*IntersectFormat)
		return ok && convertible(env, a.Left, b.Left, depth+1) && convertible(env, a.Right, b.Right, depth+1)
	case *InterpFormat:
		b, ok := b.(*InterpFormat)
		return ok && convertible(env, a.Format, b.Format, depth+1) && convertible(env, a.Conv, b.Conv, depth+1)
	case *SwitchFormat:
		b, ok := b.(*SwitchFormat)
		if !ok || len(a.Arms) != len(b.Arms) {
			return false
		}
		if !convertible(env, a.Scrutinee, b.Scrutinee, depth+1) {
			return false
		}
		for i := range a.Arms {
			if !convertible(env, a.Arms[i].Pattern, b.Arms[i].Pattern, depth+1) {
				return false
			}
			if !convertible(env, a.Arms[i].Body, b.Arms[i].Body, depth+1) {
				return false
			}
		}
		if (a.Otherwise == nil) != (b.Otherwise == nil) {
			return false
		}
		return a.Otherwise == nil || convertible(env, a.Otherwise, b.Otherwise, depth+1)
	case *ChoiceFormat:
		b, ok := b.(*ChoiceFormat)
		if !ok || len(a.Options) != len(b.Options) {
			return false
		}
		for i := range a.Options {
			if a.Options[i].Name != b.Options[i].Name {
				return false
			}
			if !convertible(env, a.Options[i].Format, b.Options[i].Format, depth+1) {
				return false
			}
		}
		return true
	case *EmptyFormat:
		_, ok := b.(*EmptyFormat)
		return ok
	case *ErrorFormat:
		_, ok := b.(*ErrorFormat)
		return ok
	case *EndFormat:
		_, ok := b.(*EndFormat)
		return ok
	case *RepeatFormat:
		b, ok := b.(*RepeatFormat)
		if !ok || (a.Count == nil) != (b.Count == nil) {
			return false
		}
		if a.Count != nil && !convertible(env, a.Count, b.Count, depth+1) {
			return false
		}
		return convertible(env, a.Elem, b.Elem, depth+1)
	case *LinkFormat:
		b, ok := b.(*LinkFormat)
		if !ok || a.Kind != b.Kind || a.Base != b.Base {
			return false
		}
		if !convertible(env, a.Offset, b.Offset, depth+1) {
			return false
		}
		if (a.Length == nil) != (b.Length == nil) {
			return false
		}
		if a.Length != nil && !convertible(env, a.Length, b.Length, depth+1) {
			return false
		}
		return convertible(env, a.Target, b.Target, depth+1)
	case *SumLit:
		b, ok := b.(*SumLit)
		return ok && a.Name == b.Name && convertible(env, a.Value, b.Value, depth+1)
	case *VectorLit:
		b, ok := b.(*VectorLit)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !convertible(env, a.Elems[i], b.Elems[i], depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// convertibleUnderBinder compares two binder bodies by substituting a shared
// fresh variable for both bound names.
func convertibleUnderBinder(env *Context, aName string, aBody Term, bName string, bBody Term, depth int) bool {
	fresh := &Var{Name: freshName("$cmp")}
	aBody = Subst(aBody, aName, fresh)
	bBody = Subst(bBody, bName, fresh)
	return convertible(env, aBody, bBody, depth+1)
}
