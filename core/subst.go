package core

import (
	"fmt"
	"math/big"
)

// FreeVars collects the free variable names of a term.
func FreeVars(t Term) map[string]struct{} {
	free := make(map[string]struct{})
	collectFree(t, map[string]int{}, free)
	return free
}

func collectFree(t Term, bound map[string]int, free map[string]struct{}) {
	push := func(name string) { bound[name]++ }
	pop := func(name string) {
		bound[name]--
		if bound[name] == 0 {
			delete(bound, name)
		}
	}

	switch t := t.(type) {
	case nil:
	case *Var:
		if _, ok := bound[t.Name]; !ok {
			free[t.Name] = struct{}{}
		}
	case *Annot:
		collectFree(t.Term, bound, free)
		collectFree(t.Type, bound, free)
	case *Pi:
		collectFree(t.ParamType, bound, free)
		if t.Param != "" {
			push(t.Param)
			defer pop(t.Param)
		}
		collectFree(t.Body, bound, free)
	case *Lam:
		push(t.Param)
		collectFree(t.Body, bound, free)
		pop(t.Param)
	case *App:
		collectFree(t.Fn, bound, free)
		collectFree(t.Arg, bound, free)
	case *RecordType:
		popped := 0
		for _, f := range t.Fields {
			collectFree(f.Type, bound, free)
			push(f.Name)
			popped++
		}
		for i := len(t.Fields) - 1; i >= 0; i-- {
			pop(t.Fields[i].Name)
		}
		_ = popped
	case *RecordLit:
		for _, f := range t.Fields {
			collectFree(f.Value, bound, free)
		}
	case *Proj:
		collectFree(t.Term, bound, free)
	case *If:
		collectFree(t.Cond, bound, free)
		collectFree(t.Then, bound, free)
		collectFree(t.Else, bound, free)
	case *Binary:
		collectFree(t.Left, bound, free)
		collectFree(t.Right, bound, free)
	case *Not:
		collectFree(t.Term, bound, free)
	case *SizeOf:
		collectFree(t.Term, bound, free)
	case *VectorType:
		collectFree(t.Elem, bound, free)
	case *SumType:
		for _, v := range t.Variants {
			collectFree(v.Type, bound, free)
		}
	case *StrFormat:
		collectFree(t.Len, bound, free)
	case *ArrayFormat:
		collectFree(t.Elem, bound, free)
		collectFree(t.Len, bound, free)
	case *ExtArrayFormat:
		collectFree(t.Elem, bound, free)
		collectFree(t.ByteLen, bound, free)
	case *StructFormat:
		for _, f := range t.Fields {
			collectFree(f.Format, bound, free)
			push(f.Name)
		}
		for i := len(t.Fields) - 1; i >= 0; i-- {
			pop(t.Fields[i].Name)
		}
	case *WhereFormat:
		collectFree(t.Format, bound, free)
		push(t.Name)
		collectFree(t.Pred, bound, free)
		pop(t.Name)
	case *IntersectFormat:
		collectFree(t.Left, bound, free)
		collectFree(t.Right, bound, free)
	case *InterpFormat:
		collectFree(t.Format, bound, free)
		collectFree(t.Conv, bound, free)
		collectFree(t.Repr, bound, free)
		collectFree(t.Inverse, bound, free)
	case *SwitchFormat:
		collectFree(t.Scrutinee, bound, free)
		for _, arm := range t.Arms {
			collectFree(arm.Pattern, bound, free)
			collectFree(arm.Body, bound, free)
		}
		collectFree(t.Otherwise, bound, free)
	case *ChoiceFormat:
		for _, opt := range t.Options {
			collectFree(opt.Format, bound, free)
		}
	case *RepeatFormat:
		collectFree(t.Count, bound, free)
		collectFree(t.Elem, bound, free)
	case *LinkFormat:
		collectFree(t.Offset, bound, free)
		collectFree(t.Length, bound, free)
		collectFree(t.Target, bound, free)
	case *SumLit:
		collectFree(t.Value, bound, free)
	case *VectorLit:
		for _, e := range t.Elems {
			collectFree(e, bound, free)
		}
	}
}

var freshCounter int

func freshName(base string) string {
	freshCounter++
	return fmt.Sprintf("%s$%d", base, freshCounter)
}

// Subst replaces free occurrences of name with repl. Lambda, Pi and where
// binders are renamed when they would capture a free variable of repl.
// Struct and record-type field names are semantic (they key the decoded
// record) and are never renamed; a field binding simply shadows, which is
// sound because the engine only ever substitutes values whose free
// variables are enclosing binders, not field names of inner structs.
func Subst(t Term, name string, repl Term) Term {
	if t == nil {
		return nil
	}
	switch t := t.(type) {
	case *Var:
		if t.Name == name {
			return repl
		}
		return t
	case *Universe, *FormatKind, *IntType, *BoolType, *FloatType, *StringType,
		*UnitType, *BottomType, *UnitLit, *BoolLit, *IntLit, *FloatLit,
		*StringLit, *IntFormat, *FloatFormat, *EmptyFormat, *ErrorFormat,
		*EndFormat:
		return t
	case *Annot:
		return &Annot{Term: Subst(t.Term, name, repl), Type: Subst(t.Type, name, repl)}
	case *Pi:
		paramType := Subst(t.ParamType, name, repl)
		if t.Param == name || t.Param == "" {
			if t.Param == name {
				return &Pi{Param: t.Param, ParamType: paramType, Body: t.Body}
			}
			return &Pi{Param: t.Param, ParamType: paramType, Body: Subst(t.Body, name, repl)}
		}
		param, body := avoidCapture(t.Param, t.Body, repl)
		return &Pi{Param: param, ParamType: paramType, Body: Subst(body, name, repl)}
	case *Lam:
		if t.Param == name {
			return t
		}
		param, body := avoidCapture(t.Param, t.Body, repl)
		return &Lam{Param: param, Body: Subst(body, name, repl)}
	case *App:
		return &App{Fn: Subst(t.Fn, name, repl), Arg: Subst(t.Arg, name, repl)}
	case *RecordType:
		fields := make([]RecordTypeField, len(t.Fields))
		shadowed := false
		for i, f := range t.Fields {
			if shadowed {
				fields[i] = f
				continue
			}
			fields[i] = RecordTypeField{Name: f.Name, Type: Subst(f.Type, name, repl)}
			if f.Name == name {
				shadowed = true
			}
		}
		return &RecordType{Fields: fields}
	case *RecordLit:
		fields := make([]RecordField, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = RecordField{Name: f.Name, Value: Subst(f.Value, name, repl)}
		}
		return &RecordLit{Fields: fields}
	case *Proj:
		return &Proj{Term: Subst(t.Term, name, repl), Field: t.Field}
	case *If:
		return &If{
			Cond: Subst(t.Cond, name, repl),
			Then: Subst(t.Then, name, repl),
			Else: Subst(t.Else, name, repl),
		}
	case *Binary:
		return &Binary{Op: t.Op, Left: Subst(t.Left, name, repl), Right: Subst(t.Right, name, repl)}
	case *Not:
		return &Not{Term: Subst(t.Term, name, repl)}
	case *SizeOf:
		return &SizeOf{Term: Subst(t.Term, name, repl)}
	case *VectorType:
		return &VectorType{Elem: Subst(t.Elem, name, repl)}
	case *SumType:
		variants := make([]SumVariant, len(t.Variants))
		for i, v := range t.Variants {
			variants[i] = SumVariant{Name: v.Name, Type: Subst(v.Type, name, repl)}
		}
		return &SumType{Variants: variants}
	case *StrFormat:
		return &StrFormat{Len: Subst(t.Len, name, repl), Encoding: t.Encoding}
	case *ArrayFormat:
		return &ArrayFormat{Elem: Subst(t.Elem, name, repl), Len: Subst(t.Len, name, repl)}
	case *ExtArrayFormat:
		return &ExtArrayFormat{Elem: Subst(t.Elem, name, repl), ByteLen: Subst(t.ByteLen, name, repl)}
	case *StructFormat:
		fields := make([]StructFormatField, len(t.Fields))
		shadowed := false
		for i, f := range t.Fields {
			if shadowed {
				fields[i] = f
				continue
			}
			fields[i] = StructFormatField{Name: f.Name, Format: Subst(f.Format, name, repl)}
			if f.Name == name {
				shadowed = true
			}
		}
		return &StructFormat{Fields: fields}
	case *WhereFormat:
		format := Subst(t.Format, name, repl)
		if t.Name == name {
			return &WhereFormat{Name: t.Name, Format: format, Pred: t.Pred}
		}
		return &WhereFormat{Name: t.Name, Format: format, Pred: Subst(t.Pred, name, repl)}
	case *IntersectFormat:
		return &IntersectFormat{Left: Subst(t.Left, name, repl), Right: Subst(t.Right, name, repl)}
	case *InterpFormat:
		return &InterpFormat{
			Format:  Subst(t.Format, name, repl),
			Conv:    Subst(t.Conv, name, repl),
			Repr:    Subst(t.Repr, name, repl),
			Inverse: Subst(t.Inverse, name, repl),
		}
	case *SwitchFormat:
		arms := make([]SwitchArm, len(t.Arms))
		for i, arm := range t.Arms {
			arms[i] = SwitchArm{
				Pattern: Subst(arm.Pattern, name, repl),
				Body:    Subst(arm.Body, name, repl),
			}
		}
		return &SwitchFormat{
			Scrutinee: Subst(t.Scrutinee, name, repl),
			Arms:      arms,
			Otherwise: Subst(t.Otherwise, name, repl),
		}
	case *ChoiceFormat:
		options := make([]ChoiceOption, len(t.Options))
		for i, opt := range t.Options {
			options[i] = ChoiceOption{Name: opt.Name, Format: Subst(opt.Format, name, repl)}
		}
		return &ChoiceFormat{Options: options}
	case *RepeatFormat:
		return &RepeatFormat{Count: Subst(t.Count, name, repl), Elem: Subst(t.Elem, name, repl)}
	case *LinkFormat:
		return &LinkFormat{
			Kind:   t.Kind,
			Base:   t.Base,
			Offset: Subst(t.Offset, name, repl),
			Length: Subst(t.Length, name, repl),
			Target: Subst(t.Target, name, repl),
		}
	case *SumLit:
		return &SumLit{Branch: t.Branch, Name: t.Name, Value: Subst(t.Value, name, repl)}
	case *VectorLit:
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Subst(e, name, repl)
		}
		return &VectorLit{Elems: elems}
	default:
		panic(fmt.Sprintf("core: substitution over unknown term %T", t))
	}
}

func avoidCapture(param string, body, repl Term) (string, Term) {
	if _, captures := FreeVars(repl)[param]; !captures {
		return param, body
	}
	renamed := freshName(param)
	return renamed, Subst(body, param, &Var{Name: renamed})
}

// CloneInt copies a big integer so shared literals stay immutable.
func CloneInt(v *big.Int) *big.Int {
	return new(big.Int).Set(v)
}
