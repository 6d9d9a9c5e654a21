package elab

import (
	"github.com/partite-ai/binform/ast"
)

// inferParamKinds decides, for every declaration parameter, whether it
// stands for a value or for a format. A parameter is a format when some
// body uses it in format position, directly or by passing it to another
// declaration's format parameter. The scan iterates to a fixed point, so
// kinds propagate through call chains in any declaration order.
func inferParamKinds(m *ast.Module) map[string][]paramKind {
	kinds := map[string][]paramKind{}
	for i := range m.Decls {
		kinds[m.Decls[i].Name] = make([]paramKind, len(m.Decls[i].Params))
	}
	for changed := true; changed; {
		changed = false
		for i := range m.Decls {
			d := &m.Decls[i]
			s := &paramScan{module: m, kinds: kinds, decl: d}
			s.walk(d.Body, true)
			for j, p := range d.Params {
				if s.formats[p] && kinds[d.Name][j] != paramFormat {
					kinds[d.Name][j] = paramFormat
					changed = true
				}
			}
		}
	}
	return kinds
}

type paramScan struct {
	module  *ast.Module
	kinds   map[string][]paramKind
	decl    *ast.Decl
	formats map[string]bool
}

func (s *paramScan) mark(name string) {
	for _, p := range s.decl.Params {
		if p == name {
			if s.formats == nil {
				s.formats = map[string]bool{}
			}
			s.formats[name] = true
			return
		}
	}
}

// walk traverses a raw term; formatPos tracks whether the current position
// expects a format.
func (s *paramScan) walk(t ast.Term, formatPos bool) {
	switch t := t.(type) {
	case *ast.Name:
		if formatPos {
			s.mark(t.Ident)
		}
	case *ast.Ann:
		s.walk(t.Term, formatPos)
		s.walk(t.Type, false)
	case *ast.Pi:
		s.walk(t.ParamType, false)
		s.walk(t.Body, false)
	case *ast.Lam:
		if t.ParamType != nil {
			s.walk(t.ParamType, false)
		}
		s.walk(t.Body, false)
	case *ast.App:
		s.walkApp(t, formatPos)
	case *ast.RecordType:
		for _, f := range t.Fields {
			s.walk(f.Type, false)
		}
	case *ast.Record:
		for _, f := range t.Fields {
			s.walk(f.Value, false)
		}
	case *ast.Proj:
		s.walk(t.Term, false)
	case *ast.If:
		s.walk(t.Cond, false)
		s.walk(t.Then, formatPos)
		s.walk(t.Else, formatPos)
	case *ast.Binary:
		s.walk(t.Left, false)
		s.walk(t.Right, false)
	case *ast.Not:
		s.walk(t.Term, false)
	case *ast.SizeOf:
		s.walk(t.Term, false)
	case *ast.Str:
		s.walk(t.Len, false)
	case *ast.Array:
		s.walk(t.Elem, true)
		s.walk(t.Len, false)
	case *ast.ExtArray:
		s.walk(t.Elem, true)
	case *ast.Struct:
		for _, f := range t.Fields {
			s.walk(f.Type, true)
		}
	case *ast.Where:
		s.walk(t.Format, true)
		s.walk(t.Pred, false)
	case *ast.Intersect:
		s.walk(t.Left, true)
		s.walk(t.Right, true)
	case *ast.Interp:
		s.walk(t.Format, true)
		s.walk(t.Conv, false)
		if t.Inverse != nil {
			s.walk(t.Inverse, false)
		}
	case *ast.Switch:
		s.walk(t.Scrutinee, false)
		for _, a := range t.Arms {
			s.walk(a.Pattern, false)
			s.walk(a.Format, true)
		}
		if t.Otherwise != nil {
			s.walk(t.Otherwise, true)
		}
	case *ast.Choice:
		for _, o := range t.Options {
			s.walk(o.Format, true)
		}
	case *ast.Repeat:
		if t.Count != nil {
			s.walk(t.Count, false)
		}
		s.walk(t.Elem, true)
	case *ast.Link:
		s.walk(t.Offset, true)
		if t.Length != nil {
			s.walk(t.Length, true)
		}
		s.walk(t.Target, true)
	}
}

// walkApp resolves argument positions against the callee's parameter kinds
// when the callee is a declaration reference.
func (s *paramScan) walkApp(t *ast.App, formatPos bool) {
	var args []ast.Term
	head := ast.Term(t)
	for {
		app, ok := head.(*ast.App)
		if !ok {
			break
		}
		args = append([]ast.Term{app.Arg}, args...)
		head = app.Fn
	}
	name, ok := head.(*ast.Name)
	if !ok {
		s.walk(head, false)
		for _, a := range args {
			s.walk(a, false)
		}
		return
	}
	if formatPos {
		s.mark(name.Ident)
	}
	callee := s.kinds[name.Ident]
	for i, a := range args {
		argPos := i < len(callee) && callee[i] == paramFormat
		s.walk(a, argPos)
	}
}
