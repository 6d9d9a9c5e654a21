package elab

import (
	"sort"

	"github.com/partite-ai/binform/ast"
	"github.com/partite-ai/binform/core"
)

// Options are the configuration knobs left open by the format calculus.
// The zero value gives big-endian integers, optional switch otherwise arms,
// and strict placement of unknown-size choice options.
type Options struct {
	// DefaultByteOrder applies to integer, float, and UTF-16 string
	// formats that do not name an explicit order.
	DefaultByteOrder core.ByteOrder

	// RequireOtherwise rejects switch formats without an otherwise arm at
	// elaboration instead of letting decode fail on an unmatched
	// scrutinee.
	RequireOtherwise bool

	// AllowNonLastUnknownChoice permits choice options of unknown size in
	// non-final position. Decoding such options relies on backtracking
	// bounds from the surrounding context.
	AllowNonLastUnknownChoice bool
}

// Module is the result of elaborating a raw module: every declaration
// lowered to a core term, with a shared context binding each name to its
// definition.
type Module struct {
	Formats map[string]core.Term
	Types   map[string]core.Term
	env     *core.Context
}

// Env returns the context binding every declared name. Decoding and
// encoding evaluate size and constraint expressions under this context.
func (m *Module) Env() *core.Context { return m.env }

// Format returns the elaborated definition of a named declaration.
func (m *Module) Format(name string) (core.Term, bool) {
	t, ok := m.Formats[name]
	return t, ok
}

// Names returns the declared names in sorted order.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.Formats))
	for n := range m.Formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type elaborator struct {
	opts    Options
	module  *ast.Module
	params  map[string][]paramKind
	types   map[string]core.Term
	defs    map[string]core.Term
	busy    map[string]bool
}

type paramKind int

const (
	paramValue paramKind = iota
	paramFormat
)

// ElaborateModule lowers every declaration of a raw module and validates
// the static invariants of the result. Declarations form a flat,
// order-independent namespace; forward references are resolved here.
func ElaborateModule(m *ast.Module, opts Options) (*Module, error) {
	if opts.DefaultByteOrder != core.OrderLittle {
		opts.DefaultByteOrder = core.OrderBig
	}
	e := &elaborator{
		opts:   opts,
		module: m,
		params: inferParamKinds(m),
		types:  map[string]core.Term{},
		defs:   map[string]core.Term{},
		busy:   map[string]bool{},
	}
	for i := range m.Decls {
		e.types[m.Decls[i].Name] = e.declType(&m.Decls[i])
	}
	for i := range m.Decls {
		if err := e.define(&m.Decls[i]); err != nil {
			return nil, err
		}
	}

	env := core.NewContext()
	for i := range m.Decls {
		name := m.Decls[i].Name
		env = env.ExtendDef(name, e.types[name], e.defs[name])
	}
	out := &Module{Formats: e.defs, Types: e.types, env: env}

	for i := range m.Decls {
		d := &m.Decls[i]
		body := stripParams(e.defs[d.Name], len(d.Params))
		inner := env
		for _, p := range d.Params {
			inner = inner.ExtendClaim(p, e.paramType(d.Name, p))
		}
		if err := e.analyze(inner, body, d); err != nil {
			return nil, err
		}
		if err := e.checkGuarded(env, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Infer elaborates a standalone raw term under an existing context and
// returns the core term together with its inferred type. Names resolve
// through the context only; there is no surrounding module.
func Infer(env *core.Context, raw ast.Term, opts Options) (core.Term, core.Term, error) {
	return standalone(opts).infer(env, raw)
}

// Check elaborates a standalone raw term against an expected type.
func Check(env *core.Context, raw ast.Term, expected core.Term, opts Options) (core.Term, error) {
	return standalone(opts).check(env, raw, expected)
}

func standalone(opts Options) *elaborator {
	if opts.DefaultByteOrder != core.OrderLittle {
		opts.DefaultByteOrder = core.OrderBig
	}
	return &elaborator{
		opts:   opts,
		module: &ast.Module{},
		params: map[string][]paramKind{},
		types:  map[string]core.Term{},
		defs:   map[string]core.Term{},
		busy:   map[string]bool{},
	}
}

// declType builds the claim type of a declaration: a Pi chain over its
// parameters ending in the format kind.
func (e *elaborator) declType(d *ast.Decl) core.Term {
	var ty core.Term = &core.FormatKind{}
	kinds := e.params[d.Name]
	for i := len(d.Params) - 1; i >= 0; i-- {
		ty = &core.Pi{Param: d.Params[i], ParamType: kindType(kinds[i]), Body: ty}
	}
	return ty
}

func (e *elaborator) paramType(decl, param string) core.Term {
	d, _ := e.module.Lookup(decl)
	for i, p := range d.Params {
		if p == param {
			return kindType(e.params[decl][i])
		}
	}
	return &core.IntType{}
}

func kindType(k paramKind) core.Term {
	if k == paramFormat {
		return &core.FormatKind{}
	}
	return &core.IntType{}
}

func stripParams(t core.Term, n int) core.Term {
	for i := 0; i < n; i++ {
		lam, ok := t.(*core.Lam)
		if !ok {
			return t
		}
		t = lam.Body
	}
	return t
}

// define elaborates one declaration body, wrapping it in a lambda per
// parameter. A recursive reference back into a busy declaration stays a
// typed neutral variable.
func (e *elaborator) define(d *ast.Decl) error {
	if _, done := e.defs[d.Name]; done || e.busy[d.Name] {
		return nil
	}
	e.busy[d.Name] = true
	defer delete(e.busy, d.Name)

	env := core.NewContext()
	kinds := e.params[d.Name]
	for i, p := range d.Params {
		env = env.ExtendClaim(p, kindType(kinds[i]))
	}
	body, err := e.check(env, d.Body, &core.FormatKind{})
	if err != nil {
		return err
	}
	for i := len(d.Params) - 1; i >= 0; i-- {
		body = &core.Lam{Param: d.Params[i], Body: body}
	}
	e.defs[d.Name] = body
	return nil
}

// resolveGlobal looks a name up in the module namespace, elaborating the
// target declaration on demand so its definition is available to later
// normalization.
func (e *elaborator) resolveGlobal(name string) (core.Term, bool, error) {
	d, ok := e.module.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	if err := e.define(d); err != nil {
		return nil, true, err
	}
	return e.types[name], true, nil
}

// builtinName resolves the built-in type names a parser may emit.
func builtinName(name string) (core.Term, core.Term, bool) {
	switch name {
	case "Int":
		return &core.IntType{}, &core.Universe{Level: 0}, true
	case "Bool":
		return &core.BoolType{}, &core.Universe{Level: 0}, true
	case "String":
		return &core.StringType{}, &core.Universe{Level: 0}, true
	case "Format":
		return &core.FormatKind{}, &core.Universe{Level: 1}, true
	}
	return nil, nil, false
}

// infer elaborates a raw term and synthesizes its type.
func (e *elaborator) infer(env *core.Context, t ast.Term) (core.Term, core.Term, error) {
	switch t := t.(type) {
	case *ast.Name:
		if ty, ok := env.LookupType(t.Ident); ok {
			return &core.Var{Name: t.Ident}, ty, nil
		}
		if ct, ty, ok := builtinName(t.Ident); ok {
			return ct, ty, nil
		}
		ty, ok, err := e.resolveGlobal(t.Ident)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, errAt(t.Span, ErrUnboundVariable, "%s", t.Ident)
		}
		return &core.Var{Name: t.Ident}, ty, nil
	case *ast.Universe:
		return &core.Universe{Level: t.Level}, &core.Universe{Level: t.Level + 1}, nil
	case *ast.BoolLit:
		return &core.BoolLit{Value: t.Value}, &core.BoolType{}, nil
	case *ast.IntLit:
		return &core.IntLit{Value: core.CloneInt(t.Value)}, &core.IntType{}, nil
	case *ast.FloatLit:
		return &core.FloatLit{Value: t.Value}, &core.FloatType{}, nil
	case *ast.StringLit:
		return &core.StringLit{Value: t.Value}, &core.StringType{}, nil
	case *ast.Ann:
		ty, err := e.elaborateType(env, t.Type)
		if err != nil {
			return nil, nil, err
		}
		ct, err := e.check(env, t.Term, ty)
		if err != nil {
			return nil, nil, err
		}
		return ct, ty, nil
	case *ast.Pi:
		pt, ptLevel, err := e.typeAndLevel(env, t.ParamType)
		if err != nil {
			return nil, nil, err
		}
		inner := env
		if t.Param != "" {
			inner = env.ExtendClaim(t.Param, pt)
		}
		body, bodyLevel, err := e.typeAndLevel(inner, t.Body)
		if err != nil {
			return nil, nil, err
		}
		level := ptLevel
		if bodyLevel > level {
			level = bodyLevel
		}
		return &core.Pi{Param: t.Param, ParamType: pt, Body: body}, &core.Universe{Level: level}, nil
	case *ast.Lam:
		if t.ParamType == nil {
			return nil, nil, errAt(t.Span, ErrCannotInfer, "lambda without a parameter type")
		}
		pt, err := e.elaborateType(env, t.ParamType)
		if err != nil {
			return nil, nil, err
		}
		body, bodyTy, err := e.infer(env.ExtendClaim(t.Param, pt), t.Body)
		if err != nil {
			return nil, nil, err
		}
		return &core.Lam{Param: t.Param, Body: body},
			&core.Pi{Param: t.Param, ParamType: pt, Body: bodyTy}, nil
	case *ast.App:
		fn, fnTy, err := e.infer(env, t.Fn)
		if err != nil {
			return nil, nil, err
		}
		pi, ok := core.Normalize(env, fnTy).(*core.Pi)
		if !ok {
			return nil, nil, errAt(t.Span, ErrTypeMismatch, "%s is not a function", core.String(fn))
		}
		arg, err := e.check(env, t.Arg, pi.ParamType)
		if err != nil {
			return nil, nil, err
		}
		resTy := pi.Body
		if pi.Param != "" {
			resTy = core.Subst(resTy, pi.Param, arg)
		}
		return &core.App{Fn: fn, Arg: arg}, resTy, nil
	case *ast.RecordType:
		fields := make([]core.RecordTypeField, 0, len(t.Fields))
		level := 0
		inner := env
		for _, f := range t.Fields {
			ft, fLevel, err := e.typeAndLevel(inner, f.Type)
			if err != nil {
				return nil, nil, err
			}
			if fLevel > level {
				level = fLevel
			}
			fields = append(fields, core.RecordTypeField{Name: f.Name, Type: ft})
			inner = inner.ExtendClaim(f.Name, ft)
		}
		return &core.RecordType{Fields: fields}, &core.Universe{Level: level}, nil
	case *ast.Record:
		fields := make([]core.RecordField, 0, len(t.Fields))
		tyFields := make([]core.RecordTypeField, 0, len(t.Fields))
		inner := env
		for _, f := range t.Fields {
			fv, fTy, err := e.infer(inner, f.Value)
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, core.RecordField{Name: f.Name, Value: fv})
			tyFields = append(tyFields, core.RecordTypeField{Name: f.Name, Type: fTy})
			inner = inner.ExtendDef(f.Name, fTy, fv)
		}
		return &core.RecordLit{Fields: fields}, &core.RecordType{Fields: tyFields}, nil
	case *ast.Proj:
		rec, recTy, err := e.infer(env, t.Term)
		if err != nil {
			return nil, nil, err
		}
		rt, ok := core.Normalize(env, recTy).(*core.RecordType)
		if !ok {
			return nil, nil, errAt(t.Span, ErrTypeMismatch, "%s is not a record", core.String(rec))
		}
		for i, f := range rt.Fields {
			if f.Name != t.Field {
				continue
			}
			// Earlier fields may appear in this field's type; replace
			// them with projections from the record itself.
			fieldTy := f.Type
			for j := i - 1; j >= 0; j-- {
				fieldTy = core.Subst(fieldTy, rt.Fields[j].Name, &core.Proj{Term: rec, Field: rt.Fields[j].Name})
			}
			return &core.Proj{Term: rec, Field: t.Field}, fieldTy, nil
		}
		return nil, nil, errAt(t.Span, ErrTypeMismatch, "record has no field %q", t.Field)
	case *ast.If:
		cond, err := e.check(env, t.Cond, &core.BoolType{})
		if err != nil {
			return nil, nil, err
		}
		then, thenTy, err := e.infer(env, t.Then)
		if err != nil {
			return nil, nil, err
		}
		els, err := e.check(env, t.Else, thenTy)
		if err != nil {
			return nil, nil, err
		}
		return &core.If{Cond: cond, Then: then, Else: els}, thenTy, nil
	case *ast.Binary:
		return e.inferBinary(env, t)
	case *ast.Not:
		inner, err := e.check(env, t.Term, &core.BoolType{})
		if err != nil {
			return nil, nil, err
		}
		return &core.Not{Term: inner}, &core.BoolType{}, nil
	case *ast.SizeOf:
		inner, _, err := e.infer(env, t.Term)
		if err != nil {
			return nil, nil, err
		}
		return &core.SizeOf{Term: inner}, &core.IntType{}, nil
	default:
		return e.inferFormat(env, t)
	}
}

func (e *elaborator) inferBinary(env *core.Context, t *ast.Binary) (core.Term, core.Term, error) {
	switch t.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		left, right, ty, err := e.numericOperands(env, t)
		if err != nil {
			return nil, nil, err
		}
		return &core.Binary{Op: t.Op, Left: left, Right: right}, ty, nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		left, right, _, err := e.numericOperands(env, t)
		if err != nil {
			return nil, nil, err
		}
		return &core.Binary{Op: t.Op, Left: left, Right: right}, &core.BoolType{}, nil
	case ast.OpAnd, ast.OpOr:
		left, err := e.check(env, t.Left, &core.BoolType{})
		if err != nil {
			return nil, nil, err
		}
		right, err := e.check(env, t.Right, &core.BoolType{})
		if err != nil {
			return nil, nil, err
		}
		return &core.Binary{Op: t.Op, Left: left, Right: right}, &core.BoolType{}, nil
	default: // OpEq, OpNe
		left, leftTy, err := e.infer(env, t.Left)
		if err != nil {
			return nil, nil, err
		}
		right, err := e.check(env, t.Right, leftTy)
		if err != nil {
			return nil, nil, err
		}
		return &core.Binary{Op: t.Op, Left: left, Right: right}, &core.BoolType{}, nil
	}
}

// numericOperands elaborates both sides of an arithmetic or ordering
// operator. Operands are integers unless the left side infers to a float,
// in which case both sides must be floats.
func (e *elaborator) numericOperands(env *core.Context, t *ast.Binary) (core.Term, core.Term, core.Term, error) {
	left, leftTy, err := e.infer(env, t.Left)
	if err != nil {
		return nil, nil, nil, err
	}
	var operand core.Term = &core.IntType{}
	if _, isFloat := core.Normalize(env, leftTy).(*core.FloatType); isFloat {
		operand = &core.FloatType{}
	}
	if !core.Convertible(env, core.Normalize(env, leftTy), operand) {
		return nil, nil, nil, errAt(t.Span, ErrTypeMismatch, "operand %s is not numeric", core.String(left))
	}
	right, err := e.check(env, t.Right, operand)
	if err != nil {
		return nil, nil, nil, err
	}
	return left, right, operand, nil
}

// check elaborates a raw term against an expected type.
func (e *elaborator) check(env *core.Context, t ast.Term, expected core.Term) (core.Term, error) {
	want := core.Normalize(env, expected)
	switch t := t.(type) {
	case *ast.Lam:
		if pi, ok := want.(*core.Pi); ok && t.ParamType == nil {
			bodyTy := pi.Body
			if pi.Param != "" && pi.Param != t.Param {
				bodyTy = core.Subst(bodyTy, pi.Param, &core.Var{Name: t.Param})
			}
			body, err := e.check(env.ExtendClaim(t.Param, pi.ParamType), t.Body, bodyTy)
			if err != nil {
				return nil, err
			}
			return &core.Lam{Param: t.Param, Body: body}, nil
		}
	case *ast.If:
		cond, err := e.check(env, t.Cond, &core.BoolType{})
		if err != nil {
			return nil, err
		}
		then, err := e.check(env, t.Then, want)
		if err != nil {
			return nil, err
		}
		els, err := e.check(env, t.Else, want)
		if err != nil {
			return nil, err
		}
		return &core.If{Cond: cond, Then: then, Else: els}, nil
	}
	ct, ty, err := e.infer(env, t)
	if err != nil {
		return nil, err
	}
	if !core.Convertible(env, ty, want) {
		return nil, errAt(t.TermSpan(), ErrTypeMismatch, "expected %s, inferred %s",
			core.String(want), core.String(ty))
	}
	return ct, nil
}

// elaborateType elaborates a raw term that must itself be a type.
func (e *elaborator) elaborateType(env *core.Context, t ast.Term) (core.Term, error) {
	ct, _, err := e.typeAndLevel(env, t)
	return ct, err
}

// typeAndLevel elaborates a type and reports the universe level that
// classifies it.
func (e *elaborator) typeAndLevel(env *core.Context, t ast.Term) (core.Term, int, error) {
	ct, ty, err := e.infer(env, t)
	if err != nil {
		return nil, 0, err
	}
	switch ty := core.Normalize(env, ty).(type) {
	case *core.Universe:
		return ct, ty.Level, nil
	case *core.FormatKind:
		// A format used where a type is expected: its meaning is the
		// representation its decoder produces.
		repr, err := core.ReprOf(env, core.Normalize(env, ct))
		if err != nil {
			return nil, 0, errAt(t.TermSpan(), ErrTypeMismatch, "%v", err)
		}
		return repr, 0, nil
	default:
		return nil, 0, errAt(t.TermSpan(), ErrUniverseMismatch, "%s is not a type", core.String(ct))
	}
}
