package ast

import "math/big"

// Constructor helpers for building raw term trees programmatically. An
// external parser would attach real spans; trees built in-process carry
// zero spans.

func Var(name string) *Name { return &Name{Ident: name} }

func Type(level int) *Universe { return &Universe{Level: level} }

func Bool(v bool) *BoolLit { return &BoolLit{Value: v} }

func Int(v int64) *IntLit { return &IntLit{Value: big.NewInt(v)} }

func Uint(v uint64) *IntLit { return &IntLit{Value: new(big.Int).SetUint64(v)} }

func Flt(v float64) *FloatLit { return &FloatLit{Value: v} }

func Str0(v string) *StringLit { return &StringLit{Value: v} }

func Annot(term, typ Term) *Ann { return &Ann{Term: term, Type: typ} }

func PiOf(param string, paramType, body Term) *Pi {
	return &Pi{Param: param, ParamType: paramType, Body: body}
}

func LamOf(param string, body Term) *Lam { return &Lam{Param: param, Body: body} }

func AppOf(fn Term, args ...Term) Term {
	t := fn
	for _, arg := range args {
		t = &App{Fn: t, Arg: arg}
	}
	return t
}

func ProjOf(term Term, field string) *Proj { return &Proj{Term: term, Field: field} }

func IfOf(cond, then, els Term) *If { return &If{Cond: cond, Then: then, Else: els} }

func Op(op BinOp, left, right Term) *Binary { return &Binary{Op: op, Left: left, Right: right} }

func Eq(left, right Term) *Binary { return Op(OpEq, left, right) }

func SizeOfTerm(t Term) *SizeOf { return &SizeOf{Term: t} }

func U8() *UInt  { return &UInt{Bits: 8} }
func U16() *UInt { return &UInt{Bits: 16} }
func U32() *UInt { return &UInt{Bits: 32} }
func U64() *UInt { return &UInt{Bits: 64} }

func I8() *SInt  { return &SInt{Bits: 8} }
func I16() *SInt { return &SInt{Bits: 16} }
func I32() *SInt { return &SInt{Bits: 32} }
func I64() *SInt { return &SInt{Bits: 64} }

func U16Le() *UInt { return &UInt{Bits: 16, Order: OrderLittle} }
func U32Le() *UInt { return &UInt{Bits: 32, Order: OrderLittle} }
func U64Le() *UInt { return &UInt{Bits: 64, Order: OrderLittle} }

func F32() *Float { return &Float{Bits: 32} }
func F64() *Float { return &Float{Bits: 64} }

func ArrayOf(elem, length Term) *Array { return &Array{Elem: elem, Len: length} }

func ExtArrayOf(elem Term) *ExtArray { return &ExtArray{Elem: elem} }

func Field(name string, typ Term) StructField { return StructField{Name: name, Type: typ} }

func StructOf(fields ...StructField) *Struct { return &Struct{Fields: fields} }

func WhereOf(name string, format, pred Term) *Where {
	return &Where{Name: name, Format: format, Pred: pred}
}

func IntersectOf(left, right Term) *Intersect { return &Intersect{Left: left, Right: right} }

func InterpOf(format, conv, inverse Term) *Interp {
	return &Interp{Format: format, Conv: conv, Inverse: inverse}
}

func Arm(pattern, format Term) SwitchArm { return SwitchArm{Pattern: pattern, Format: format} }

func SwitchOf(scrutinee Term, arms []SwitchArm, otherwise Term) *Switch {
	return &Switch{Scrutinee: scrutinee, Arms: arms, Otherwise: otherwise}
}

func Option(name string, format Term) ChoiceOption { return ChoiceOption{Name: name, Format: format} }

func ChoiceOf(options ...ChoiceOption) *Choice { return &Choice{Options: options} }

func EmptyFormat() *Empty { return &Empty{} }

func ErrFormat() *ErrorFormat { return &ErrorFormat{} }

func EndFormat() *End { return &End{} }

func RepeatOf(count, elem Term) *Repeat { return &Repeat{Count: count, Elem: elem} }

func PointerOf(base string, offset, target Term) *Link {
	return &Link{Kind: LinkPointer, Base: base, Offset: offset, Target: target}
}

func SliceOf(base string, offset, length, target Term) *Link {
	return &Link{Kind: LinkSlice, Base: base, Offset: offset, Length: length, Target: target}
}

func StrOf(length Term, enc StringEncoding) *Str { return &Str{Len: length, Encoding: enc} }

func Ref(name string, args ...Term) Term {
	return AppOf(Var(name), args...)
}
