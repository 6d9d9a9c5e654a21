// Package core defines the elaborated term calculus of binform: a small
// dependently typed expression language extended with a closed algebra of
// binary format formers. Terms are pure, immutable data produced by the
// checker in package elab; the engine in package binary derives decode and
// encode procedures from them.
package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/partite-ai/binform/ast"
)

// Term is the interface for all elaborated core terms.
type Term interface {
	isTerm()
}

// Var references a binding introduced by a lambda, a Pi, a struct field, a
// where-binder, or a top-level definition.
type Var struct {
	Name string
}

func (*Var) isTerm() {}

// Universe is the type of types at the given level. Universe{0} classifies
// ordinary types, Universe{i+1} classifies Universe{i}.
type Universe struct {
	Level int
}

func (*Universe) isTerm() {}

// FormatKind is the type of binary format descriptions. It inhabits
// Universe{0}.
type FormatKind struct{}

func (*FormatKind) isTerm() {}

// IntType is the host type of integer values.
type IntType struct{}

func (*IntType) isTerm() {}

// BoolType is the host type of boolean values.
type BoolType struct{}

func (*BoolType) isTerm() {}

// FloatType is the host type of floating point values.
type FloatType struct{}

func (*FloatType) isTerm() {}

// StringType is the host type of string values.
type StringType struct{}

func (*StringType) isTerm() {}

// UnitType is the host type with exactly one value.
type UnitType struct{}

func (*UnitType) isTerm() {}

// BottomType is the host type with no values, the representation of the
// error format.
type BottomType struct{}

func (*BottomType) isTerm() {}

// VectorType is the host type of sequences of Elem values.
type VectorType struct {
	Elem Term
}

func (*VectorType) isTerm() {}

// SumType is the host type of a choice: a value tagged with the branch it
// decoded through.
type SumType struct {
	Variants []SumVariant
}

// SumVariant names one alternative of a SumType.
type SumVariant struct {
	Name string
	Type Term
}

func (*SumType) isTerm() {}

// UnitLit is the sole value of UnitType.
type UnitLit struct{}

func (*UnitLit) isTerm() {}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

func (*BoolLit) isTerm() {}

// IntLit is an arbitrary precision integer literal.
type IntLit struct {
	Value *big.Int
}

func (*IntLit) isTerm() {}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
}

func (*FloatLit) isTerm() {}

// StringLit is a string literal.
type StringLit struct {
	Value string
}

func (*StringLit) isTerm() {}

// Annot records a checked type ascription. Normalization discards it.
type Annot struct {
	Term Term
	Type Term
}

func (*Annot) isTerm() {}

// Pi is a dependent function type. Param may be empty for non-dependent
// functions.
type Pi struct {
	Param     string
	ParamType Term
	Body      Term
}

func (*Pi) isTerm() {}

// Lam is a function literal.
type Lam struct {
	Param string
	Body  Term
}

func (*Lam) isTerm() {}

// App applies Fn to Arg.
type App struct {
	Fn  Term
	Arg Term
}

func (*App) isTerm() {}

// RecordTypeField is one field of a dependent record type; its type may
// refer to the names of earlier fields.
type RecordTypeField struct {
	Name string
	Type Term
}

// RecordType is a dependent record type.
type RecordType struct {
	Fields []RecordTypeField
}

func (*RecordType) isTerm() {}

// RecordField is one field of a record literal.
type RecordField struct {
	Name  string
	Value Term
}

// RecordLit is a record literal. Field order matches the record type and is
// significant for dependent projection.
type RecordLit struct {
	Fields []RecordField
}

func (*RecordLit) isTerm() {}

// Field returns the named field's value.
func (r *RecordLit) Field(name string) (Term, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Proj projects a named field out of a record.
type Proj struct {
	Term  Term
	Field string
}

func (*Proj) isTerm() {}

// If is a boolean conditional. When the scrutinee is neutral the whole
// conditional is neutral, carrying both branches unevaluated.
type If struct {
	Cond Term
	Then Term
	Else Term
}

func (*If) isTerm() {}

// Binary applies an arithmetic, comparison or logical operator.
type Binary struct {
	Op    ast.BinOp
	Left  Term
	Right Term
}

func (*Binary) isTerm() {}

// Not negates a boolean.
type Not struct {
	Term Term
}

func (*Not) isTerm() {}

// SizeOf evaluates to the number of bytes a format instance occupies. Over
// a decoded value it is a concrete integer; over a still-abstract binding it
// stays neutral.
type SizeOf struct {
	Term Term
}

func (*SizeOf) isTerm() {}

// ByteOrder is a concrete byte order; elaboration resolves the surface
// default against the engine configuration.
type ByteOrder int

const (
	OrderBig ByteOrder = iota
	OrderLittle
)

func (o ByteOrder) String() string {
	if o == OrderLittle {
		return "le"
	}
	return "be"
}

// IntFormat is a fixed-width integer format: 8, 16, 32 or 64 bits, signed
// or unsigned, with an explicit byte order.
type IntFormat struct {
	Bits   int
	Signed bool
	Order  ByteOrder
}

func (*IntFormat) isTerm() {}

func (f *IntFormat) String() string {
	prefix := "u"
	if f.Signed {
		prefix = "i"
	}
	if f.Bits == 8 {
		return fmt.Sprintf("%s8", prefix)
	}
	return fmt.Sprintf("%s%d%s", prefix, f.Bits, f.Order)
}

// FloatFormat is an IEEE-754 binary32 or binary64 format.
type FloatFormat struct {
	Bits  int
	Order ByteOrder
}

func (*FloatFormat) isTerm() {}

// StrFormat is a string of Len bytes decoded through a character encoding.
type StrFormat struct {
	Len      Term
	Encoding ast.StringEncoding
}

func (*StrFormat) isTerm() {}

// ArrayFormat is Len consecutive elements of Elem.
type ArrayFormat struct {
	Elem Term
	Len  Term
}

func (*ArrayFormat) isTerm() {}

// ExtArrayFormat is an array whose length was existential in the surface
// term. Elaboration solves the surrounding sizeof constraint down to a byte
// budget: decode consumes exactly ByteLen bytes worth of elements.
type ExtArrayFormat struct {
	Elem    Term
	ByteLen Term
}

func (*ExtArrayFormat) isTerm() {}

// StructFormatField is one field of a struct format.
type StructFormatField struct {
	Name   string
	Format Term
}

// StructFormat is a sequence of named fields, each field's format evaluated
// in the scope of the already-decoded earlier fields.
type StructFormat struct {
	Fields []StructFormatField
}

func (*StructFormat) isTerm() {}

// WhereFormat constrains Format with a predicate over the decoded value,
// bound under Name.
type WhereFormat struct {
	Name   string
	Format Term
	Pred   Term
}

func (*WhereFormat) isTerm() {}

// IntersectFormat matches the same bytes against both formats; elaboration
// has verified the sizes agree. Encoding goes through the left operand.
type IntersectFormat struct {
	Left  Term
	Right Term
}

func (*IntersectFormat) isTerm() {}

// InterpFormat maps decoded values of Format through Conv. Repr is the host
// type of the mapped value, fixed at elaboration. Inverse, when non-nil,
// maps host values back for encoding.
type InterpFormat struct {
	Format  Term
	Conv    Term
	Repr    Term
	Inverse Term
}

func (*InterpFormat) isTerm() {}

// SwitchArm is one arm of a switch format.
type SwitchArm struct {
	Pattern Term
	Body    Term
}

// SwitchFormat selects the arm whose pattern equals the scrutinee.
// Otherwise may be nil; decoding then fails when no arm matches.
type SwitchFormat struct {
	Scrutinee Term
	Arms      []SwitchArm
	Otherwise Term
}

func (*SwitchFormat) isTerm() {}

// ChoiceOption is one alternative of a choice format.
type ChoiceOption struct {
	Name   string
	Format Term
}

// ChoiceFormat decodes whichever option's discriminant matches the peeked
// bytes. Elaboration has verified the options are pairwise distinguishable.
type ChoiceFormat struct {
	Options []ChoiceOption
}

func (*ChoiceFormat) isTerm() {}

// EmptyFormat matches zero bytes.
type EmptyFormat struct{}

func (*EmptyFormat) isTerm() {}

// ErrorFormat never matches.
type ErrorFormat struct{}

func (*ErrorFormat) isTerm() {}

// EndFormat matches exactly at end of input.
type EndFormat struct{}

func (*EndFormat) isTerm() {}

// RepeatFormat decodes Elem repeatedly: Count times when Count is non-nil,
// otherwise until Elem stops matching or the input runs out.
type RepeatFormat struct {
	Count Term
	Elem  Term
}

func (*RepeatFormat) isTerm() {}

// LinkKind distinguishes pointer links from length-bounded slice links.
type LinkKind int

const (
	LinkPointer LinkKind = iota
	LinkSlice
)

// LinkFormat is an address-relative reference. Offset (and Length for
// slices) are integer formats decoded in-line; the pointee is decoded from
// a fresh cursor at resolve(Base)+offset.
type LinkFormat struct {
	Kind   LinkKind
	Base   string
	Offset Term
	Length Term
	Target Term
}

func (*LinkFormat) isTerm() {}

// SumLit is a decoded choice value, tagged with the branch that matched.
type SumLit struct {
	Branch int
	Name   string
	Value  Term
}

func (*SumLit) isTerm() {}

// VectorLit is a decoded array or repeat value.
type VectorLit struct {
	Elems []Term
}

func (*VectorLit) isTerm() {}

// Int returns an integer literal term.
func Int(v int64) *IntLit { return &IntLit{Value: big.NewInt(v)} }

// Uint returns an integer literal term from an unsigned value.
func Uint(v uint64) *IntLit { return &IntLit{Value: new(big.Int).SetUint64(v)} }

// Bool returns a boolean literal term.
func Bool(v bool) *BoolLit { return &BoolLit{Value: v} }

// String renders a term for error messages. The rendering is diagnostic,
// not a parseable surface syntax.
func String(t Term) string {
	var b strings.Builder
	writeTerm(&b, t)
	return b.String()
}

func writeTerm(b *strings.Builder, t Term) {
	switch t := t.(type) {
	case *Var:
		b.WriteString(t.Name)
	case *Universe:
		fmt.Fprintf(b, "Type(%d)", t.Level)
	case *FormatKind:
		b.WriteString("Format")
	case *IntType:
		b.WriteString("Int")
	case *BoolType:
		b.WriteString("Bool")
	case *FloatType:
		b.WriteString("Float")
	case *StringType:
		b.WriteString("String")
	case *UnitType:
		b.WriteString("Unit")
	case *BottomType:
		b.WriteString("Bottom")
	case *VectorType:
		b.WriteString("Vector(")
		writeTerm(b, t.Elem)
		b.WriteString(")")
	case *SumType:
		b.WriteString("Sum{")
		for i, v := range t.Variants {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.Name)
		}
		b.WriteString("}")
	case *UnitLit:
		b.WriteString("()")
	case *BoolLit:
		fmt.Fprintf(b, "%t", t.Value)
	case *IntLit:
		b.WriteString(t.Value.String())
	case *FloatLit:
		fmt.Fprintf(b, "%g", t.Value)
	case *StringLit:
		fmt.Fprintf(b, "%q", t.Value)
	case *Annot:
		writeTerm(b, t.Term)
	case *Pi:
		if t.Param != "" {
			fmt.Fprintf(b, "(%s : ", t.Param)
			writeTerm(b, t.ParamType)
			b.WriteString(") -> ")
		} else {
			writeTerm(b, t.ParamType)
			b.WriteString(" -> ")
		}
		writeTerm(b, t.Body)
	case *Lam:
		fmt.Fprintf(b, "\\%s -> ", t.Param)
		writeTerm(b, t.Body)
	case *App:
		writeTerm(b, t.Fn)
		b.WriteString("(")
		writeTerm(b, t.Arg)
		b.WriteString(")")
	case *RecordType:
		b.WriteString("{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s : ", f.Name)
			writeTerm(b, f.Type)
		}
		b.WriteString("}")
	case *RecordLit:
		b.WriteString("{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s = ", f.Name)
			writeTerm(b, f.Value)
		}
		b.WriteString("}")
	case *Proj:
		writeTerm(b, t.Term)
		fmt.Fprintf(b, ".%s", t.Field)
	case *If:
		b.WriteString("if ")
		writeTerm(b, t.Cond)
		b.WriteString(" then ")
		writeTerm(b, t.Then)
		b.WriteString(" else ")
		writeTerm(b, t.Else)
	case *Binary:
		b.WriteString("(")
		writeTerm(b, t.Left)
		fmt.Fprintf(b, " %s ", t.Op)
		writeTerm(b, t.Right)
		b.WriteString(")")
	case *Not:
		b.WriteString("!")
		writeTerm(b, t.Term)
	case *SizeOf:
		b.WriteString("sizeof(")
		writeTerm(b, t.Term)
		b.WriteString(")")
	case *IntFormat:
		b.WriteString(t.String())
	case *FloatFormat:
		fmt.Fprintf(b, "f%d%s", t.Bits, t.Order)
	case *StrFormat:
		fmt.Fprintf(b, "str(%s, ", String(t.Len))
		b.WriteString(t.Encoding.String())
		b.WriteString(")")
	case *ArrayFormat:
		b.WriteString("[")
		writeTerm(b, t.Elem)
		b.WriteString("; ")
		writeTerm(b, t.Len)
		b.WriteString("]")
	case *ExtArrayFormat:
		b.WriteString("[")
		writeTerm(b, t.Elem)
		b.WriteString("]")
	case *StructFormat:
		b.WriteString("struct {")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s : ", f.Name)
			writeTerm(b, f.Format)
		}
		b.WriteString("}")
	case *WhereFormat:
		fmt.Fprintf(b, "%s : ", t.Name)
		writeTerm(b, t.Format)
		b.WriteString(" @where ")
		writeTerm(b, t.Pred)
	case *IntersectFormat:
		writeTerm(b, t.Left)
		b.WriteString(" & ")
		writeTerm(b, t.Right)
	case *InterpFormat:
		writeTerm(b, t.Format)
		b.WriteString(" @as ")
		writeTerm(b, t.Conv)
	case *SwitchFormat:
		b.WriteString("switch ")
		writeTerm(b, t.Scrutinee)
		b.WriteString(" {")
		for i, arm := range t.Arms {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTerm(b, arm.Pattern)
			b.WriteString(" => ")
			writeTerm(b, arm.Body)
		}
		if t.Otherwise != nil {
			b.WriteString(", otherwise => ")
			writeTerm(b, t.Otherwise)
		}
		b.WriteString("}")
	case *ChoiceFormat:
		b.WriteString("choice {")
		for i, opt := range t.Options {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", opt.Name)
			writeTerm(b, opt.Format)
		}
		b.WriteString("}")
	case *EmptyFormat:
		b.WriteString("empty")
	case *ErrorFormat:
		b.WriteString("error")
	case *EndFormat:
		b.WriteString("end")
	case *RepeatFormat:
		b.WriteString("repeat ")
		if t.Count != nil {
			writeTerm(b, t.Count)
			b.WriteString(" ")
		}
		writeTerm(b, t.Elem)
	case *LinkFormat:
		kind := "pointer"
		if t.Kind == LinkSlice {
			kind = "slice"
		}
		fmt.Fprintf(b, "@link %s(%s, ", kind, t.Base)
		writeTerm(b, t.Offset)
		if t.Length != nil {
			b.WriteString(", ")
			writeTerm(b, t.Length)
		}
		b.WriteString(") -> ")
		writeTerm(b, t.Target)
	case *SumLit:
		fmt.Fprintf(b, "%s(", t.Name)
		writeTerm(b, t.Value)
		b.WriteString(")")
	case *VectorLit:
		b.WriteString("[")
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTerm(b, e)
		}
		b.WriteString("]")
	default:
		fmt.Fprintf(b, "<%T>", t)
	}
}
