package ast

import "math/big"

// Span locates a term in whatever source the external parser consumed. The
// engine never interprets spans, it only carries them into error reports.
type Span struct {
	Start int
	End   int
}

// ByteOrder selects the byte order of a multi-byte format.
type ByteOrder int

const (
	// OrderDefault defers to the engine configuration.
	OrderDefault ByteOrder = iota
	OrderBig
	OrderLittle
)

func (o ByteOrder) String() string {
	switch o {
	case OrderBig:
		return "be"
	case OrderLittle:
		return "le"
	default:
		return "default"
	}
}

// StringEncoding selects the character encoding of a string format.
type StringEncoding int

const (
	EncodingASCII StringEncoding = iota
	EncodingLatin1
	EncodingUTF8
	EncodingUTF16BE
	EncodingUTF16LE
)

func (e StringEncoding) String() string {
	switch e {
	case EncodingASCII:
		return "ascii"
	case EncodingLatin1:
		return "latin1"
	case EncodingUTF8:
		return "utf8"
	case EncodingUTF16BE:
		return "utf16be"
	case EncodingUTF16LE:
		return "utf16le"
	default:
		return "unknown"
	}
}

// Term is the interface for all raw, unelaborated terms. Raw terms are what
// an external parser produces; the checker in package elab turns them into
// core terms or rejects them.
type Term interface {
	isTerm()
	TermSpan() Span
}

type termBase struct {
	Span Span
}

func (t termBase) TermSpan() Span { return t.Span }

// Name references a binding or a top-level declaration.
type Name struct {
	termBase
	Ident string
}

func (*Name) isTerm() {}

// Universe is a type-of-types literal at the given level.
type Universe struct {
	termBase
	Level int
}

func (*Universe) isTerm() {}

// BoolLit is a boolean literal.
type BoolLit struct {
	termBase
	Value bool
}

func (*BoolLit) isTerm() {}

// IntLit is an integer literal. Arbitrary precision so that u64 extremes
// survive elaboration untouched.
type IntLit struct {
	termBase
	Value *big.Int
}

func (*IntLit) isTerm() {}

// FloatLit is a floating point literal.
type FloatLit struct {
	termBase
	Value float64
}

func (*FloatLit) isTerm() {}

// StringLit is a string literal.
type StringLit struct {
	termBase
	Value string
}

func (*StringLit) isTerm() {}

// Ann annotates a term with an expected type.
type Ann struct {
	termBase
	Term Term
	Type Term
}

func (*Ann) isTerm() {}

// Pi is a dependent function type. A nil Param name means the function is
// non-dependent.
type Pi struct {
	termBase
	Param     string
	ParamType Term
	Body      Term
}

func (*Pi) isTerm() {}

// Lam is a function literal. ParamType may be nil when the lambda is checked
// against an expected Pi type.
type Lam struct {
	termBase
	Param     string
	ParamType Term
	Body      Term
}

func (*Lam) isTerm() {}

// App applies a function to an argument.
type App struct {
	termBase
	Fn  Term
	Arg Term
}

func (*App) isTerm() {}

// RecordTypeField is one field of a record type. Later fields may refer to
// earlier field names.
type RecordTypeField struct {
	Name string
	Type Term
}

// RecordType is a dependent record type.
type RecordType struct {
	termBase
	Fields []RecordTypeField
}

func (*RecordType) isTerm() {}

// RecordField is one field of a record literal.
type RecordField struct {
	Name  string
	Value Term
}

// Record is a record literal.
type Record struct {
	termBase
	Fields []RecordField
}

func (*Record) isTerm() {}

// Proj projects a named field out of a record.
type Proj struct {
	termBase
	Term  Term
	Field string
}

func (*Proj) isTerm() {}

// If is a boolean conditional.
type If struct {
	termBase
	Cond Term
	Then Term
	Else Term
}

func (*If) isTerm() {}

// BinOp identifies a binary operator usable in size and constraint
// expressions.
type BinOp int

const (
	OpEq BinOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
)

func (op BinOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Binary applies a binary operator.
type Binary struct {
	termBase
	Op    BinOp
	Left  Term
	Right Term
}

func (*Binary) isTerm() {}

// Not negates a boolean expression.
type Not struct {
	termBase
	Term Term
}

func (*Not) isTerm() {}

// SizeOf evaluates to the encoded byte length of a format instance. Inside
// constraint expressions it lets a trailing length field determine an
// existential array length.
type SizeOf struct {
	termBase
	Term Term
}

func (*SizeOf) isTerm() {}

// UInt is an unsigned integer format of 8, 16, 32 or 64 bits.
type UInt struct {
	termBase
	Bits  int
	Order ByteOrder
}

func (*UInt) isTerm() {}

// SInt is a signed (two's complement) integer format.
type SInt struct {
	termBase
	Bits  int
	Order ByteOrder
}

func (*SInt) isTerm() {}

// Float is an IEEE-754 binary32 or binary64 format.
type Float struct {
	termBase
	Bits  int
	Order ByteOrder
}

func (*Float) isTerm() {}

// Array is a format of Len consecutive elements. Len is an expression and
// may refer to earlier struct fields.
type Array struct {
	termBase
	Elem Term
	Len  Term
}

func (*Array) isTerm() {}

// ExtArray is an array whose length is existential: it is not given here
// but solved from a constraint elsewhere in the enclosing struct.
type ExtArray struct {
	termBase
	Elem Term
}

func (*ExtArray) isTerm() {}

// StructField is one field of a struct format. The field's type expression
// may refer to any earlier field in the same struct.
type StructField struct {
	Name string
	Type Term
}

// Struct is a sequence of named, dependently typed fields.
type Struct struct {
	termBase
	Fields []StructField
}

func (*Struct) isTerm() {}

// Where constrains a format with a predicate over the decoded value, bound
// under the given name.
type Where struct {
	termBase
	Name   string
	Format Term
	Pred   Term
}

func (*Where) isTerm() {}

// Intersect matches the same bytes against both formats. The two formats
// must agree on size.
type Intersect struct {
	termBase
	Left  Term
	Right Term
}

func (*Intersect) isTerm() {}

// Interp maps the decoded value of Format through Conv. Inverse, when
// present, maps values back for encoding.
type Interp struct {
	termBase
	Format  Term
	Conv    Term
	Inverse Term
}

func (*Interp) isTerm() {}

// SwitchArm is one arm of a switch format, selected when the scrutinee
// equals Pattern.
type SwitchArm struct {
	Pattern Term
	Format  Term
}

// Switch selects a branch format from the value of a scrutinee expression.
// Otherwise may be nil.
type Switch struct {
	termBase
	Scrutinee Term
	Arms      []SwitchArm
	Otherwise Term
}

func (*Switch) isTerm() {}

// ChoiceOption is one alternative of a choice format.
type ChoiceOption struct {
	Name   string
	Format Term
}

// Choice tries its options in order; options must be pairwise
// distinguishable from their leading bytes.
type Choice struct {
	termBase
	Options []ChoiceOption
}

func (*Choice) isTerm() {}

// Empty matches zero bytes and always succeeds.
type Empty struct {
	termBase
}

func (*Empty) isTerm() {}

// ErrorFormat always fails to decode and encode.
type ErrorFormat struct {
	termBase
}

func (*ErrorFormat) isTerm() {}

// End matches only at the end of the input.
type End struct {
	termBase
}

func (*End) isTerm() {}

// Repeat decodes Elem repeatedly: Count times when Count is non-nil,
// otherwise until Elem stops matching or the input is exhausted.
type Repeat struct {
	termBase
	Count Term
	Elem  Term
}

func (*Repeat) isTerm() {}

// LinkKind distinguishes plain pointers from length-bounded slices.
type LinkKind int

const (
	LinkPointer LinkKind = iota
	LinkSlice
)

// Link is an address-relative reference: an offset field decoded in-line,
// whose pointee is read out-of-band at base+offset. Length is only set for
// slice links and bounds the pointee decode.
type Link struct {
	termBase
	Kind   LinkKind
	Base   string
	Offset Term
	Length Term
	Target Term
}

func (*Link) isTerm() {}

// Str is a string format of Len bytes decoded through Encoding.
type Str struct {
	termBase
	Len      Term
	Encoding StringEncoding
}

func (*Str) isTerm() {}

// Decl is a top-level, possibly parameterized format declaration.
type Decl struct {
	Span   Span
	Name   string
	Params []string
	Body   Term
}

// Module is a flat set of declarations. Order is irrelevant: declarations
// may reference each other freely, subject to guarded recursion.
type Module struct {
	Decls []Decl
}

// Lookup finds a declaration by name.
func (m *Module) Lookup(name string) (*Decl, bool) {
	for i := range m.Decls {
		if m.Decls[i].Name == name {
			return &m.Decls[i], true
		}
	}
	return nil, false
}
