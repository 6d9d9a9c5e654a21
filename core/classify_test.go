package core

import (
	"testing"
)

func u8() *IntFormat  { return &IntFormat{Bits: 8} }
func u16() *IntFormat { return &IntFormat{Bits: 16, Order: OrderBig} }

func TestClassify(t *testing.T) {
	env := NewContext().ExtendClaim("n", &IntType{})
	tests := []struct {
		name     string
		format   Term
		wantKind SizeKind
		wantSize int64
	}{
		{"u8", u8(), SizeFixed, 1},
		{"u16", u16(), SizeFixed, 2},
		{"f64", &FloatFormat{Bits: 64, Order: OrderLittle}, SizeFixed, 8},
		{"literal string", &StrFormat{Len: Int(4)}, SizeFixed, 4},
		{"computed string", &StrFormat{Len: &Var{Name: "n"}}, SizeVariable, 0},
		{"fixed array", &ArrayFormat{Elem: u16(), Len: Int(3)}, SizeFixed, 6},
		{"dependent array", &ArrayFormat{Elem: u16(), Len: &Var{Name: "n"}}, SizeVariable, 0},
		{"existential with budget", &ExtArrayFormat{Elem: u8(), ByteLen: Int(10)}, SizeFixed, 10},
		{"existential computed budget", &ExtArrayFormat{Elem: u8(), ByteLen: &Var{Name: "n"}}, SizeVariable, 0},
		{"fixed struct", &StructFormat{Fields: []StructFormatField{
			{Name: "a", Format: u16()},
			{Name: "b", Format: u8()},
		}}, SizeFixed, 3},
		{"length-prefixed struct", &StructFormat{Fields: []StructFormatField{
			{Name: "len", Format: u16()},
			{Name: "data", Format: &ArrayFormat{Elem: u8(), Len: &Var{Name: "len"}}},
		}}, SizeVariable, 0},
		{"where keeps inner class", &WhereFormat{
			Name:   "v",
			Format: u16(),
			Pred:   Bool(true),
		}, SizeFixed, 2},
		{"interp keeps inner class", &InterpFormat{
			Format: u16(),
			Conv:   &Lam{Param: "x", Body: &Var{Name: "x"}},
			Repr:   &IntType{},
		}, SizeFixed, 2},
		{"intersection takes fixed side", &IntersectFormat{
			Left:  &ArrayFormat{Elem: u8(), Len: &Var{Name: "n"}},
			Right: &StrFormat{Len: Int(8)},
		}, SizeFixed, 8},
		{"choice same fixed size", &ChoiceFormat{Options: []ChoiceOption{
			{Name: "a", Format: u16()},
			{Name: "b", Format: &ArrayFormat{Elem: u8(), Len: Int(2)}},
		}}, SizeFixed, 2},
		{"choice differing sizes", &ChoiceFormat{Options: []ChoiceOption{
			{Name: "a", Format: u16()},
			{Name: "b", Format: u8()},
		}}, SizeVariable, 0},
		{"empty", &EmptyFormat{}, SizeFixed, 0},
		{"end", &EndFormat{}, SizeFixed, 0},
		{"bounded repeat", &RepeatFormat{Count: Int(4), Elem: u16()}, SizeFixed, 8},
		{"unbounded repeat", &RepeatFormat{Elem: u16()}, SizeUnknown, 0},
		{"symbolic repeat count", &RepeatFormat{Count: &Var{Name: "n"}, Elem: u16()}, SizeUnknown, 0},
		{"pointer link occupies its offset field", &LinkFormat{
			Kind:   LinkPointer,
			Base:   "start",
			Offset: &IntFormat{Bits: 32, Order: OrderBig},
			Target: u16(),
		}, SizeFixed, 4},
		{"slice link occupies offset and length", &LinkFormat{
			Kind:   LinkSlice,
			Base:   "start",
			Offset: &IntFormat{Bits: 32, Order: OrderBig},
			Length: u16(),
			Target: u8(),
		}, SizeFixed, 6},
		{"stuck variable", &Var{Name: "n"}, SizeUnknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(env, tt.format)
			if got.Kind != tt.wantKind {
				t.Fatalf("expected %v, got %v", tt.wantKind, got.Kind)
			}
			if got.Kind == SizeFixed && got.Size.Int64() != tt.wantSize {
				t.Errorf("expected size %d, got %v", tt.wantSize, got.Size)
			}
		})
	}
}

func TestClassifyNamedFormat(t *testing.T) {
	header := &StructFormat{Fields: []StructFormatField{
		{Name: "magic", Format: &ArrayFormat{Elem: u8(), Len: Int(4)}},
		{Name: "version", Format: u16()},
	}}
	env := NewContext().ExtendDef("Header", &FormatKind{}, header)
	got := Classify(env, &Var{Name: "Header"})
	if got.Kind != SizeFixed || got.Size.Int64() != 6 {
		t.Errorf("expected fixed 6, got %v %v", got.Kind, got.Size)
	}
}

func TestClassifyRecursiveFormat(t *testing.T) {
	// Node = choice { leaf: u8, cons: { head: u8, tail: Node } }
	node := &ChoiceFormat{Options: []ChoiceOption{
		{Name: "leaf", Format: u8()},
		{Name: "cons", Format: &StructFormat{Fields: []StructFormatField{
			{Name: "head", Format: u8()},
			{Name: "tail", Format: &Var{Name: "Node"}},
		}}},
	}}
	env := NewContext().ExtendDef("Node", &FormatKind{}, node)
	got := Classify(env, &Var{Name: "Node"})
	if got.Kind != SizeUnknown {
		t.Errorf("recursive format should classify unknown, got %v", got.Kind)
	}
}

func TestMinSize(t *testing.T) {
	env := NewContext()
	tests := []struct {
		name   string
		format Term
		want   int64
	}{
		{"u32", &IntFormat{Bits: 32}, 4},
		{"empty", &EmptyFormat{}, 0},
		{"struct", &StructFormat{Fields: []StructFormatField{
			{Name: "a", Format: u16()},
			{Name: "b", Format: u8()},
		}}, 3},
		{"choice takes minimum", &ChoiceFormat{Options: []ChoiceOption{
			{Name: "a", Format: u16()},
			{Name: "b", Format: u8()},
		}}, 1},
		{"intersection takes maximum", &IntersectFormat{Left: u8(), Right: u16()}, 2},
		{"unbounded repeat", &RepeatFormat{Elem: u16()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinSize(env, tt.format)
			if got.Int64() != tt.want {
				t.Errorf("expected %d, got %v", tt.want, got)
			}
		})
	}
}

func TestMinSizeRecursive(t *testing.T) {
	node := &StructFormat{Fields: []StructFormatField{
		{Name: "tag", Format: u8()},
		{Name: "next", Format: &Var{Name: "Node"}},
	}}
	env := NewContext().ExtendDef("Node", &FormatKind{}, node)
	got := MinSize(env, &Var{Name: "Node"})
	if got.Int64() < 1 {
		t.Errorf("recursive format should have positive minimum size, got %v", got)
	}
}

func TestReprOf(t *testing.T) {
	env := NewContext()
	tests := []struct {
		name   string
		format Term
		want   string
	}{
		{"int", u16(), "Int"},
		{"float", &FloatFormat{Bits: 32}, "Float"},
		{"string", &StrFormat{Len: Int(4)}, "String"},
		{"array", &ArrayFormat{Elem: u8(), Len: Int(4)}, "Vector(Int)"},
		{"existential array", &ExtArrayFormat{Elem: u16(), ByteLen: Int(8)}, "Vector(Int)"},
		{"struct", &StructFormat{Fields: []StructFormatField{
			{Name: "len", Format: u16()},
			{Name: "data", Format: &ArrayFormat{Elem: u8(), Len: &Var{Name: "len"}}},
		}}, "{len : Int, data : Vector(Int)}"},
		{"where erases refinement", &WhereFormat{Name: "v", Format: u16(), Pred: Bool(true)}, "Int"},
		{"empty", &EmptyFormat{}, "Unit"},
		{"error", &ErrorFormat{}, "Bottom"},
		{"repeat", &RepeatFormat{Elem: u8()}, "Vector(Int)"},
		{"pointer link", &LinkFormat{
			Kind:   LinkPointer,
			Base:   "start",
			Offset: &IntFormat{Bits: 32, Order: OrderBig},
			Target: u16(),
		}, "{offset : Int, target : Int}"},
		{"slice link", &LinkFormat{
			Kind:   LinkSlice,
			Base:   "start",
			Offset: &IntFormat{Bits: 32, Order: OrderBig},
			Length: u16(),
			Target: u16(),
		}, "{offset : Int, target : Vector(Int)}"},
		{"choice shared repr", &ChoiceFormat{Options: []ChoiceOption{
			{Name: "a", Format: u16()},
			{Name: "b", Format: u8()},
		}}, "Int"},
		{"choice sum repr", &ChoiceFormat{Options: []ChoiceOption{
			{Name: "num", Format: u16()},
			{Name: "text", Format: &StrFormat{Len: Int(4)}},
		}}, "Sum{num, text}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReprOf(env, tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if String(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, String(got))
			}
		})
	}
}

func TestReprOfNonFormat(t *testing.T) {
	if _, err := ReprOf(NewContext(), Int(3)); err == nil {
		t.Errorf("expected error projecting a non-format term")
	}
}
