package binary

import (
	"errors"
	"testing"

	"github.com/partite-ai/binform/ast"
	"github.com/partite-ai/binform/core"
)

func u8() *core.IntFormat  { return &core.IntFormat{Bits: 8} }
func u16() *core.IntFormat { return &core.IntFormat{Bits: 16, Order: core.OrderBig} }
func u32() *core.IntFormat { return &core.IntFormat{Bits: 32, Order: core.OrderBig} }

func mustDecode(t *testing.T, format core.Term, data []byte) (core.Term, int) {
	t.Helper()
	v, n, err := NewDecoder(nil).Decode(format, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return v, n
}

func TestDecodeUint16(t *testing.T) {
	v, n := mustDecode(t, u16(), []byte{0x00, 0x05})
	if n != 2 {
		t.Errorf("expected 2 bytes consumed, got %d", n)
	}
	lit, ok := v.(*core.IntLit)
	if !ok || lit.Value.Int64() != 5 {
		t.Errorf("expected 5, got %s", core.String(v))
	}
}

func TestDecodeIntVariants(t *testing.T) {
	tests := []struct {
		name   string
		format *core.IntFormat
		data   []byte
		want   int64
	}{
		{"u16 big", &core.IntFormat{Bits: 16, Order: core.OrderBig}, []byte{0x01, 0x02}, 0x0102},
		{"u16 little", &core.IntFormat{Bits: 16, Order: core.OrderLittle}, []byte{0x01, 0x02}, 0x0201},
		{"i8 negative", &core.IntFormat{Bits: 8, Signed: true}, []byte{0xff}, -1},
		{"i16 negative", &core.IntFormat{Bits: 16, Signed: true, Order: core.OrderBig}, []byte{0xff, 0x38}, -200},
		{"u32", &core.IntFormat{Bits: 32, Order: core.OrderBig}, []byte{0x00, 0x01, 0x00, 0x00}, 0x00010000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, n := mustDecode(t, tt.format, tt.data)
			if n != len(tt.data) {
				t.Errorf("expected %d bytes consumed, got %d", len(tt.data), n)
			}
			lit := v.(*core.IntLit)
			if lit.Value.Int64() != tt.want {
				t.Errorf("expected %d, got %v", tt.want, lit.Value)
			}
		})
	}
}

func TestDecodeInsufficientBytes(t *testing.T) {
	_, _, err := NewDecoder(nil).Decode(u32(), []byte{0x01, 0x02})
	if !errors.Is(err, ErrInsufficientBytes) {
		t.Fatalf("expected ErrInsufficientBytes, got %v", err)
	}
	var detail *InsufficientBytesError
	if !errors.As(err, &detail) {
		t.Fatalf("expected detailed error, got %v", err)
	}
	if detail.Needed != 4 || detail.Available != 2 {
		t.Errorf("expected need 4 have 2, got %+v", detail)
	}
}

func TestDecodeDependentStruct(t *testing.T) {
	// struct { count: u32, values: [u32; count] }
	format := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "count", Format: u32()},
		{Name: "values", Format: &core.ArrayFormat{Elem: u32(), Len: &core.Var{Name: "count"}}},
	}}
	data := []byte{
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x0a,
		0x00, 0x00, 0x00, 0x14,
	}
	v, n := mustDecode(t, format, data)
	if n != 12 {
		t.Errorf("expected 12 bytes consumed, got %d", n)
	}
	if got, want := core.String(v), "{count = 2, values = [10, 20]}"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	// The instance size is statically computable once count is known.
	env := core.NewContext().ExtendDef("count", &core.IntType{}, core.Int(2))
	size := core.Normalize(env, &core.SizeOf{Term: &core.ArrayFormat{Elem: u32(), Len: &core.Var{Name: "count"}}})
	if lit, ok := size.(*core.IntLit); !ok || lit.Value.Int64() != 8 {
		t.Errorf("expected array size 8, got %s", core.String(size))
	}
}

func taggedStruct(tag int64, payload core.Term) *core.StructFormat {
	return &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "tag", Format: &core.WhereFormat{
			Name:   "tag",
			Format: u8(),
			Pred: &core.Binary{
				Op:    ast.OpEq,
				Left:  &core.Var{Name: "tag"},
				Right: core.Int(tag),
			},
		}},
		{Name: "body", Format: payload},
	}}
}

func TestDecodeChoice(t *testing.T) {
	// The payload representations differ, so values carry the branch tag.
	format := &core.ChoiceFormat{Options: []core.ChoiceOption{
		{Name: "A", Format: taggedStruct(1, u16())},
		{Name: "B", Format: taggedStruct(2, &core.StrFormat{Len: core.Int(2), Encoding: ast.EncodingASCII})},
	}}

	v, n := mustDecode(t, format, []byte{0x02, 'h', 'i'})
	if n != 3 {
		t.Errorf("expected 3 bytes consumed, got %d", n)
	}
	sum, ok := v.(*core.SumLit)
	if !ok {
		t.Fatalf("expected tagged sum, got %s", core.String(v))
	}
	if sum.Name != "B" {
		t.Errorf("expected option B, got %s", sum.Name)
	}

	_, _, err := NewDecoder(nil).Decode(format, []byte{0x03, 0x00, 0x00})
	if !errors.Is(err, ErrNoMatchingChoice) {
		t.Errorf("expected ErrNoMatchingChoice, got %v", err)
	}
}

func TestDecodeChoiceSharedRepr(t *testing.T) {
	// Both options decode to the same record shape; the value stays
	// untagged and the selected option shows in its tag field.
	format := &core.ChoiceFormat{Options: []core.ChoiceOption{
		{Name: "A", Format: taggedStruct(1, u16())},
		{Name: "B", Format: taggedStruct(2, u16())},
	}}
	v, _ := mustDecode(t, format, []byte{0x02, 0x00, 0x07})
	rec, ok := v.(*core.RecordLit)
	if !ok {
		t.Fatalf("expected untagged record, got %s", core.String(v))
	}
	tag, _ := rec.Field("tag")
	if tag.(*core.IntLit).Value.Int64() != 2 {
		t.Errorf("expected tag 2, got %s", core.String(tag))
	}
}

func TestDecodeRepeatThenEnd(t *testing.T) {
	// struct { items: repeat (v: u8 where v < 128), done: end }
	format := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "items", Format: &core.RepeatFormat{Elem: &core.WhereFormat{
			Name:   "v",
			Format: u8(),
			Pred: &core.Binary{
				Op:    ast.OpLt,
				Left:  &core.Var{Name: "v"},
				Right: core.Int(128),
			},
		}}},
		{Name: "done", Format: &core.EndFormat{}},
	}}

	v, n := mustDecode(t, format, []byte{1, 2, 3, 4, 5})
	if n != 5 {
		t.Errorf("expected 5 bytes consumed, got %d", n)
	}
	rec := v.(*core.RecordLit)
	items, _ := rec.Field("items")
	if len(items.(*core.VectorLit).Elems) != 5 {
		t.Errorf("expected 5 elements, got %s", core.String(items))
	}

	_, _, err := NewDecoder(nil).Decode(format, []byte{1, 2, 3, 4, 5, 0x90})
	if !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestDecodeConstraint(t *testing.T) {
	// version: u32 where version == 0x00010000
	format := &core.WhereFormat{
		Name:   "version",
		Format: u32(),
		Pred: &core.Binary{
			Op:    ast.OpEq,
			Left:  &core.Var{Name: "version"},
			Right: core.Int(0x00010000),
		},
	}

	v, _ := mustDecode(t, format, []byte{0x00, 0x01, 0x00, 0x00})
	if lit := v.(*core.IntLit); lit.Value.Int64() != 0x00010000 {
		t.Errorf("expected 0x00010000, got %v", lit.Value)
	}

	_, _, err := NewDecoder(nil).Decode(format, []byte{0x00, 0x02, 0x00, 0x00})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestDecodeExistentialArray(t *testing.T) {
	// struct { len: u16, data: [u16] where sizeof(data) == len }
	// elaborated: the array's byte budget is the len field.
	format := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "len", Format: u16()},
		{Name: "data", Format: &core.ExtArrayFormat{Elem: u16(), ByteLen: &core.Var{Name: "len"}}},
	}}
	data := []byte{0x00, 0x04, 0x00, 0x0a, 0x00, 0x14}
	v, n := mustDecode(t, format, data)
	if n != 6 {
		t.Errorf("expected 6 bytes consumed, got %d", n)
	}
	rec := v.(*core.RecordLit)
	elems, _ := rec.Field("data")
	if got := core.String(elems); got != "[10, 20]" {
		t.Errorf("expected [10, 20], got %s", got)
	}
}

func TestDecodeSizeOfConstraint(t *testing.T) {
	// struct { total: u8, body: (b: [u8; 2] where sizeof(b) + 1 == total) }
	format := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "total", Format: u8()},
		{Name: "body", Format: &core.WhereFormat{
			Name:   "b",
			Format: &core.ArrayFormat{Elem: u8(), Len: core.Int(2)},
			Pred: &core.Binary{
				Op: ast.OpEq,
				Left: &core.Binary{
					Op:    ast.OpAdd,
					Left:  &core.SizeOf{Term: &core.Var{Name: "b"}},
					Right: core.Int(1),
				},
				Right: &core.Var{Name: "total"},
			},
		}},
	}}
	if _, n := mustDecode(t, format, []byte{3, 7, 8}); n != 3 {
		t.Errorf("expected 3 bytes consumed, got %d", n)
	}
	_, _, err := NewDecoder(nil).Decode(format, []byte{9, 7, 8})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestDecodeSwitch(t *testing.T) {
	// struct { kind: u8, body: switch kind { 1 => u16, 2 => u32 } }
	format := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "kind", Format: u8()},
		{Name: "body", Format: &core.SwitchFormat{
			Scrutinee: &core.Var{Name: "kind"},
			Arms: []core.SwitchArm{
				{Pattern: core.Int(1), Body: u16()},
				{Pattern: core.Int(2), Body: u32()},
			},
		}},
	}}

	v, n := mustDecode(t, format, []byte{0x01, 0x00, 0x09})
	if n != 3 {
		t.Errorf("expected 3 bytes consumed, got %d", n)
	}
	rec := v.(*core.RecordLit)
	body, _ := rec.Field("body")
	if body.(*core.IntLit).Value.Int64() != 9 {
		t.Errorf("expected 9, got %s", core.String(body))
	}

	_, _, err := NewDecoder(nil).Decode(format, []byte{0x07, 0x00, 0x09})
	if !errors.Is(err, ErrNoMatchingSwitchArm) {
		t.Errorf("expected ErrNoMatchingSwitchArm, got %v", err)
	}
}

func TestDecodeIntersection(t *testing.T) {
	format := &core.IntersectFormat{
		Left:  &core.ArrayFormat{Elem: u8(), Len: core.Int(2)},
		Right: u16(),
	}
	v, n := mustDecode(t, format, []byte{0x01, 0x02})
	if n != 2 {
		t.Errorf("expected 2 bytes consumed, got %d", n)
	}
	rec := v.(*core.RecordLit)
	right, _ := rec.Field("right")
	if right.(*core.IntLit).Value.Int64() != 0x0102 {
		t.Errorf("expected 258, got %s", core.String(right))
	}
}

func TestDecodeInterp(t *testing.T) {
	// u8 interpreted as its doubled value.
	format := &core.InterpFormat{
		Format: u8(),
		Conv: &core.Lam{Param: "x", Body: &core.Binary{
			Op:    ast.OpMul,
			Left:  &core.Var{Name: "x"},
			Right: core.Int(2),
		}},
		Repr: &core.IntType{},
	}
	v, _ := mustDecode(t, format, []byte{21})
	if v.(*core.IntLit).Value.Int64() != 42 {
		t.Errorf("expected 42, got %s", core.String(v))
	}
}

func TestDecodeStrings(t *testing.T) {
	tests := []struct {
		name   string
		format *core.StrFormat
		data   []byte
		want   string
	}{
		{"ascii", &core.StrFormat{Len: core.Int(3), Encoding: ast.EncodingASCII}, []byte("GIF"), "GIF"},
		{"utf8", &core.StrFormat{Len: core.Int(4), Encoding: ast.EncodingUTF8}, []byte("h\xc3\xa9h"), "héh"},
		{"latin1", &core.StrFormat{Len: core.Int(2), Encoding: ast.EncodingLatin1}, []byte{0x68, 0xe9}, "hé"},
		{"utf16be", &core.StrFormat{Len: core.Int(4), Encoding: ast.EncodingUTF16BE}, []byte{0x00, 0x68, 0x00, 0x69}, "hi"},
		{"utf16le", &core.StrFormat{Len: core.Int(4), Encoding: ast.EncodingUTF16LE}, []byte{0x68, 0x00, 0x69, 0x00}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, n := mustDecode(t, tt.format, tt.data)
			if n != len(tt.data) {
				t.Errorf("expected %d bytes consumed, got %d", len(tt.data), n)
			}
			if lit := v.(*core.StringLit); lit.Value != tt.want {
				t.Errorf("expected %q, got %q", tt.want, lit.Value)
			}
		})
	}

	_, _, err := NewDecoder(nil).Decode(
		&core.StrFormat{Len: core.Int(1), Encoding: ast.EncodingASCII}, []byte{0xff})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation for non-ascii byte, got %v", err)
	}
}

func TestDecodePointerLink(t *testing.T) {
	// struct { value: @link pointer(start, offset u8) -> u16 }
	format := &core.LinkFormat{
		Kind:   core.LinkPointer,
		Base:   StartBase,
		Offset: u8(),
		Target: u16(),
	}
	data := []byte{0x03, 0xaa, 0xbb, 0x01, 0x02}
	v, n := mustDecode(t, format, data)
	if n != 1 {
		t.Errorf("link should consume only its offset field, got %d bytes", n)
	}
	rec := v.(*core.RecordLit)
	target, _ := rec.Field("target")
	if target.(*core.IntLit).Value.Int64() != 0x0102 {
		t.Errorf("expected target 258, got %s", core.String(target))
	}

	_, _, err := NewDecoder(nil).Decode(format, []byte{0x09})
	if !errors.Is(err, ErrLinkResolution) {
		t.Errorf("expected ErrLinkResolution for out-of-range offset, got %v", err)
	}
}

func TestDecodeSliceLink(t *testing.T) {
	format := &core.LinkFormat{
		Kind:   core.LinkSlice,
		Base:   StartBase,
		Offset: u8(),
		Length: u8(),
		Target: u16(),
	}
	data := []byte{0x02, 0x04, 0x00, 0x0a, 0x00, 0x14}
	v, n := mustDecode(t, format, data)
	if n != 2 {
		t.Errorf("slice link should consume offset and length, got %d bytes", n)
	}
	rec := v.(*core.RecordLit)
	target, _ := rec.Field("target")
	if got := core.String(target); got != "[10, 20]" {
		t.Errorf("expected [10, 20], got %s", got)
	}
}

func TestDecodeStructBase(t *testing.T) {
	// The struct base resolves relative to the innermost struct, not the
	// buffer start.
	inner := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "ptr", Format: &core.LinkFormat{
			Kind:   core.LinkPointer,
			Base:   StructBase,
			Offset: u8(),
			Target: u8(),
		}},
	}}
	outer := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "pad", Format: u8()},
		{Name: "body", Format: inner},
	}}
	// pad, then inner struct: offset 2 from inner start lands on 0x2a.
	data := []byte{0xff, 0x02, 0x00, 0x2a}
	v, _ := mustDecode(t, outer, data)
	rec := v.(*core.RecordLit)
	body, _ := rec.Field("body")
	ptr, _ := body.(*core.RecordLit).Field("ptr")
	target, _ := ptr.(*core.RecordLit).Field("target")
	if target.(*core.IntLit).Value.Int64() != 0x2a {
		t.Errorf("expected 42, got %s", core.String(target))
	}
}

func TestDecodeNamedRecursiveFormat(t *testing.T) {
	// Node = struct { tag: u8, next: switch tag { 0 => empty, otherwise Node } }
	node := &core.StructFormat{Fields: []core.StructFormatField{
		{Name: "tag", Format: u8()},
		{Name: "next", Format: &core.SwitchFormat{
			Scrutinee: &core.Var{Name: "tag"},
			Arms:      []core.SwitchArm{{Pattern: core.Int(0), Body: &core.EmptyFormat{}}},
			Otherwise: &core.Var{Name: "Node"},
		}},
	}}
	env := core.NewContext().ExtendDef("Node", &core.FormatKind{}, node)
	v, n, err := NewDecoder(env).Decode(&core.Var{Name: "Node"}, []byte{2, 1, 0})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 bytes consumed, got %d", n)
	}
	want := "{tag = 2, next = {tag = 1, next = {tag = 0, next = ()}}}"
	if got := core.String(v); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDecodeComplete(t *testing.T) {
	if _, err := NewDecoder(nil).DecodeComplete(u16(), []byte{0x00, 0x01}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err := NewDecoder(nil).DecodeComplete(u16(), []byte{0x00, 0x01, 0x02})
	if !errors.Is(err, ErrEndNotReached) {
		t.Errorf("expected ErrEndNotReached, got %v", err)
	}
}

func TestDecodeErrorFormat(t *testing.T) {
	_, _, err := NewDecoder(nil).Decode(&core.ErrorFormat{}, []byte{1})
	if !errors.Is(err, ErrAlwaysFails) {
		t.Errorf("expected ErrAlwaysFails, got %v", err)
	}
}

func TestDecodeFloat(t *testing.T) {
	v, _ := mustDecode(t, &core.FloatFormat{Bits: 32, Order: core.OrderBig}, []byte{0x3f, 0x80, 0x00, 0x00})
	if lit := v.(*core.FloatLit); lit.Value != 1.0 {
		t.Errorf("expected 1.0, got %v", lit.Value)
	}
	v, _ = mustDecode(t, &core.FloatFormat{Bits: 64, Order: core.OrderLittle},
		[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f})
	if lit := v.(*core.FloatLit); lit.Value != 1.0 {
		t.Errorf("expected 1.0, got %v", lit.Value)
	}
}
