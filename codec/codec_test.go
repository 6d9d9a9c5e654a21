package codec

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/partite-ai/binform/core"
)

func record(fields ...core.RecordField) *core.RecordLit {
	return &core.RecordLit{Fields: fields}
}

func field(name string, v core.Term) core.RecordField {
	return core.RecordField{Name: name, Value: v}
}

func TestFromTerm(t *testing.T) {
	v, err := FromTerm(record(
		field("count", core.Int(2)),
		field("values", &core.VectorLit{Elems: []core.Term{core.Int(10), core.Int(20)}}),
		field("name", &core.StringLit{Value: "hi"}),
		field("flag", &core.BoolLit{Value: true}),
		field("nothing", &core.UnitLit{}),
	))
	if err != nil {
		t.Fatalf("FromTerm failed: %v", err)
	}
	want := map[string]any{
		"count":   int64(2),
		"values":  []any{int64(10), int64(20)},
		"name":    "hi",
		"flag":    true,
		"nothing": nil,
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("lowered value mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTermSum(t *testing.T) {
	v, err := FromTerm(&core.SumLit{Branch: 1, Name: "text", Value: &core.StringLit{Value: "ok"}})
	if err != nil {
		t.Fatalf("FromTerm failed: %v", err)
	}
	want := map[string]any{"text": "ok"}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("sum value mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTermRejectsNonValue(t *testing.T) {
	if _, err := FromTerm(&core.Var{Name: "x"}); err == nil {
		t.Error("expected an error for a neutral term")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := record(
		field("count", core.Int(2)),
		field("values", &core.VectorLit{Elems: []core.Term{core.Int(10), core.Int(20)}}),
	)
	data, err := MarshalJSON(in)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	want := `{"count":2,"values":[10,20]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
	out, err := UnmarshalJSON(data)
	if err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if core.String(out) != core.String(in) {
		t.Errorf("round trip changed value: %s != %s", core.String(out), core.String(in))
	}
}

func TestCBORRoundTrip(t *testing.T) {
	in := record(
		field("count", core.Int(2)),
		field("name", &core.StringLit{Value: "hi"}),
	)
	data, err := MarshalCBOR(in)
	if err != nil {
		t.Fatalf("MarshalCBOR failed: %v", err)
	}
	out, err := UnmarshalCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalCBOR failed: %v", err)
	}
	if core.String(out) != core.String(in) {
		t.Errorf("round trip changed value: %s != %s", core.String(out), core.String(in))
	}
}

func TestCBORDeterministic(t *testing.T) {
	in := record(field("b", core.Int(1)), field("a", core.Int(2)))
	first, err := MarshalCBOR(in)
	if err != nil {
		t.Fatalf("MarshalCBOR failed: %v", err)
	}
	second, err := MarshalCBOR(record(field("a", core.Int(2)), field("b", core.Int(1))))
	if err != nil {
		t.Fatalf("MarshalCBOR failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("field order leaked into the encoding:\n%s", diff)
	}
	diag, err := Diagnose(first)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if !strings.Contains(diag, `"a"`) || !strings.Contains(diag, `"b"`) {
		t.Errorf("unexpected diagnostic %s", diag)
	}
}
