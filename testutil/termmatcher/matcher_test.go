package termmatcher

import (
	"strings"
	"testing"

	"github.com/partite-ai/binform/core"
)

func value() core.Term {
	return &core.RecordLit{Fields: []core.RecordField{
		{Name: "count", Value: core.Int(2)},
		{Name: "values", Value: &core.VectorLit{Elems: []core.Term{core.Int(10), core.Int(20)}}},
		{Name: "name", Value: &core.StringLit{Value: "hi"}},
	}}
}

func TestRecordMatch(t *testing.T) {
	m := Record(
		Field("count", Int(2)),
		Field("values", Ints(10, 20)),
		Field("name", Str("hi")),
	)
	if err := m(value()); err != nil {
		t.Errorf("expected match: %v", err)
	}
}

func TestRecordMismatch(t *testing.T) {
	m := Record(
		Field("count", Int(3)),
		Field("values", Ints(10, 20)),
		Field("name", Str("hi")),
	)
	err := m(value())
	if err == nil {
		t.Fatal("expected a mismatch")
	}
	if !strings.Contains(err.Error(), "field count") {
		t.Errorf("mismatch should name the field: %v", err)
	}
}

func TestSumMatch(t *testing.T) {
	sum := &core.SumLit{Branch: 1, Name: "text", Value: &core.StringLit{Value: "ok"}}
	if err := Sum("text", Str("ok"))(sum); err != nil {
		t.Errorf("expected match: %v", err)
	}
	if err := Sum("num", Int(1))(sum); err == nil {
		t.Error("expected a branch mismatch")
	}
}

func TestEqual(t *testing.T) {
	if err := Equal(value())(value()); err != nil {
		t.Errorf("expected equal terms: %v", err)
	}
	other := &core.RecordLit{Fields: []core.RecordField{{Name: "count", Value: core.Int(9)}}}
	if err := Equal(value())(other); err == nil {
		t.Error("expected a diff")
	}
}
