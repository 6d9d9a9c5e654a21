package ast

import (
	"strings"
	"testing"
)

func TestParseModuleJSON(t *testing.T) {
	src := `{
		// Length-prefixed record.
		"declarations": [
			{
				"name": "Packet",
				"body": {
					"term": "struct",
					"fields": [
						{"name": "count", "type": "u16"},
						{"name": "values", "type": {"term": "array", "elem": "u16", "len": "count"}},
					],
				},
			},
		],
	}`
	m, err := ParseModuleJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseModuleJSON: %v", err)
	}
	if len(m.Decls) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(m.Decls))
	}
	st, ok := m.Decls[0].Body.(*Struct)
	if !ok {
		t.Fatalf("expected struct body, got %T", m.Decls[0].Body)
	}
	if len(st.Fields) != 2 || st.Fields[0].Name != "count" || st.Fields[1].Name != "values" {
		t.Fatalf("unexpected fields: %+v", st.Fields)
	}
	if u, ok := st.Fields[0].Type.(*UInt); !ok || u.Bits != 16 {
		t.Fatalf("expected u16 count, got %T", st.Fields[0].Type)
	}
	arr, ok := st.Fields[1].Type.(*Array)
	if !ok {
		t.Fatalf("expected array values, got %T", st.Fields[1].Type)
	}
	if n, ok := arr.Len.(*Name); !ok || n.Ident != "count" {
		t.Fatalf("expected count-sized array, got %T", arr.Len)
	}
}

func TestParseJSONTerms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want func(Term) bool
	}{
		{"variable", `"payload"`, func(t Term) bool {
			n, ok := t.(*Name)
			return ok && n.Ident == "payload"
		}},
		{"builtin little-endian", `"u32le"`, func(t Term) bool {
			u, ok := t.(*UInt)
			return ok && u.Bits == 32 && u.Order == OrderLittle
		}},
		{"integer literal", `258`, func(t Term) bool {
			i, ok := t.(*IntLit)
			return ok && i.Value.Int64() == 258
		}},
		{"float literal", `1.5`, func(t Term) bool {
			f, ok := t.(*FloatLit)
			return ok && f.Value == 1.5
		}},
		{"integral float term", `{"term": "float", "value": 2}`, func(t Term) bool {
			f, ok := t.(*FloatLit)
			return ok && f.Value == 2
		}},
		{"comparison", `{"term": "==", "left": "tag", "right": 1}`, func(t Term) bool {
			b, ok := t.(*Binary)
			return ok && b.Op == OpEq
		}},
		{"where", `{"term": "where", "name": "v", "format": "u8", "pred": {"term": "<", "left": "v", "right": 10}}`, func(t Term) bool {
			w, ok := t.(*Where)
			return ok && w.Name == "v"
		}},
		{"switch with otherwise", `{"term": "switch", "on": "tag",
			"arms": [{"pattern": 0, "format": "empty"}], "otherwise": "error"}`, func(t Term) bool {
			sw, ok := t.(*Switch)
			if !ok || len(sw.Arms) != 1 || sw.Otherwise == nil {
				return false
			}
			_, ok = sw.Otherwise.(*ErrorFormat)
			return ok
		}},
		{"slice link", `{"term": "slice", "base": "start", "offset": "u32", "length": "u32", "target": {"term": "extarray", "elem": "u8"}}`, func(t Term) bool {
			l, ok := t.(*Link)
			return ok && l.Kind == LinkSlice && l.Length != nil
		}},
		{"string format", `{"term": "str", "len": 4, "encoding": "utf8"}`, func(t Term) bool {
			s, ok := t.(*Str)
			return ok && s.Encoding == EncodingUTF8
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, err := ParseJSON([]byte(tt.src))
			if err != nil {
				t.Fatalf("ParseJSON: %v", err)
			}
			if !tt.want(term) {
				t.Errorf("unexpected parse of %s: %#v", tt.src, term)
			}
		})
	}
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing kind", `{"left": 1}`, `missing "term" kind`},
		{"unknown kind", `{"term": "frobnicate"}`, "unknown term kind"},
		{"float without value", `{"term": "float"}`, "missing numeric value"},
		{"unnamed where", `{"term": "where", "format": "u8", "pred": true}`, "missing binder name"},
		{"unknown encoding", `{"term": "str", "len": 4, "encoding": "ebcdic"}`, "unknown string encoding"},
		{"missing field", `{"term": "array", "elem": "u8"}`, `missing "len"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.src))
			if err == nil {
				t.Fatalf("expected error for %s", tt.src)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
