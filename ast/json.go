package ast

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tidwall/jsonc"
)

// JSON term trees.
//
// Tooling that does not embed a parser can supply raw terms as JSON (or
// JSONC, comments and trailing commas permitted). The encoding is a direct
// transliteration of the term tree:
//
//   - a string is a variable reference, or one of the builtin format names
//     ("u8".."u64be"/"..le", "i8".., "f32", "f64", "byte", "empty", "end",
//     "error")
//   - a number or a bool is the corresponding literal
//   - everything else is an object with a "term" kind field, e.g.
//     {"term": "struct", "fields": [{"name": "count", "type": "u32"}, ...]}
//
// A module file is {"declarations": [{"name": ..., "params": [...],
// "body": ...}, ...]}.

// ParseJSON decodes a single JSONC-encoded raw term.
func ParseJSON(data []byte) (Term, error) {
	var v any
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return nil, fmt.Errorf("invalid term JSON: %w", err)
	}
	return termFromJSON(v)
}

// ParseModuleJSON decodes a JSONC-encoded module of declarations.
func ParseModuleJSON(data []byte) (*Module, error) {
	var v struct {
		Declarations []struct {
			Name   string          `json:"name"`
			Params []string        `json:"params"`
			Body   json.RawMessage `json:"body"`
		} `json:"declarations"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return nil, fmt.Errorf("invalid module JSON: %w", err)
	}
	module := &Module{}
	for _, d := range v.Declarations {
		if d.Name == "" {
			return nil, fmt.Errorf("declaration missing name")
		}
		var raw any
		if err := json.Unmarshal(d.Body, &raw); err != nil {
			return nil, fmt.Errorf("declaration %s: invalid body: %w", d.Name, err)
		}
		body, err := termFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("declaration %s: %w", d.Name, err)
		}
		module.Decls = append(module.Decls, Decl{Name: d.Name, Params: d.Params, Body: body})
	}
	return module, nil
}

var builtinFormats = map[string]func() Term{
	"u8":      func() Term { return &UInt{Bits: 8} },
	"byte":    func() Term { return &UInt{Bits: 8} },
	"u16":     func() Term { return &UInt{Bits: 16} },
	"u32":     func() Term { return &UInt{Bits: 32} },
	"u64":     func() Term { return &UInt{Bits: 64} },
	"u16be":   func() Term { return &UInt{Bits: 16, Order: OrderBig} },
	"u32be":   func() Term { return &UInt{Bits: 32, Order: OrderBig} },
	"u64be":   func() Term { return &UInt{Bits: 64, Order: OrderBig} },
	"u16le":   func() Term { return &UInt{Bits: 16, Order: OrderLittle} },
	"u32le":   func() Term { return &UInt{Bits: 32, Order: OrderLittle} },
	"u64le":   func() Term { return &UInt{Bits: 64, Order: OrderLittle} },
	"i8":      func() Term { return &SInt{Bits: 8} },
	"i16":     func() Term { return &SInt{Bits: 16} },
	"i32":     func() Term { return &SInt{Bits: 32} },
	"i64":     func() Term { return &SInt{Bits: 64} },
	"i16be":   func() Term { return &SInt{Bits: 16, Order: OrderBig} },
	"i32be":   func() Term { return &SInt{Bits: 32, Order: OrderBig} },
	"i64be":   func() Term { return &SInt{Bits: 64, Order: OrderBig} },
	"i16le":   func() Term { return &SInt{Bits: 16, Order: OrderLittle} },
	"i32le":   func() Term { return &SInt{Bits: 32, Order: OrderLittle} },
	"i64le":   func() Term { return &SInt{Bits: 64, Order: OrderLittle} },
	"f32":     func() Term { return &Float{Bits: 32} },
	"f64":     func() Term { return &Float{Bits: 64} },
	"f32le":   func() Term { return &Float{Bits: 32, Order: OrderLittle} },
	"f64le":   func() Term { return &Float{Bits: 64, Order: OrderLittle} },
	"empty":   func() Term { return &Empty{} },
	"end":     func() Term { return &End{} },
	"error":   func() Term { return &ErrorFormat{} },
	"Bool":    func() Term { return &Name{Ident: "Bool"} },
	"Int":     func() Term { return &Name{Ident: "Int"} },
	"Format":  func() Term { return &Name{Ident: "Format"} },
	"Type":    func() Term { return &Universe{} },
	"Type(1)": func() Term { return &Universe{Level: 1} },
}

var encodingNames = map[string]StringEncoding{
	"ascii":   EncodingASCII,
	"latin1":  EncodingLatin1,
	"utf8":    EncodingUTF8,
	"utf16be": EncodingUTF16BE,
	"utf16le": EncodingUTF16LE,
}

func termFromJSON(v any) (Term, error) {
	switch v := v.(type) {
	case string:
		if mk, ok := builtinFormats[v]; ok {
			return mk(), nil
		}
		return &Name{Ident: v}, nil
	case bool:
		return &BoolLit{Value: v}, nil
	case float64:
		// Whole numbers are integer literals; use {"term": "float"} for
		// a float with an integral value.
		if i, acc := big.NewFloat(v).Int(nil); acc == big.Exact {
			return &IntLit{Value: i}, nil
		}
		return &FloatLit{Value: v}, nil
	case map[string]any:
		return termFromObject(v)
	default:
		return nil, fmt.Errorf("unsupported term JSON of type %T", v)
	}
}

func termFromObject(obj map[string]any) (Term, error) {
	kind, _ := obj["term"].(string)
	switch kind {
	case "string":
		s, _ := obj["value"].(string)
		return &StringLit{Value: s}, nil
	case "float":
		f, ok := obj["value"].(float64)
		if !ok {
			return nil, fmt.Errorf("float term missing numeric value")
		}
		return &FloatLit{Value: f}, nil
	case "ann":
		return build2(obj, "of", "type", func(a, b Term) Term { return &Ann{Term: a, Type: b} })
	case "app":
		fn, err := field(obj, "fn")
		if err != nil {
			return nil, err
		}
		args, err := termList(obj, "args")
		if err != nil {
			return nil, err
		}
		return AppOf(fn, args...), nil
	case "pi":
		body, err := field(obj, "body")
		if err != nil {
			return nil, err
		}
		paramType, err := field(obj, "paramType")
		if err != nil {
			return nil, err
		}
		name, _ := obj["param"].(string)
		return &Pi{Param: name, ParamType: paramType, Body: body}, nil
	case "lam":
		body, err := field(obj, "body")
		if err != nil {
			return nil, err
		}
		name, _ := obj["param"].(string)
		lam := &Lam{Param: name, Body: body}
		if _, ok := obj["paramType"]; ok {
			pt, err := field(obj, "paramType")
			if err != nil {
				return nil, err
			}
			lam.ParamType = pt
		}
		return lam, nil
	case "proj":
		of, err := field(obj, "of")
		if err != nil {
			return nil, err
		}
		name, _ := obj["field"].(string)
		return &Proj{Term: of, Field: name}, nil
	case "if":
		cond, err := field(obj, "cond")
		if err != nil {
			return nil, err
		}
		then, err := field(obj, "then")
		if err != nil {
			return nil, err
		}
		els, err := field(obj, "else")
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Then: then, Else: els}, nil
	case "==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "&&", "||":
		return binaryFromObject(kind, obj)
	case "not":
		of, err := field(obj, "of")
		if err != nil {
			return nil, err
		}
		return &Not{Term: of}, nil
	case "sizeof":
		of, err := field(obj, "of")
		if err != nil {
			return nil, err
		}
		return &SizeOf{Term: of}, nil
	case "array":
		return build2(obj, "elem", "len", func(a, b Term) Term { return &Array{Elem: a, Len: b} })
	case "extarray":
		elem, err := field(obj, "elem")
		if err != nil {
			return nil, err
		}
		return &ExtArray{Elem: elem}, nil
	case "struct":
		return structFromObject(obj)
	case "where":
		name, _ := obj["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("where term missing binder name")
		}
		return build2(obj, "format", "pred", func(a, b Term) Term {
			return &Where{Name: name, Format: a, Pred: b}
		})
	case "intersect":
		return build2(obj, "left", "right", func(a, b Term) Term { return &Intersect{Left: a, Right: b} })
	case "interp":
		format, err := field(obj, "format")
		if err != nil {
			return nil, err
		}
		conv, err := field(obj, "conv")
		if err != nil {
			return nil, err
		}
		interp := &Interp{Format: format, Conv: conv}
		if _, ok := obj["inverse"]; ok {
			inv, err := field(obj, "inverse")
			if err != nil {
				return nil, err
			}
			interp.Inverse = inv
		}
		return interp, nil
	case "switch":
		return switchFromObject(obj)
	case "choice":
		return choiceFromObject(obj)
	case "repeat":
		elem, err := field(obj, "elem")
		if err != nil {
			return nil, err
		}
		rep := &Repeat{Elem: elem}
		if _, ok := obj["count"]; ok {
			count, err := field(obj, "count")
			if err != nil {
				return nil, err
			}
			rep.Count = count
		}
		return rep, nil
	case "pointer", "slice":
		return linkFromObject(kind, obj)
	case "str":
		length, err := field(obj, "len")
		if err != nil {
			return nil, err
		}
		encName, _ := obj["encoding"].(string)
		enc, ok := encodingNames[encName]
		if !ok {
			return nil, fmt.Errorf("unknown string encoding %q", encName)
		}
		return &Str{Len: length, Encoding: enc}, nil
	case "":
		return nil, fmt.Errorf("term object missing \"term\" kind")
	default:
		return nil, fmt.Errorf("unknown term kind %q", kind)
	}
}

func binaryFromObject(kind string, obj map[string]any) (Term, error) {
	ops := map[string]BinOp{
		"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
		"+": OpAdd, "-": OpSub, "*": OpMul, "&&": OpAnd, "||": OpOr,
	}
	return build2(obj, "left", "right", func(a, b Term) Term {
		return &Binary{Op: ops[kind], Left: a, Right: b}
	})
}

func structFromObject(obj map[string]any) (Term, error) {
	rawFields, _ := obj["fields"].([]any)
	st := &Struct{}
	for i, rf := range rawFields {
		fobj, ok := rf.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("struct field %d is not an object", i)
		}
		name, _ := fobj["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("struct field %d missing name", i)
		}
		typ, err := field(fobj, "type")
		if err != nil {
			return nil, fmt.Errorf("struct field %s: %w", name, err)
		}
		st.Fields = append(st.Fields, StructField{Name: name, Type: typ})
	}
	return st, nil
}

func switchFromObject(obj map[string]any) (Term, error) {
	scrutinee, err := field(obj, "on")
	if err != nil {
		return nil, err
	}
	rawArms, _ := obj["arms"].([]any)
	sw := &Switch{Scrutinee: scrutinee}
	for i, ra := range rawArms {
		aobj, ok := ra.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("switch arm %d is not an object", i)
		}
		pattern, err := field(aobj, "pattern")
		if err != nil {
			return nil, fmt.Errorf("switch arm %d: %w", i, err)
		}
		format, err := field(aobj, "format")
		if err != nil {
			return nil, fmt.Errorf("switch arm %d: %w", i, err)
		}
		sw.Arms = append(sw.Arms, SwitchArm{Pattern: pattern, Format: format})
	}
	if _, ok := obj["otherwise"]; ok {
		otherwise, err := field(obj, "otherwise")
		if err != nil {
			return nil, err
		}
		sw.Otherwise = otherwise
	}
	return sw, nil
}

func choiceFromObject(obj map[string]any) (Term, error) {
	rawOptions, _ := obj["options"].([]any)
	ch := &Choice{}
	for i, ro := range rawOptions {
		oobj, ok := ro.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("choice option %d is not an object", i)
		}
		name, _ := oobj["name"].(string)
		format, err := field(oobj, "format")
		if err != nil {
			return nil, fmt.Errorf("choice option %d: %w", i, err)
		}
		ch.Options = append(ch.Options, ChoiceOption{Name: name, Format: format})
	}
	return ch, nil
}

func linkFromObject(kind string, obj map[string]any) (Term, error) {
	base, _ := obj["base"].(string)
	if base == "" {
		base = "start"
	}
	offset, err := field(obj, "offset")
	if err != nil {
		return nil, err
	}
	target, err := field(obj, "target")
	if err != nil {
		return nil, err
	}
	link := &Link{Base: base, Offset: offset, Target: target}
	if kind == "slice" {
		link.Kind = LinkSlice
		length, err := field(obj, "length")
		if err != nil {
			return nil, err
		}
		link.Length = length
	}
	return link, nil
}

func field(obj map[string]any, key string) (Term, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	t, err := termFromJSON(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func termList(obj map[string]any, key string) ([]Term, error) {
	raw, _ := obj[key].([]any)
	terms := make([]Term, 0, len(raw))
	for i, rv := range raw {
		t, err := termFromJSON(rv)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func build2(obj map[string]any, k1, k2 string, mk func(a, b Term) Term) (Term, error) {
	a, err := field(obj, k1)
	if err != nil {
		return nil, err
	}
	b, err := field(obj, k2)
	if err != nil {
		return nil, err
	}
	return mk(a, b), nil
}
