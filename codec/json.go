package codec

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/partite-ai/binform/core"
)

// MarshalJSON serializes a decoded value term as JSON. Arbitrary
// precision integers serialize as JSON numbers without loss; callers
// that need to re-read them should use UnmarshalJSON here rather than a
// float64-based parser.
func MarshalJSON(t core.Term) ([]byte, error) {
	v, err := FromTerm(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// MarshalJSONIndent is MarshalJSON with two-space indentation, for the
// command line dump path.
func MarshalJSONIndent(t core.Term) ([]byte, error) {
	v, err := FromTerm(t)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// UnmarshalJSON parses JSON data into a value term. Numbers parse as
// integers when they have no fraction or exponent, floats otherwise.
func UnmarshalJSON(data []byte) (core.Term, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return ToTerm(convertNumbers(v))
}

func convertNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, ok := new(big.Int).SetString(v.String(), 10); ok {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = convertNumbers(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = convertNumbers(e)
		}
		return v
	default:
		return v
	}
}
