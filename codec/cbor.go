package codec

import (
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/partite-ai/binform/core"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The same
// decoded value always produces identical bytes.
var encMode cbor.EncMode

// decMode accepts standard CBOR and decodes maps into map[string]any so
// the result round-trips through ToTerm.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR serializes a decoded value term as deterministic CBOR.
func MarshalCBOR(t core.Term) ([]byte, error) {
	v, err := FromTerm(t)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// AppendCBOR appends the deterministic CBOR encoding of a decoded value
// term to dst.
func AppendCBOR(dst []byte, t core.Term) ([]byte, error) {
	out, err := MarshalCBOR(t)
	if err != nil {
		return dst, err
	}
	return append(dst, out...), nil
}

// UnmarshalCBOR parses CBOR data into a value term.
func UnmarshalCBOR(data []byte) (core.Term, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return ToTerm(normalizeDecoded(v))
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// normalizeDecoded rewrites the cbor decoder's interface shapes into the
// ones ToTerm accepts.
func normalizeDecoded(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeDecoded(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = normalizeDecoded(e)
		}
		return v
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
