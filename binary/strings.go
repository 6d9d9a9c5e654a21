package binary

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/partite-ai/binform/ast"
)

func decodeString(enc ast.StringEncoding, raw []byte) (string, error) {
	switch enc {
	case ast.EncodingASCII:
		for _, b := range raw {
			if b >= 0x80 {
				return "", constraintErr(fmt.Sprintf("byte 0x%02x is not ascii", b))
			}
		}
		return string(raw), nil
	case ast.EncodingLatin1:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", constraintErr(err.Error())
		}
		return string(decoded), nil
	case ast.EncodingUTF16BE:
		return decodeUTF16(raw, unicode.BigEndian)
	case ast.EncodingUTF16LE:
		return decodeUTF16(raw, unicode.LittleEndian)
	default:
		if !utf8.Valid(raw) {
			return "", constraintErr("invalid utf-8")
		}
		return string(raw), nil
	}
}

func decodeUTF16(raw []byte, endian unicode.Endianness) (string, error) {
	decoded, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", constraintErr(err.Error())
	}
	return string(decoded), nil
}

func encodeString(enc ast.StringEncoding, s string) ([]byte, error) {
	switch enc {
	case ast.EncodingASCII:
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				return nil, constraintErr(fmt.Sprintf("rune %q is not ascii", s[i]))
			}
		}
		return []byte(s), nil
	case ast.EncodingLatin1:
		encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, constraintErr(err.Error())
		}
		return encoded, nil
	case ast.EncodingUTF16BE:
		return encodeUTF16(s, unicode.BigEndian)
	case ast.EncodingUTF16LE:
		return encodeUTF16(s, unicode.LittleEndian)
	default:
		return []byte(s), nil
	}
}

func encodeUTF16(s string, endian unicode.Endianness) ([]byte, error) {
	encoded, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, constraintErr(err.Error())
	}
	return encoded, nil
}
