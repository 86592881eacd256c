package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes v as RFC 8785 canonical JSON.
//
// This is the only encoding used for fingerprints, golden files and the
// PUL log:
//  1. object keys sorted by UTF-16 code units
//  2. no HTML escaping, U+2028/U+2029 emitted literally
//  3. strings (keys included) NFC normalized
//  4. integers only
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only in tests or when v is known to be well formed.
func MustMarshalCanonical(v Value) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return data
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case String:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range canonicalKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k.normalized)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k.raw]); err != nil {
				return fmt.Errorf("[%q]: %w", k.raw, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

type canonicalKey struct {
	raw        string
	normalized string
}

// canonicalKeys orders keys by their NFC form, which is what gets written.
func canonicalKeys(o Object) []canonicalKey {
	keys := make([]canonicalKey, 0, len(o))
	for k := range o {
		keys = append(keys, canonicalKey{raw: k, normalized: norm.NFC.String(k)})
	}
	slices.SortFunc(keys, func(a, b canonicalKey) int {
		return CompareKeys(a.normalized, b.normalized)
	})
	return keys
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		case r == utf8.RuneError && size == 1:
			buf.WriteString("\uFFFD")
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
