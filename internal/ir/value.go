package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the JSON-like value kinds.
// Only Null, String, Int, Bool, Array and Object implement it.
type Value interface {
	isValue()
}

// Null is the JSON null value.
type Null struct{}

// String is a JSON string.
type String string

// Int is a JSON number. Always int64, never float64.
type Int int64

// Bool is a JSON boolean.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Null) isValue()   {}
func (String) isValue() {}
func (Int) isValue()    {}
func (Bool) isValue()   {}
func (Array) isValue()  {}
func (Object) isValue() {}

// Pair is one key/value entry used with Obj.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
// Example: Obj(P("id", Int(1)), P("name", String("a")))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Obj builds an Object from pairs. Later pairs win on duplicate keys.
func Obj(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Arr builds an Array from values.
func Arr(vals ...Value) Array {
	if vals == nil {
		return Array{}
	}
	return Array(vals)
}

// TypeName returns the JSON type name of v ("null", "string", "number",
// "boolean", "array", "object"), or "invalid" for a nil interface.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// IsContainer reports whether v is an Object or an Array.
func IsContainer(v Value) bool {
	switch v.(type) {
	case Object, Array:
		return true
	}
	return false
}

// SortedKeys returns the keys in RFC 8785 order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes and differs for
// characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)
	return keys
}

// CompareKeys orders two strings by their UTF-16 code units.
func CompareKeys(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	}
	return 0
}
