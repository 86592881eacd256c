// Package target implements the addressing algebra for update primitives:
// a Target names a collection, optionally one document in it, and
// optionally a location inside that document.
//
// Targets serialize to a canonical string
//
//	collection[:key][:seg.seg...][(.|:)selector]
//
// where an object-key selector continues the dotted path and an array
// selector is introduced by ':'. Backslash escapes '\', ':' and '.' in
// every component, so the encoding is injective and string-prefix
// containment never confuses "a" with "ab" or with the key "a.b".
package target

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ldoblies/ijsoniq/internal/docval"
)

// Target addresses a collection, a document, or a location in a document.
// Empty Key or Path means absent.
type Target struct {
	Collection string `json:"collection" yaml:"collection"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
}

// New builds a target. path is in docval dotted form.
func New(collection, key, path string) Target {
	return Target{Collection: collection, Key: key, Path: path}
}

// HasKey reports whether t names a document.
func (t Target) HasKey() bool { return t.Key != "" }

// HasPath reports whether t names a location below the document root.
func (t Target) HasPath() bool { return t.Path != "" }

// Segments returns the path as a list of keys.
func (t Target) Segments() docval.Path {
	return docval.ParsePath(t.Path)
}

// PathLength returns the number of path segments.
func (t Target) PathLength() int {
	return len(t.Segments())
}

// WithSegments returns a copy of t with the path replaced.
func (t Target) WithSegments(p docval.Path) Target {
	t.Path = p.String()
	return t
}

// Child returns t extended by one object key.
func (t Target) Child(name string) Target {
	return t.WithSegments(t.Segments().Child(name))
}

// SetPathSegment returns a copy of t with segment i replaced by value.
func (t Target) SetPathSegment(i int, value string) (Target, error) {
	segs := t.Segments()
	if i < 0 || i >= len(segs) {
		return Target{}, fmt.Errorf("path segment %d out of range for %q (length %d)", i, t.Path, len(segs))
	}
	segs[i] = value
	return t.WithSegments(segs), nil
}

// Equal reports whether two targets match in every component.
func Equal(a, b Target) bool {
	return a == b
}

// String returns the serialized form of t without a selector.
func (t Target) String() string {
	return Serialize(t, "", false)
}

const special = ".:"

// Serialize renders t extended by an optional selector. An object
// selector is one more path segment; an array selector is an index.
// An empty selector means none.
func Serialize(t Target, selector string, isArray bool) string {
	var b strings.Builder
	b.WriteString(docval.EscapeSegment(t.Collection, special))
	if t.Key != "" {
		b.WriteByte(':')
		b.WriteString(docval.EscapeSegment(t.Key, special))
	}

	segs := t.Segments()
	if selector != "" && !isArray {
		segs = segs.Child(selector)
	}
	for i, seg := range segs {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte('.')
		}
		b.WriteString(docval.EscapeSegment(seg, special))
	}

	if selector != "" && isArray {
		b.WriteByte(':')
		b.WriteString(docval.EscapeSegment(selector, special))
	}
	return b.String()
}

// SerializeIndex renders t with an array index selector.
func SerializeIndex(t Target, index int) string {
	return Serialize(t, strconv.Itoa(index), true)
}

// Contains reports whether the serialized location containee lies at or
// below container. Beyond the string prefix, the next byte of containee
// must start a new component, so "c:k:ab" is not inside "c:k:a".
func Contains(container, containee string) bool {
	if !strings.HasPrefix(containee, container) {
		return false
	}
	if len(containee) == len(container) {
		return true
	}
	next := containee[len(container)]
	return next == '.' || next == ':'
}

// Parse is the inverse of String. It rejects array selectors and
// dangling escapes.
func Parse(s string) (Target, error) {
	parts, err := splitUnescaped(s, ':')
	if err != nil {
		return Target{}, err
	}
	if len(parts) > 3 {
		return Target{}, fmt.Errorf("target %q: too many components", s)
	}

	var t Target
	if t.Collection, err = unescape(parts[0]); err != nil {
		return Target{}, fmt.Errorf("target %q: %w", s, err)
	}
	if t.Collection == "" {
		return Target{}, fmt.Errorf("target %q: empty collection", s)
	}
	if len(parts) > 1 {
		if t.Key, err = unescape(parts[1]); err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, err)
		}
	}
	if len(parts) > 2 {
		raw, err := splitUnescaped(parts[2], '.')
		if err != nil {
			return Target{}, err
		}
		segs := make(docval.Path, len(raw))
		for i, r := range raw {
			if segs[i], err = unescape(r); err != nil {
				return Target{}, fmt.Errorf("target %q: %w", s, err)
			}
		}
		t.Path = segs.String()
	}
	return t, nil
}

// splitUnescaped splits on sep where it is not preceded by an escape.
// Escapes are kept in the parts.
func splitUnescaped(s string, sep byte) ([]string, error) {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("dangling escape in %q", s)
			}
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:]), nil
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			if i+1 >= len(s) {
				return "", fmt.Errorf("dangling escape in %q", s)
			}
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String(), nil
}
