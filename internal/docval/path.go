package docval

import (
	"slices"
	"strings"
)

// Path is a sequence of object keys.
type Path []string

// ParsePath splits a dotted path. The empty string is the empty path.
// A trailing lone backslash is kept literally.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	var (
		segs []string
		cur  strings.Builder
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == '.':
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(segs, cur.String())
}

// String renders the path in dotted form, escaping dots and backslashes.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(EscapeSegment(seg, "."))
	}
	return b.String()
}

// EscapeSegment backslash-escapes backslashes and every byte in special.
func EscapeSegment(seg, special string) string {
	if !strings.ContainsAny(seg, "\\"+special) {
		return seg
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c == '\\' || strings.IndexByte(special, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Child returns a new path with name appended. p is not modified.
func (p Path) Child(names ...string) Path {
	out := make(Path, 0, len(p)+len(names))
	out = append(out, p...)
	return append(out, names...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment, or "" for the empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether q is a segment-wise prefix of p.
func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && slices.Equal(p[:len(q)], q)
}

// Equal reports segment-wise equality.
func (p Path) Equal(q Path) bool {
	return slices.Equal(p, q)
}
