package pul

import (
	"fmt"

	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// Wire field names.
const (
	fieldType       = "type"
	fieldTarget     = "target"
	fieldParams     = "params"
	fieldCollection = "collection"
	fieldKey        = "key"
	fieldPath       = "path"

	paramItems   = "items"
	paramIDs     = "ids"
	paramSource  = "source"
	paramNames   = "names"
	paramName    = "name"
	paramValue   = "value"
	paramNewName = "newName"
	paramIndex   = "index"
)

// ToValue encodes u as {type, target, params}.
func (u *Primitive) ToValue() ir.Object {
	t := ir.Obj(ir.P(fieldCollection, ir.String(u.Target.Collection)))
	if u.Target.HasKey() {
		t[fieldKey] = ir.String(u.Target.Key)
	}
	if u.Target.HasPath() {
		t[fieldPath] = ir.String(u.Target.Path)
	}

	params := ir.Object{}
	switch u.Kind {
	case KindInsert:
		items := make(ir.Array, len(u.Docs))
		for i, d := range u.Docs {
			items[i] = d.Clone()
		}
		params[paramItems] = items
	case KindDelete:
		params[paramIDs] = stringArray(u.IDs)
	case KindInsertIntoObject:
		params[paramSource] = u.Source.Clone()
	case KindDeleteFromObject:
		params[paramNames] = stringArray(u.Names)
	case KindReplaceInObject:
		params[paramName] = ir.String(u.Name)
		params[paramValue] = ir.Clone(u.Value)
	case KindRenameInObject:
		params[paramName] = ir.String(u.Name)
		params[paramNewName] = ir.String(u.NewName)
	case KindInsertIntoArray:
		params[paramIndex] = ir.Int(u.Index)
		params[paramItems] = u.Items.Clone()
	case KindDeleteFromArray:
		params[paramIndex] = ir.Int(u.Index)
	case KindReplaceInArray:
		params[paramIndex] = ir.Int(u.Index)
		params[paramValue] = ir.Clone(u.Value)
	}

	return ir.Obj(
		ir.P(fieldType, ir.String(u.Kind.String())),
		ir.P(fieldTarget, t),
		ir.P(fieldParams, params),
	)
}

// PrimitiveFromValue decodes one primitive. The kind comes from the
// type field, or from def when the field is absent.
func PrimitiveFromValue(v ir.Value, def Kind) (*Primitive, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, invalidf("primitive must be an object, got %s", ir.TypeName(v))
	}

	kind := def
	if raw, ok := obj[fieldType]; ok {
		s, ok := raw.(ir.String)
		if !ok {
			return nil, invalidf("%s must be a string", fieldType)
		}
		k, err := ParseKind(string(s))
		if err != nil {
			return nil, &Error{Code: CodeInvalidInput, Kind: -1, Message: "bad primitive type", Err: err}
		}
		if def >= 0 && k != def {
			return nil, invalidf("%s primitive listed under %s", k, def)
		}
		kind = k
	}
	if kind < 0 {
		return nil, invalidf("primitive has no %s", fieldType)
	}

	t, err := targetFromValue(obj[fieldTarget])
	if err != nil {
		return nil, err
	}
	u := &Primitive{Kind: kind, Target: t}

	params := ir.Object{}
	if raw, ok := obj[fieldParams]; ok {
		if params, ok = raw.(ir.Object); !ok {
			return nil, invalidf("%s must be an object", fieldParams)
		}
	}
	r := paramReader{kind: kind, params: params}
	switch kind {
	case KindInsert:
		for i, item := range r.array(paramItems) {
			d, ok := item.(ir.Object)
			if !ok {
				r.fail("%s[%d] must be an object, got %s", paramItems, i, ir.TypeName(item))
				break
			}
			u.Docs = append(u.Docs, d)
		}
	case KindDelete:
		u.IDs = r.ids(paramIDs)
	case KindInsertIntoObject:
		u.Source = r.object(paramSource)
	case KindDeleteFromObject:
		u.Names = r.strings(paramNames)
	case KindReplaceInObject:
		u.Name = r.string(paramName)
		u.Value = r.value(paramValue)
	case KindRenameInObject:
		u.Name = r.string(paramName)
		u.NewName = r.string(paramNewName)
	case KindInsertIntoArray:
		u.Index = r.index()
		u.Items = r.array(paramItems)
	case KindDeleteFromArray:
		u.Index = r.index()
	case KindReplaceInArray:
		u.Index = r.index()
		u.Value = r.value(paramValue)
	}
	if r.err != nil {
		return nil, r.err
	}
	return u, nil
}

func targetFromValue(v ir.Value) (target.Target, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		if s, isStr := v.(ir.String); isStr {
			return target.Parse(string(s))
		}
		return target.Target{}, invalidf("%s must be an object or a string", fieldTarget)
	}
	var t target.Target
	coll, ok := obj[fieldCollection].(ir.String)
	if !ok || coll == "" {
		return t, invalidf("%s.%s must be a non-empty string", fieldTarget, fieldCollection)
	}
	t.Collection = string(coll)
	switch key := obj[fieldKey].(type) {
	case nil, ir.Null:
	case ir.String:
		t.Key = string(key)
	case ir.Int:
		t.Key = fmt.Sprint(int64(key))
	default:
		return t, invalidf("%s.%s must be a string or an integer", fieldTarget, fieldKey)
	}
	switch path := obj[fieldPath].(type) {
	case nil, ir.Null:
	case ir.String:
		t.Path = string(path)
	case ir.Array:
		segs := make(docval.Path, len(path))
		for i, s := range path {
			str, ok := s.(ir.String)
			if !ok {
				return t, invalidf("%s.%s[%d] must be a string", fieldTarget, fieldPath, i)
			}
			segs[i] = string(str)
		}
		t = t.WithSegments(segs)
	default:
		return t, invalidf("%s.%s must be a string or a list of keys", fieldTarget, fieldPath)
	}
	return t, nil
}

// paramReader extracts typed parameters, keeping the first error.
type paramReader struct {
	kind   Kind
	params ir.Object
	err    error
}

func (r *paramReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = &Error{Code: CodeInvalidInput, Kind: r.kind, Message: fmt.Sprintf(format, args...)}
	}
}

func (r *paramReader) lookup(name string) (ir.Value, bool) {
	v, ok := r.params[name]
	if !ok {
		r.fail("missing parameter %s", name)
	}
	return v, ok
}

func (r *paramReader) value(name string) ir.Value {
	v, _ := r.lookup(name)
	return v
}

func (r *paramReader) string(name string) string {
	v, ok := r.lookup(name)
	if !ok {
		return ""
	}
	s, ok := v.(ir.String)
	if !ok {
		r.fail("parameter %s must be a string, got %s", name, ir.TypeName(v))
	}
	return string(s)
}

func (r *paramReader) object(name string) ir.Object {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	o, ok := v.(ir.Object)
	if !ok {
		r.fail("parameter %s must be an object, got %s", name, ir.TypeName(v))
	}
	return o
}

func (r *paramReader) array(name string) ir.Array {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	switch a := v.(type) {
	case ir.Array:
		return a
	case ir.Null:
		r.fail("parameter %s must be a list, got null", name)
		return nil
	default:
		// A single value stands for a one-element list.
		return ir.Arr(a)
	}
}

func (r *paramReader) strings(name string) []string {
	var out []string
	for i, v := range r.array(name) {
		s, ok := v.(ir.String)
		if !ok {
			r.fail("%s[%d] must be a string, got %s", name, i, ir.TypeName(v))
			return nil
		}
		out = append(out, string(s))
	}
	return out
}

// ids accepts string and integer document identifiers.
func (r *paramReader) ids(name string) []string {
	var out []string
	for i, v := range r.array(name) {
		switch id := v.(type) {
		case ir.String:
			out = append(out, string(id))
		case ir.Int:
			out = append(out, fmt.Sprint(int64(id)))
		default:
			r.fail("%s[%d] must be a string or an integer, got %s", name, i, ir.TypeName(v))
			return nil
		}
	}
	return out
}

func (r *paramReader) index() int {
	v, ok := r.lookup(paramIndex)
	if !ok {
		return 0
	}
	n, ok := v.(ir.Int)
	if !ok {
		r.fail("parameter %s must be an integer, got %s", paramIndex, ir.TypeName(v))
	}
	return int(n)
}

func stringArray(xs []string) ir.Array {
	out := make(ir.Array, len(xs))
	for i, x := range xs {
		out[i] = ir.String(x)
	}
	return out
}

func invalidf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Kind: -1, Message: fmt.Sprintf(format, args...)}
}

// ToValue encodes p as an object keyed by kind name; kinds without
// primitives are omitted.
func (p *PUL) ToValue() ir.Object {
	out := ir.Object{}
	for k, l := range p.lists {
		if len(l) == 0 {
			continue
		}
		items := make(ir.Array, len(l))
		for i, u := range l {
			items[i] = u.ToValue()
		}
		out[Kind(k).String()] = items
	}
	return out
}

// FromValue decodes a raw PUL from either a list of primitives or an
// object keyed by kind name.
func FromValue(v ir.Value) (*PUL, error) {
	p := New()
	switch x := v.(type) {
	case ir.Array:
		for i, item := range x {
			u, err := PrimitiveFromValue(item, -1)
			if err != nil {
				return nil, fmt.Errorf("primitive %d: %w", i, err)
			}
			p.Add(u)
		}
	case ir.Object:
		for _, name := range x.SortedKeys() {
			k, err := ParseKind(name)
			if err != nil {
				return nil, &Error{Code: CodeInvalidInput, Kind: -1, Message: "bad kind key", Err: err}
			}
			list, ok := x[name].(ir.Array)
			if !ok {
				return nil, invalidf("%s must be a list", name)
			}
			for i, item := range list {
				u, err := PrimitiveFromValue(item, k)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
				}
				p.Add(u)
			}
		}
	default:
		return nil, invalidf("PUL must be a list or an object, got %s", ir.TypeName(v))
	}
	return p, nil
}

// MarshalJSON encodes p in canonical JSON.
func (p *PUL) MarshalJSON() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return ir.MarshalCanonical(p.ToValue())
}

// Equal reports whether a and b hold the same primitives per kind, in
// the same order, and agree on error and normalized state.
func Equal(a, b *PUL) bool {
	if (a.err == nil) != (b.err == nil) || a.Normalized() != b.Normalized() {
		return false
	}
	return ir.Equal(a.ToValue(), b.ToValue())
}
