package docval

import (
	"errors"
	"strconv"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Get returns the value at p. The empty path addresses root itself.
func Get(root ir.Value, p Path) (ir.Value, error) {
	cur := root
	for i, seg := range p {
		next, err := step(cur, seg)
		if err != nil {
			return nil, pathErr("get", p[:i+1], err)
		}
		cur = next
	}
	return cur, nil
}

// Has reports whether a value exists at p.
func Has(root ir.Value, p Path) bool {
	_, err := Get(root, p)
	return err == nil
}

// Set stores value under the last segment of p. The parent must exist
// and be an object. When upsert is false an existing key is an error.
func Set(root ir.Value, p Path, value ir.Value, upsert bool) (ir.Value, error) {
	if len(p) == 0 {
		return nil, pathErr("set", p, ErrEmptyPath)
	}
	name := p.Last()
	out, err := update(root, p.Parent(), func(cur ir.Value) (ir.Value, error) {
		obj, ok := cur.(ir.Object)
		if !ok {
			return nil, ErrNotObject
		}
		if _, exists := obj[name]; exists && !upsert {
			return nil, ErrKeyExists
		}
		if obj == nil {
			obj = ir.Object{}
		}
		obj[name] = value
		return obj, nil
	})
	if err != nil {
		return nil, pathErr("set", p, err)
	}
	return out, nil
}

// Replace overwrites the existing value at p. The empty path replaces
// the root.
func Replace(root ir.Value, p Path, value ir.Value) (ir.Value, error) {
	if len(p) == 0 {
		return value, nil
	}
	name := p.Last()
	out, err := update(root, p.Parent(), func(cur ir.Value) (ir.Value, error) {
		switch c := cur.(type) {
		case ir.Object:
			if _, ok := c[name]; !ok {
				return nil, ErrNotFound
			}
			c[name] = value
			return c, nil
		case ir.Array:
			i, ok := ArrayIndex(name)
			if !ok || i >= len(c) {
				return nil, ErrNotFound
			}
			c[i] = value
			return c, nil
		default:
			return nil, ErrNotObject
		}
	})
	if err != nil {
		return nil, pathErr("replace", p, err)
	}
	return out, nil
}

// Unset removes the key at p. A missing key or missing parent is not an
// error; a parent of the wrong shape is.
func Unset(root ir.Value, p Path) (ir.Value, error) {
	if len(p) == 0 {
		return nil, pathErr("unset", p, ErrEmptyPath)
	}
	parent, err := Get(root, p.Parent())
	if errors.Is(err, ErrNotFound) {
		return root, nil
	}
	if err != nil {
		return nil, pathErr("unset", p, unwrapPath(err))
	}
	obj, ok := parent.(ir.Object)
	if !ok {
		return nil, pathErr("unset", p, ErrNotObject)
	}
	delete(obj, p.Last())
	return root, nil
}

// Rename moves the value at p to the sibling key newName. It is a no-op
// when the key is absent or already called newName, and fails when
// newName is taken.
func Rename(root ir.Value, p Path, newName string) (ir.Value, error) {
	if len(p) == 0 {
		return nil, pathErr("rename", p, ErrEmptyPath)
	}
	oldName := p.Last()
	if oldName == newName {
		return root, nil
	}
	parent, err := Get(root, p.Parent())
	if errors.Is(err, ErrNotFound) {
		return root, nil
	}
	if err != nil {
		return nil, pathErr("rename", p, unwrapPath(err))
	}
	obj, ok := parent.(ir.Object)
	if !ok {
		return nil, pathErr("rename", p, ErrNotObject)
	}
	v, ok := obj[oldName]
	if !ok {
		return root, nil
	}
	if _, taken := obj[newName]; taken {
		return nil, pathErr("rename", p.Parent().Child(newName), ErrKeyExists)
	}
	obj[newName] = v
	delete(obj, oldName)
	return root, nil
}

// ReplaceWhole clears the object at p and refills it with the entries
// of src. src itself is not retained.
func ReplaceWhole(root ir.Value, p Path, src ir.Object) (ir.Value, error) {
	out, err := update(root, p, func(cur ir.Value) (ir.Value, error) {
		obj, ok := cur.(ir.Object)
		if !ok {
			return nil, ErrNotObject
		}
		if obj == nil {
			obj = make(ir.Object, len(src))
		}
		clear(obj)
		for k, v := range src {
			obj[k] = v
		}
		return obj, nil
	})
	if err != nil {
		return nil, pathErr("replace-whole", p, err)
	}
	return out, nil
}

// ArrayInsert inserts items before position index of the array at p.
// Valid for 0 <= index <= len.
func ArrayInsert(root ir.Value, p Path, index int, items ir.Array) (ir.Value, error) {
	out, err := update(root, p, func(cur ir.Value) (ir.Value, error) {
		arr, ok := cur.(ir.Array)
		if !ok {
			return nil, ErrNotArray
		}
		if index < 0 || index > len(arr) {
			return nil, ErrIndexOutOfRange
		}
		res := make(ir.Array, 0, len(arr)+len(items))
		res = append(res, arr[:index]...)
		res = append(res, items...)
		return append(res, arr[index:]...), nil
	})
	if err != nil {
		return nil, pathErr("array-insert", p.Child(strconv.Itoa(index)), err)
	}
	return out, nil
}

// ArrayDelete removes the element at index of the array at p.
// Valid for 0 <= index < len.
func ArrayDelete(root ir.Value, p Path, index int) (ir.Value, error) {
	out, err := update(root, p, func(cur ir.Value) (ir.Value, error) {
		arr, ok := cur.(ir.Array)
		if !ok {
			return nil, ErrNotArray
		}
		if index < 0 || index >= len(arr) {
			return nil, ErrIndexOutOfRange
		}
		res := make(ir.Array, 0, len(arr)-1)
		res = append(res, arr[:index]...)
		return append(res, arr[index+1:]...), nil
	})
	if err != nil {
		return nil, pathErr("array-delete", p.Child(strconv.Itoa(index)), err)
	}
	return out, nil
}

// ArrayReplace overwrites the element at index of the array at p.
// Valid for 0 <= index < len.
func ArrayReplace(root ir.Value, p Path, index int, value ir.Value) (ir.Value, error) {
	out, err := update(root, p, func(cur ir.Value) (ir.Value, error) {
		arr, ok := cur.(ir.Array)
		if !ok {
			return nil, ErrNotArray
		}
		if index < 0 || index >= len(arr) {
			return nil, ErrIndexOutOfRange
		}
		arr[index] = value
		return arr, nil
	})
	if err != nil {
		return nil, pathErr("array-replace", p.Child(strconv.Itoa(index)), err)
	}
	return out, nil
}

// update rewrites the value at p with fn and reattaches the result to
// its parent, returning the new root.
func update(root ir.Value, p Path, fn func(ir.Value) (ir.Value, error)) (ir.Value, error) {
	if len(p) == 0 {
		return fn(root)
	}
	child, err := step(root, p[0])
	if err != nil {
		return nil, err
	}
	next, err := update(child, p[1:], fn)
	if err != nil {
		return nil, err
	}
	switch c := root.(type) {
	case ir.Object:
		c[p[0]] = next
	case ir.Array:
		i, _ := ArrayIndex(p[0])
		c[i] = next
	}
	return root, nil
}

func step(v ir.Value, seg string) (ir.Value, error) {
	switch c := v.(type) {
	case ir.Object:
		child, ok := c[seg]
		if !ok {
			return nil, ErrNotFound
		}
		return child, nil
	case ir.Array:
		i, ok := ArrayIndex(seg)
		if !ok || i >= len(c) {
			return nil, ErrNotFound
		}
		return c[i], nil
	default:
		return nil, ErrNotObject
	}
}

// ArrayIndex parses seg as an array index. It accepts plain decimal
// digits only, the form a path segment must take to step into an array.
func ArrayIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

func unwrapPath(err error) error {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
