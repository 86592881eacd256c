package ir

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		return val.Clone()
	case Object:
		return val.Clone()
	default:
		return v
	}
}

// Clone returns a deep copy of the object. A nil object stays nil.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = Clone(v)
	}
	return out
}

// Clone returns a deep copy of the array. A nil array stays nil.
func (a Array) Clone() Array {
	if a == nil {
		return nil
	}
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = Clone(v)
	}
	return out
}

// Equal reports whether a and b are structurally equal. Object key order
// is irrelevant; array order is significant. A nil interface only equals
// another nil interface.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	}
	return false
}
