package pul

import (
	"slices"
)

// Strategy decides how a primitive is folded into a PUL. The set of
// strategies is closed: raw appending, normalization, composition and
// inversion.
type Strategy interface {
	add(p *PUL, u *Primitive) error
}

// appendStrategy keeps primitives exactly as added.
type appendStrategy struct{}

func (appendStrategy) add(p *PUL, u *Primitive) error {
	p.put(u)
	return nil
}


// PUL is a Pending Update List: one ordered primitive list per kind plus
// an error marker, a normalized flag and the folding strategy.
type PUL struct {
	lists      [numKinds][]*Primitive
	err        error
	normalized bool
	strategy   Strategy

	// introduced is built lazily and dropped on every mutation.
	introduced *introducedIndex
}

// New returns an empty raw PUL that keeps primitives as added.
func New(us ...*Primitive) *PUL {
	p := newWith(appendStrategy{})
	for _, u := range us {
		p.Add(u)
	}
	return p
}

func newWith(s Strategy) *PUL {
	return &PUL{strategy: s}
}

// Add folds a copy of u into p using p's strategy. It is a no-op once p
// carries an error; a folding error poisons p.
func (p *PUL) Add(u *Primitive) {
	if p.err != nil {
		return
	}
	p.normalized = false
	p.introduced = nil
	if err := p.strategy.add(p, u.Clone()); err != nil {
		p.err = err
	}
}

// Err returns the error that poisoned p, or nil.
func (p *PUL) Err() error { return p.err }

// Normalized reports whether p is an error-free result of normalization.
func (p *PUL) Normalized() bool { return p.normalized && p.err == nil }

// Primitives returns the primitives of one kind in list order. The
// returned primitives must not be modified.
func (p *PUL) Primitives(k Kind) []*Primitive {
	return slices.Clone(p.lists[k])
}

// All returns every primitive, grouped by kind in declaration order.
func (p *PUL) All() []*Primitive {
	var out []*Primitive
	for _, l := range p.lists {
		out = append(out, l...)
	}
	return out
}

// Len returns the number of primitives.
func (p *PUL) Len() int {
	n := 0
	for _, l := range p.lists {
		n += len(l)
	}
	return n
}

// Empty reports whether p holds no primitives.
func (p *PUL) Empty() bool { return p.Len() == 0 }

// Counts returns the number of primitives per kind name, for logging.
func (p *PUL) Counts() map[string]int {
	out := make(map[string]int)
	for k, l := range p.lists {
		if len(l) > 0 {
			out[Kind(k).String()] = len(l)
		}
	}
	return out
}

// Collections returns the sorted set of collections p touches.
func (p *PUL) Collections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range p.lists {
		for _, u := range l {
			if !seen[u.Target.Collection] {
				seen[u.Target.Collection] = true
				out = append(out, u.Target.Collection)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy of p that appends raw. Error and normalized
// state are preserved; composition bookkeeping is carried along.
func (p *PUL) Clone() *PUL {
	c := New()
	for k, l := range p.lists {
		if len(l) == 0 {
			continue
		}
		c.lists[k] = make([]*Primitive, len(l))
		for i, u := range l {
			c.lists[k][i] = u.Clone()
		}
	}
	c.err = p.err
	c.normalized = p.normalized
	return c
}

// put appends u without folding.
func (p *PUL) put(u *Primitive) {
	p.lists[u.Kind] = append(p.lists[u.Kind], u)
	p.introduced = nil
}

// remove drops u (by identity) from its list.
func (p *PUL) remove(u *Primitive) {
	p.lists[u.Kind] = slices.DeleteFunc(p.lists[u.Kind], func(x *Primitive) bool { return x == u })
	p.introduced = nil
}

// find returns the first primitive of kind k matching pred.
func (p *PUL) find(k Kind, pred func(*Primitive) bool) *Primitive {
	for _, u := range p.lists[k] {
		if pred(u) {
			return u
		}
	}
	return nil
}

// fail poisons p with err unless it already carries one.
func (p *PUL) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
