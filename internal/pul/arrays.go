package pul

import (
	"slices"
	"strconv"

	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// arrayState collects the array primitives a PUL holds for one array.
type arrayState struct {
	inserts map[int]*Primitive
	deletes map[int]*Primitive
	replace map[int]*Primitive
	maxIdx  int
}

func arrayStateOf(p *PUL, t target.Target) arrayState {
	st := arrayState{
		inserts: make(map[int]*Primitive),
		deletes: make(map[int]*Primitive),
		replace: make(map[int]*Primitive),
		maxIdx:  -1,
	}
	collect := func(k Kind, into map[int]*Primitive) {
		for _, u := range p.lists[k] {
			if target.Equal(u.Target, t) {
				into[u.Index] = u
				st.maxIdx = max(st.maxIdx, u.Index)
			}
		}
	}
	collect(KindInsertIntoArray, st.inserts)
	collect(KindDeleteFromArray, st.deletes)
	collect(KindReplaceInArray, st.replace)
	return st
}

// resolve maps position j of the array as the PUL leaves it back to the
// array before the PUL. The position is either original element pre, or
// item k of a pending insert_into_array (ins != nil).
func (st arrayState) resolve(j int) (pre int, ins *Primitive, k int) {
	pos := 0
	for i := 0; ; i++ {
		if i > st.maxIdx {
			return i + (j - pos), nil, 0
		}
		if a := st.inserts[i]; a != nil {
			if j < pos+len(a.Items) {
				return i, a, j - pos
			}
			pos += len(a.Items)
		}
		if st.deletes[i] != nil {
			continue
		}
		if pos == j {
			return i, nil, 0
		}
		pos++
	}
}

// composeArray folds a right-hand array primitive, translating its index
// through the left-hand array primitives on the same array. Processing
// the right-hand side in descending index order keeps earlier positions
// stable, so primitives folded so far never disturb the translation.
func composeArray(p *PUL, u *Primitive) error {
	st := arrayStateOf(p, u.Target)
	pre, ins, k := st.resolve(u.Index)

	switch u.Kind {
	case KindReplaceInArray:
		if ins != nil {
			ins.Items[k] = u.Value
			return nil
		}
		if cur := st.replace[pre]; cur != nil {
			cur.Value = u.Value
			return nil
		}
		u.Index = pre
		p.put(u)

	case KindDeleteFromArray:
		if ins != nil {
			ins.Items = slices.Delete(ins.Items, k, k+1)
			if len(ins.Items) == 0 {
				p.remove(ins)
			}
			return nil
		}
		u.Index = pre
		p.put(u)
		shiftInsertsPastDeletes(p, u.Target, pre)

	case KindInsertIntoArray:
		if ins != nil {
			ins.Items = slices.Insert(ins.Items, k, u.Items...)
			return nil
		}
		if cur := st.inserts[pre]; cur != nil {
			cur.Items = append(cur.Items, u.Items...)
			return nil
		}
		u.Index = pre
		p.put(u)
	}
	return nil
}

// crossedArray finds the outermost segment of u's target path, from
// u.translated up to limit, that indexes an array p holds array
// primitives for. Segments before u.translated already address the
// array before p.
func crossedArray(p *PUL, u *Primitive, limit int) (int, arrayState, bool) {
	segs := u.Target.Segments()
	for i := u.translated; i < min(limit, len(segs)); i++ {
		if _, ok := docval.ArrayIndex(segs[i]); !ok {
			continue
		}
		st := arrayStateOf(p, u.Target.WithSegments(segs[:i]))
		if st.maxIdx >= 0 {
			return i, st, true
		}
	}
	return 0, arrayState{}, false
}

// composeThroughArray folds a right-hand primitive whose path steps
// through segment i into an array st rearranges. An element p inserted or
// replaced holds the value u edits, so u is projected onto it; any other
// element is retargeted to its index before p.
func composeThroughArray(p *PUL, u *Primitive, i int, st arrayState) (outcome, error) {
	defer func() { p.introduced = nil }()

	j, _ := docval.ArrayIndex(u.Target.Segments()[i])
	pre, ins, k := st.resolve(j)
	switch {
	case ins != nil:
		item, err := applyRelative(ins.Items[k], u, i+1)
		if err != nil {
			return 0, wrapError(CodeAggregation, u, err, "cannot project onto item %d of %s", k, ins)
		}
		ins.Items[k] = item
		return absorbed, nil
	case st.replace[pre] != nil:
		owner := st.replace[pre]
		v, err := applyRelative(owner.Value, u, i+1)
		if err != nil {
			return 0, wrapError(CodeAggregation, u, err, "cannot project onto %s", owner)
		}
		owner.Value = v
		return absorbed, nil
	}

	retargeted, err := u.Target.SetPathSegment(i, strconv.Itoa(pre))
	if err != nil {
		return 0, wrapError(CodeAggregation, u, err, "cannot rewrite array index")
	}
	u.Target = retargeted
	u.translated = max(u.translated, i+1)
	return adapted, nil
}

// shiftInsertsPastDeletes moves an insert_into_array sharing an index
// with a delete_from_array to the following index. Inserting before a
// deleted element and inserting before its successor are equivalent,
// and a delete at the same index would otherwise shadow the insert.
func shiftInsertsPastDeletes(p *PUL, t target.Target, from int) {
	for idx := from; ; idx++ {
		st := arrayStateOf(p, t)
		ins := st.inserts[idx]
		if ins == nil || st.deletes[idx] == nil {
			return
		}
		if next := st.inserts[idx+1]; next != nil {
			next.Items = append(ir.Array{}, append(ins.Items, next.Items...)...)
			p.remove(ins)
			continue
		}
		ins.Index = idx + 1
	}
}
