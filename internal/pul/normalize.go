package pul

import (
	"log/slog"
	"slices"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// normalizer folds primitives with the normalization rules.
type normalizer struct{}

// Normalize folds the primitives of raw, in list order per kind, into a
// fresh PUL and finalizes it. The result either carries an error or is
// normalized; raw is not modified.
func Normalize(raw *PUL) *PUL {
	out := newWith(normalizer{})
	if raw.err != nil {
		out.err = raw.err
		return out
	}
	for _, u := range raw.All() {
		out.Add(u)
		if out.err != nil {
			return out
		}
	}
	finalize(out)
	slog.Debug("normalized pul", "primitives", out.Len(), "counts", out.Counts())
	return out
}

// NormalizePrimitives is Normalize over a plain primitive list.
func NormalizePrimitives(us ...*Primitive) *PUL {
	return Normalize(New(us...))
}

func (normalizer) add(p *PUL, u *Primitive) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return foldNormalized(p, u)
}

// foldNormalized applies the normalization fold rule for u's kind.
func foldNormalized(p *PUL, u *Primitive) error {
	switch u.Kind {
	case KindInsert:
		return foldInsert(p, u)
	case KindDelete:
		if cur := p.find(KindDelete, sameTarget(u)); cur != nil {
			cur.IDs = append(cur.IDs, u.IDs...)
			return nil
		}
	case KindInsertIntoObject:
		if cur := p.find(KindInsertIntoObject, sameTarget(u)); cur != nil {
			return mergeSource(cur, u)
		}
	case KindDeleteFromObject:
		if cur := p.find(KindDeleteFromObject, sameTarget(u)); cur != nil {
			cur.Names = append(cur.Names, u.Names...)
			return nil
		}
	case KindReplaceInObject, KindRenameInObject, KindReplaceInArray:
		if p.find(u.Kind, sameSlot(u)) != nil {
			return newError(CodeStructuralConflict, u, "two primitives address %s", u.Location())
		}
	case KindInsertIntoArray:
		if cur := p.find(KindInsertIntoArray, sameSlot(u)); cur != nil {
			cur.Items = append(cur.Items, u.Items...)
			return nil
		}
	case KindDeleteFromArray:
		if p.find(KindDeleteFromArray, sameSlot(u)) != nil {
			return nil
		}
	}
	p.put(u)
	return nil
}

func foldInsert(p *PUL, u *Primitive) error {
	cur := p.find(KindInsert, sameTarget(u))
	if cur == nil {
		cur = &Primitive{Kind: KindInsert, Target: u.Target}
		p.put(cur)
	}
	for _, d := range u.Docs {
		if id, ok := DocumentID(d); ok && cur.hasDoc(id) {
			return newError(CodeStructuralConflict, u, "two documents with %s %q", IDField, id)
		}
		cur.appendDoc(d)
	}
	return nil
}

func mergeSource(cur, u *Primitive) error {
	for _, k := range u.Source.SortedKeys() {
		if _, exists := cur.Source[k]; exists {
			return newError(CodeKeyConflict, u, "key %q inserted twice", k)
		}
	}
	if cur.Source == nil {
		cur.Source = make(ir.Object, len(u.Source))
	}
	for k, v := range u.Source {
		cur.Source[k] = v
	}
	return nil
}

func sameTarget(u *Primitive) func(*Primitive) bool {
	return func(x *Primitive) bool { return target.Equal(x.Target, u.Target) }
}

// sameSlot matches the same target and selector (name or index).
func sameSlot(u *Primitive) func(*Primitive) bool {
	return func(x *Primitive) bool {
		if !target.Equal(x.Target, u.Target) {
			return false
		}
		if u.Kind.Array() {
			return x.Index == u.Index
		}
		return x.Name == u.Name
	}
}

// finalize deduplicates id and name lists, drops empty and non-effective
// primitives, orders the array kinds and marks p normalized.
func finalize(p *PUL) {
	if p.err != nil {
		return
	}
	for _, u := range p.lists[KindDelete] {
		u.IDs = dedupe(u.IDs)
	}
	for _, u := range p.lists[KindDeleteFromObject] {
		u.Names = dedupe(u.Names)
	}
	dropEmpty(p)
	removeNonEffective(p)
	for _, k := range []Kind{KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray} {
		slices.SortStableFunc(p.lists[k], func(a, b *Primitive) int { return b.Index - a.Index })
	}
	p.introduced = nil
	p.normalized = true
}

func dedupe(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func dropEmpty(p *PUL) {
	p.lists[KindInsert] = slices.DeleteFunc(p.lists[KindInsert], func(u *Primitive) bool { return len(u.Docs) == 0 })
	p.lists[KindDelete] = slices.DeleteFunc(p.lists[KindDelete], func(u *Primitive) bool { return len(u.IDs) == 0 })
	p.lists[KindInsertIntoObject] = slices.DeleteFunc(p.lists[KindInsertIntoObject], func(u *Primitive) bool { return len(u.Source) == 0 })
	p.lists[KindDeleteFromObject] = slices.DeleteFunc(p.lists[KindDeleteFromObject], func(u *Primitive) bool { return len(u.Names) == 0 })
}

// removeNonEffective drops primitives whose effect is shadowed:
// replace/rename-in-object and replace/insert-into-array whose location
// lies inside a location deleted by delete_from_object or
// delete_from_array, and in-place primitives on documents deleted by
// del and not inserted again.
func removeNonEffective(p *PUL) {
	shadows := p.removedLocations()
	shadowed := func(u *Primitive) bool {
		loc := u.Location()
		for _, s := range shadows {
			if target.Contains(s, loc) {
				slog.Debug("dropping non-effective primitive", "primitive", u.String(), "shadowed_by", s)
				return true
			}
		}
		return false
	}
	for _, k := range []Kind{KindReplaceInObject, KindRenameInObject, KindReplaceInArray, KindInsertIntoArray} {
		p.lists[k] = slices.DeleteFunc(p.lists[k], shadowed)
	}

	deleted := make(map[DocRef]bool)
	for _, u := range p.lists[KindDelete] {
		ins := p.find(KindInsert, sameTarget(u))
		for _, id := range u.IDs {
			if ins != nil && ins.hasDoc(id) {
				continue
			}
			deleted[DocRef{Collection: u.Target.Collection, ID: id}] = true
		}
	}
	if len(deleted) == 0 {
		return
	}
	for k := KindInsertIntoObject; k < numKinds; k++ {
		p.lists[k] = slices.DeleteFunc(p.lists[k], func(u *Primitive) bool { return deleted[u.document()] })
	}
}
