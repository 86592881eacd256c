package pul

import (
	"log/slog"
	"slices"
)

// composer folds the right-hand PUL of a composition into a clone of
// the left-hand one.
type composer struct{}

// Compose returns one normalized PUL equivalent to applying p1 and then
// p2, where p2 was computed against the state p1 produces. Both inputs
// must be normalized and error free; neither is modified.
func Compose(p1, p2 *PUL) *PUL {
	if err := composable(p1, p2); err != nil {
		out := New()
		out.err = err
		return out
	}

	out := p1.Clone()
	out.strategy = composer{}
	out.normalized = false

	// ApplicationOrder puts del before insert, which the id collision
	// rules below depend on.
	for _, u := range ApplicationOrder(p2) {
		out.Add(u)
		if out.err != nil {
			slog.Debug("composition failed", "primitive", u.String(), "error", out.err)
			return out
		}
	}

	for _, l := range out.lists {
		for _, u := range l {
			u.right = nil
			u.fromRight = false
			u.translated = 0
		}
	}
	out.strategy = normalizer{}
	finalize(out)
	slog.Debug("composed puls", "left", p1.Len(), "right", p2.Len(), "result", out.Len())
	return out
}

// ComposeAll left-folds Compose over puls, stopping at the first error.
func ComposeAll(puls ...*PUL) *PUL {
	if len(puls) == 0 {
		return Normalize(New())
	}
	acc := puls[0]
	if err := composable(acc, acc); err != nil {
		out := New()
		out.err = err
		return out
	}
	if len(puls) == 1 {
		return acc.Clone()
	}
	for _, next := range puls[1:] {
		acc = Compose(acc, next)
		if acc.err != nil {
			return acc
		}
	}
	return acc
}

func composable(p1, p2 *PUL) error {
	for _, p := range []*PUL{p1, p2} {
		if p.err != nil {
			return p.err
		}
		if !p.normalized {
			return &Error{Code: CodeContractViolation, Kind: -1, Message: "composition requires normalized PULs"}
		}
	}
	return nil
}

func (composer) add(p *PUL, u *Primitive) error {
	u.fromRight = true
	if u.Kind.InPlace() {
		if handled, err := composeCrossingArray(p, u); handled {
			return err
		}
	}
	switch u.Kind {
	case KindInsert:
		return composeInsert(p, u)
	case KindDelete:
		return composeDelete(p, u)
	case KindDeleteFromObject:
		return composeDeleteFromObject(p, u)
	}

	e, ok := p.introducedIndex().lookup(u.Location(), eligibleFor(u))
	if !ok {
		return composeAccumulate(p, u)
	}
	res, err := aggregate(p, e, u)
	if err != nil {
		return err
	}
	switch res {
	case adapted:
		return composer{}.add(p, u)
	case accumulate:
		return composeAccumulate(p, u)
	}
	return nil
}

// composeCrossingArray folds u when its path steps into an array p
// rearranges before reaching any location p introduces above u's target.
func composeCrossingArray(p *PUL, u *Primitive) (bool, error) {
	limit := u.Target.PathLength()
	if e, ok := p.introducedIndex().lookup(u.Target.String(), eligibleFor(u)); ok {
		limit = e.position()
	}
	i, st, crosses := crossedArray(p, u, limit)
	if !crosses {
		return false, nil
	}
	res, err := composeThroughArray(p, u, i, st)
	if err != nil || res != adapted {
		return true, err
	}
	return true, composer{}.add(p, u)
}

// eligibleFor excludes renames whose segment u has already been
// rewritten to its pre-rename name.
func eligibleFor(u *Primitive) func(introducedEntry) bool {
	return func(e introducedEntry) bool {
		return !e.rename() || e.depth() >= u.translated
	}
}

func composeDeleteFromObject(p *PUL, u *Primitive) error {
	owned, rest := splitNames(p.introducedIndex(), u, eligibleFor(u))
	for _, o := range owned {
		part := u.Clone()
		part.Names = o.names
		res, err := aggregate(p, o.entry, part)
		if err != nil {
			return err
		}
		switch res {
		case adapted:
			if err := (composer{}).add(p, part); err != nil {
				return err
			}
		case accumulate:
			rest = append(rest, o.names...)
		}
	}
	if len(rest) == 0 {
		return nil
	}
	u.Names = rest
	return composeAccumulate(p, u)
}

// composeInsert merges documents from the right-hand side. On an id
// collision the incoming document wins and a pending right-hand delete of
// that id is cancelled.
func composeInsert(p *PUL, u *Primitive) error {
	cur := p.find(KindInsert, sameTarget(u))
	if cur == nil {
		for _, d := range u.Docs {
			if id, ok := DocumentID(d); ok {
				u.right.add(id)
			}
		}
		p.put(u)
		return nil
	}

	for _, d := range u.Docs {
		id, ok := DocumentID(d)
		if !ok {
			cur.appendDoc(d)
			continue
		}
		collides := cur.hasDoc(id)
		cur.right.add(id)
		if !collides {
			cur.appendDoc(d)
			continue
		}
		cur.replaceDoc(id, d)
		del := p.find(KindDelete, sameTarget(u))
		if del != nil && del.right.has(id) {
			del.right.remove(id)
			del.IDs = slices.DeleteFunc(del.IDs, func(x string) bool { return x == id })
			continue
		}
		slog.Warn("insert replaces a pending document without a delete",
			"collection", u.Target.Collection, "id", id)
	}
	return nil
}

// composeDelete drops left-hand inserts of deleted ids instead of keeping
// an insert and a delete of the same document, along with every pending
// in-place primitive inside a deleted document.
func composeDelete(p *PUL, u *Primitive) error {
	ins := p.find(KindInsert, sameTarget(u))
	var rest []string
	for _, id := range u.IDs {
		dropInPlace(p, DocRef{Collection: u.Target.Collection, ID: id})
		if ins != nil && ins.hasDoc(id) && !ins.right.has(id) {
			ins.removeDoc(id)
			continue
		}
		rest = append(rest, id)
	}
	if len(rest) == 0 {
		return nil
	}

	cur := p.find(KindDelete, sameTarget(u))
	if cur == nil {
		u.IDs = rest
		for _, id := range rest {
			u.right.add(id)
		}
		p.put(u)
		return nil
	}
	for _, id := range rest {
		cur.IDs = append(cur.IDs, id)
		cur.right.add(id)
	}
	return nil
}

// dropInPlace removes every in-place primitive scoped to ref.
func dropInPlace(p *PUL, ref DocRef) {
	for k := KindInsertIntoObject; k < numKinds; k++ {
		p.lists[k] = slices.DeleteFunc(p.lists[k], func(u *Primitive) bool { return u.document() == ref })
	}
	p.introduced = nil
}

// composeAccumulate folds an in-place primitive that no introduced
// location owns. Newer replaces win; two renames of one key conflict.
func composeAccumulate(p *PUL, u *Primitive) error {
	switch u.Kind {
	case KindInsertIntoObject:
		if cur := p.find(KindInsertIntoObject, sameTarget(u)); cur != nil {
			return mergeSource(cur, u)
		}
	case KindDeleteFromObject:
		if cur := p.find(KindDeleteFromObject, sameTarget(u)); cur != nil {
			cur.Names = append(cur.Names, u.Names...)
			return nil
		}
	case KindReplaceInObject:
		if cur := p.find(KindReplaceInObject, sameSlot(u)); cur != nil {
			cur.Value = u.Value
			return nil
		}
	case KindRenameInObject:
		if p.find(KindRenameInObject, sameSlot(u)) != nil {
			return newError(CodeStructuralConflict, u, "key %q renamed by both PULs", u.Name)
		}
	case KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray:
		return composeArray(p, u)
	}
	p.put(u)
	return nil
}
