package pul

import (
	"fmt"
	"slices"

	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
)

// outcome tells the composer what to do with a primitive after trying to
// project it onto an owner.
type outcome int

const (
	// absorbed: the owner now carries the effect; drop the primitive.
	absorbed outcome = iota
	// adapted: the primitive was retargeted and must be added again.
	adapted
	// accumulate: the owner cannot carry the effect; fold normally.
	accumulate
)

// aggregate projects u onto the value owned by e.owner. For
// delete_from_object every name of u must lie inside e.loc.
func aggregate(p *PUL, e introducedEntry, u *Primitive) (outcome, error) {
	defer func() { p.introduced = nil }()

	switch e.owner.Kind {
	case KindRenameInObject:
		return aggregateOntoRename(p, e.owner, u)
	case KindInsert:
		return aggregateOntoInsert(e, u)
	case KindInsertIntoObject:
		owner := e.owner
		root, err := applyRelative(owner.Source, u, owner.Target.PathLength())
		if err != nil {
			return 0, wrapError(CodeAggregation, u, err, "cannot project onto %s", owner)
		}
		owner.Source = root.(ir.Object)
		return absorbed, nil
	case KindReplaceInObject:
		return aggregateOntoReplace(e.owner, u)
	}
	return 0, newError(CodeAggregation, u, "%s cannot own introduced values", e.owner.Kind)
}

// aggregateOntoRename handles primitives addressing a location created by
// a rename. A rename holds no value, so u is either merged into the
// rename or retargeted to the name the stored document still carries.
func aggregateOntoRename(p *PUL, t *Primitive, u *Primitive) (outcome, error) {
	n := t.Target.PathLength()
	if u.Target.PathLength() > n {
		retargeted, err := u.Target.SetPathSegment(n, t.Name)
		if err != nil {
			return 0, wrapError(CodeAggregation, u, err, "cannot rewrite renamed segment")
		}
		u.Target = retargeted
		u.translated = max(u.translated, n+1)
		return adapted, nil
	}

	switch u.Kind {
	case KindRenameInObject:
		t.NewName = u.NewName
		if t.NewName == t.Name {
			p.remove(t)
		}
		return absorbed, nil
	case KindReplaceInObject:
		u.Name = t.Name
	case KindDeleteFromObject:
		for i, name := range u.Names {
			if name == t.NewName {
				u.Names[i] = t.Name
			}
		}
	default:
		return 0, newError(CodeAggregation, u, "rename target %s is not shallower than the primitive", t.Target)
	}
	u.translated = max(u.translated, n+1)
	return adapted, nil
}

func aggregateOntoInsert(e introducedEntry, u *Primitive) (outcome, error) {
	owner := e.owner
	i, ok := owner.docByID(e.docID)
	if !ok {
		return 0, newError(CodeAggregation, u, "document %q vanished from %s", e.docID, owner)
	}
	root, err := applyRelative(owner.Docs[i], u, 0)
	if err != nil {
		return 0, wrapError(CodeAggregation, u, err, "cannot project onto inserted document %q", e.docID)
	}
	doc, ok := root.(ir.Object)
	if !ok {
		return 0, newError(CodeAggregation, u, "inserted document %q is no longer an object", e.docID)
	}
	if id, _ := DocumentID(doc); id != e.docID {
		return 0, newError(CodeAggregation, u, "would change the %s of inserted document %q", IDField, e.docID)
	}
	owner.Docs[i] = doc
	return absorbed, nil
}

// aggregateOntoReplace projects u onto the container value written by a
// replace_in_object. Primitives selecting the replaced key itself are
// special: a replace overwrites the value, a rename or delete of the key
// stays a separate primitive.
func aggregateOntoReplace(owner, u *Primitive) (outcome, error) {
	n := owner.Target.PathLength()
	if u.Target.PathLength() == n {
		switch u.Kind {
		case KindReplaceInObject:
			owner.Value = ir.Clone(u.Value)
			return absorbed, nil
		case KindRenameInObject, KindDeleteFromObject:
			return accumulate, nil
		}
	}

	wrapper := ir.Object{owner.Name: owner.Value}
	root, err := applyRelative(wrapper, u, n)
	if err != nil {
		return 0, wrapError(CodeAggregation, u, err, "cannot project onto %s", owner)
	}
	v, ok := root.(ir.Object)[owner.Name]
	if !ok {
		return 0, newError(CodeAggregation, u, "replaced value %q disappeared", owner.Name)
	}
	owner.Value = v
	return absorbed, nil
}

// applyRelative applies u to root, where root stands for the location
// reached by the first offset segments of u's target path.
func applyRelative(root ir.Value, u *Primitive, offset int) (ir.Value, error) {
	rel := func(name string) (docval.Path, error) {
		full := u.selectorPath(name)
		if len(full) < offset {
			return nil, fmt.Errorf("path %q is shallower than its owner", full.String())
		}
		return full[offset:], nil
	}

	var err error
	switch u.Kind {
	case KindInsertIntoObject:
		base, rerr := rel("")
		if rerr != nil {
			return nil, rerr
		}
		for _, k := range u.Source.SortedKeys() {
			if root, err = docval.Set(root, base.Child(k), ir.Clone(u.Source[k]), false); err != nil {
				return nil, err
			}
		}
	case KindDeleteFromObject:
		for _, name := range u.Names {
			path, rerr := rel(name)
			if rerr != nil {
				return nil, rerr
			}
			if root, err = docval.Unset(root, path); err != nil {
				return nil, err
			}
		}
	case KindReplaceInObject:
		path, rerr := rel(u.Name)
		if rerr != nil {
			return nil, rerr
		}
		root, err = docval.Replace(root, path, ir.Clone(u.Value))
	case KindRenameInObject:
		path, rerr := rel(u.Name)
		if rerr != nil {
			return nil, rerr
		}
		root, err = docval.Rename(root, path, u.NewName)
	case KindInsertIntoArray:
		path, rerr := rel("")
		if rerr != nil {
			return nil, rerr
		}
		root, err = docval.ArrayInsert(root, path, u.Index, u.Items.Clone())
	case KindDeleteFromArray:
		path, rerr := rel("")
		if rerr != nil {
			return nil, rerr
		}
		root, err = docval.ArrayDelete(root, path, u.Index)
	case KindReplaceInArray:
		path, rerr := rel("")
		if rerr != nil {
			return nil, rerr
		}
		root, err = docval.ArrayReplace(root, path, u.Index, ir.Clone(u.Value))
	default:
		return nil, fmt.Errorf("%s cannot be aggregated", u.Kind)
	}
	return root, err
}

// splitNames partitions the names of a delete_from_object by the owner
// containing each name's location. Names without an owner are returned
// separately, preserving order.
func splitNames(idx *introducedIndex, u *Primitive, eligible func(introducedEntry) bool) (owned []ownedNames, rest []string) {
	for _, name := range u.Names {
		e, ok := idx.lookup(u.locationOf(name), eligible)
		if !ok {
			rest = append(rest, name)
			continue
		}
		j := slices.IndexFunc(owned, func(o ownedNames) bool { return o.entry.loc == e.loc && o.entry.owner == e.owner })
		if j < 0 {
			owned = append(owned, ownedNames{entry: e})
			j = len(owned) - 1
		}
		owned[j].names = append(owned[j].names, name)
	}
	return owned, rest
}

type ownedNames struct {
	entry introducedEntry
	names []string
}
