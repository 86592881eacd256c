package pul

import (
	"slices"
	"strings"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// introducedEntry is one location a PUL newly creates, with the
// primitive that owns it.
type introducedEntry struct {
	loc   string
	owner *Primitive
	// docID identifies the document for insert owners.
	docID string
}

func (e introducedEntry) rename() bool {
	return e.owner.Kind == KindRenameInObject
}

// depth is the number of segments of the owner's target path, which is
// also the position of the introduced name in a containee's path.
func (e introducedEntry) depth() int {
	return e.owner.Target.PathLength()
}

// position is the index of the introduced segment in a containee's
// path, or -1 for a whole inserted document.
func (e introducedEntry) position() int {
	if e.owner.Kind == KindInsert {
		return -1
	}
	return e.depth()
}

// introducedIndex lists the introduced locations of a PUL sorted by
// serialized location. Locations inside another value-holding entry are
// dropped; renames hold no value, so entries below a rename are kept.
type introducedIndex struct {
	entries []introducedEntry
}

// introducedIndex returns p's index, building it if needed. Only
// primitives that came from the left-hand side of a composition count.
func (p *PUL) introducedIndex() *introducedIndex {
	if p.introduced == nil {
		p.introduced = buildIntroduced(p)
	}
	return p.introduced
}

func buildIntroduced(p *PUL) *introducedIndex {
	var entries []introducedEntry
	for _, u := range p.lists[KindInsert] {
		for _, d := range u.Docs {
			id, ok := DocumentID(d)
			if !ok || u.right.has(id) {
				continue
			}
			entries = append(entries, introducedEntry{
				loc:   target.New(u.Target.Collection, id, "").String(),
				owner: u,
				docID: id,
			})
		}
	}
	for _, u := range p.lists[KindInsertIntoObject] {
		if u.fromRight {
			continue
		}
		for k := range u.Source {
			entries = append(entries, introducedEntry{loc: target.Serialize(u.Target, k, false), owner: u})
		}
	}
	for _, u := range p.lists[KindRenameInObject] {
		if u.fromRight {
			continue
		}
		entries = append(entries, introducedEntry{loc: target.Serialize(u.Target, u.NewName, false), owner: u})
	}
	for _, u := range p.lists[KindReplaceInObject] {
		if u.fromRight || !ir.IsContainer(u.Value) {
			continue
		}
		entries = append(entries, introducedEntry{loc: u.Location(), owner: u})
	}

	shadows := p.removedLocations()
	entries = slices.DeleteFunc(entries, func(e introducedEntry) bool {
		for _, s := range shadows {
			if target.Contains(s, e.loc) {
				return true
			}
		}
		return false
	})

	slices.SortStableFunc(entries, func(a, b introducedEntry) int {
		return strings.Compare(a.loc, b.loc)
	})

	idx := &introducedIndex{}
	for _, e := range entries {
		if _, covered := idx.lookup(e.loc, func(x introducedEntry) bool { return !x.rename() }); covered {
			continue
		}
		idx.entries = append(idx.entries, e)
	}
	return idx
}

// lookup returns the outermost eligible entry containing loc.
func (idx *introducedIndex) lookup(loc string, eligible func(introducedEntry) bool) (introducedEntry, bool) {
	var (
		best  introducedEntry
		found bool
	)
	for _, e := range idx.entries {
		if !target.Contains(e.loc, loc) || !eligible(e) {
			continue
		}
		if !found || len(e.loc) < len(best.loc) {
			best, found = e, true
		}
	}
	return best, found
}

// Introduced returns the serialized locations p newly creates, sorted.
func Introduced(p *PUL) []string {
	idx := p.introducedIndex()
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.loc
	}
	return out
}
