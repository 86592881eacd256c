package pul

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// at addresses path inside document 1 of collection c.
func at(path string) target.Target {
	return target.New("c", "1", path)
}

func doc(pairs ...ir.Pair) ir.Object {
	return ir.Obj(pairs...)
}

func mustNormalize(t *testing.T, us ...*Primitive) *PUL {
	t.Helper()
	p := NormalizePrimitives(us...)
	require.NoError(t, p.Err())
	require.True(t, p.Normalized())
	return p
}

func mustCompose(t *testing.T, p1, p2 *PUL) *PUL {
	t.Helper()
	p := Compose(p1, p2)
	require.NoError(t, p.Err())
	requireNormalizedInvariants(t, p)
	return p
}

// requireNormalizedInvariants checks the uniqueness, ordering and
// non-effectiveness guarantees every normalized PUL gives.
func requireNormalizedInvariants(t *testing.T, p *PUL) {
	t.Helper()
	require.True(t, p.Normalized())

	for _, k := range []Kind{KindInsert, KindDelete, KindInsertIntoObject, KindDeleteFromObject} {
		seen := make(map[target.Target]bool)
		for _, u := range p.lists[k] {
			require.False(t, seen[u.Target], "duplicate %s target %s", k, u.Target)
			seen[u.Target] = true
		}
	}
	for _, k := range []Kind{KindReplaceInObject, KindRenameInObject, KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray} {
		seen := make(map[string]bool)
		for _, u := range p.lists[k] {
			require.False(t, seen[u.Location()], "duplicate %s location %s", k, u.Location())
			seen[u.Location()] = true
		}
	}
	for _, k := range []Kind{KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray} {
		byTarget := make(map[target.Target]int)
		for _, u := range p.lists[k] {
			if prev, ok := byTarget[u.Target]; ok {
				require.Greater(t, prev, u.Index, "%s not in descending index order", k)
			}
			byTarget[u.Target] = u.Index
		}
	}

	shadows := p.removedLocations()
	for _, k := range []Kind{KindReplaceInObject, KindRenameInObject, KindReplaceInArray, KindInsertIntoArray} {
		for _, u := range p.lists[k] {
			for _, s := range shadows {
				require.False(t, target.Contains(s, u.Location()), "%s survives under deleted %s", u, s)
			}
		}
	}
}

// applyInPlace applies the in-place primitives of p to a copy of d in
// application order.
func applyInPlace(t *testing.T, d ir.Object, p *PUL) (ir.Object, error) {
	t.Helper()
	out := d.Clone()
	for _, u := range ApplicationOrder(p) {
		if !u.Kind.InPlace() {
			continue
		}
		var err error
		if out, err = u.ApplyTo(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
