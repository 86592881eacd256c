package pul

import (
	"slices"
)

// ApplicationOrder returns p's primitives in the order an applier must
// execute them so that every primitive still finds the location it
// addressed in the pre-update documents:
//
//  1. del, then insert
//  2. in-place primitives, deepest target first
//  3. at equal depth: replace_in_object, the array kinds (descending
//     index; replace, delete, insert at one index), delete_from_object,
//     rename_in_object, insert_into_object
//
// Deletes and renames address keys of the pre-update object, so they run
// before insert_into_object can add a key of the same name.
func ApplicationOrder(p *PUL) []*Primitive {
	out := make([]*Primitive, 0, p.Len())
	out = append(out, p.lists[KindDelete]...)
	out = append(out, p.lists[KindInsert]...)

	var inPlace []*Primitive
	for k := KindInsertIntoObject; k < numKinds; k++ {
		inPlace = append(inPlace, p.lists[k]...)
	}
	slices.SortStableFunc(inPlace, compareApplication)
	return append(out, inPlace...)
}

func compareApplication(a, b *Primitive) int {
	if da, db := a.Target.PathLength(), b.Target.PathLength(); da != db {
		return db - da
	}
	if ca, cb := applicationClass(a.Kind), applicationClass(b.Kind); ca != cb {
		return ca - cb
	}
	if a.Kind.Array() && b.Kind.Array() {
		if a.Index != b.Index {
			return b.Index - a.Index
		}
		return arrayRank(a.Kind) - arrayRank(b.Kind)
	}
	return 0
}

func applicationClass(k Kind) int {
	switch k {
	case KindReplaceInObject:
		return 0
	case KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray:
		return 1
	case KindDeleteFromObject:
		return 2
	case KindRenameInObject:
		return 3
	case KindInsertIntoObject:
		return 4
	}
	return 5
}

func arrayRank(k Kind) int {
	switch k {
	case KindReplaceInArray:
		return 0
	case KindDeleteFromArray:
		return 1
	}
	return 2
}
