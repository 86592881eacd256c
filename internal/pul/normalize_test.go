package pul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

func TestNormalizeDuplicateInsertIDConflicts(t *testing.T) {
	p := NormalizePrimitives(
		NewInsert("c", doc(ir.P("id", ir.Int(1)), ir.P("v", ir.String("a")))),
		NewInsert("c", doc(ir.P("id", ir.Int(1)), ir.P("v", ir.String("b")))),
	)
	require.Error(t, p.Err())
	assert.Equal(t, CodeStructuralConflict, CodeOf(p.Err()))
	assert.True(t, IsConflict(p.Err()))
	assert.False(t, p.Normalized())
}

func TestNormalizeIntegerAndStringIDsCollide(t *testing.T) {
	p := NormalizePrimitives(
		NewInsert("c", doc(ir.P("id", ir.Int(1)))),
		NewInsert("c", doc(ir.P("id", ir.String("1")))),
	)
	assert.Equal(t, CodeStructuralConflict, CodeOf(p.Err()))
}

func TestNormalizeMergesInserts(t *testing.T) {
	p := mustNormalize(t,
		NewInsert("c", doc(ir.P("id", ir.Int(1)))),
		NewInsert("d", doc(ir.P("id", ir.Int(1)))),
		NewInsert("c", doc(ir.P("id", ir.Int(2)))),
	)
	ins := p.Primitives(KindInsert)
	require.Len(t, ins, 2)
	assert.Equal(t, "c", ins[0].Target.Collection)
	assert.Len(t, ins[0].Docs, 2)
	assert.Equal(t, "d", ins[1].Target.Collection)
	assert.Equal(t, []string{"c", "d"}, p.Collections())
}

func TestNormalizeMergesArrayInsertsInOrder(t *testing.T) {
	arr := at("arr")
	p := mustNormalize(t,
		NewInsertIntoArray(arr, 1, ir.String("a")),
		NewInsertIntoArray(arr, 1, ir.String("b")),
		NewInsertIntoArray(arr, 1, ir.String("c")),
	)
	got := p.Primitives(KindInsertIntoArray)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, ir.Arr(ir.String("a"), ir.String("b"), ir.String("c")), got[0].Items)
}

func TestNormalizeDeleteShadowsReplace(t *testing.T) {
	p := mustNormalize(t,
		NewDeleteFromObject(at("t"), "b"),
		NewReplaceInObject(at("t"), "b", ir.Int(0)),
	)
	assert.Equal(t, 1, p.Len())
	require.Len(t, p.Primitives(KindDeleteFromObject), 1)
	assert.Empty(t, p.Primitives(KindReplaceInObject))
}

func TestNormalizeDeleteShadowsDescendants(t *testing.T) {
	p := mustNormalize(t,
		NewDeleteFromObject(at(""), "a"),
		NewRenameInObject(at("a.b"), "c", "d"),
		NewReplaceInObject(at("a"), "x", ir.Int(1)),
		NewReplaceInObject(at(""), "ab", ir.Int(1)),
		NewInsertIntoArray(at("a.list"), 0, ir.Int(1)),
	)
	assert.Empty(t, p.Primitives(KindRenameInObject))
	assert.Empty(t, p.Primitives(KindInsertIntoArray))
	// "ab" is a sibling of "a", not a descendant.
	rio := p.Primitives(KindReplaceInObject)
	require.Len(t, rio, 1)
	assert.Equal(t, "ab", rio[0].Name)
	requireNormalizedInvariants(t, p)
}

func TestNormalizeArrayDeleteShadowsSameIndex(t *testing.T) {
	arr := at("arr")
	p := mustNormalize(t,
		NewDeleteFromArray(arr, 2),
		NewReplaceInArray(arr, 2, ir.Int(0)),
		NewReplaceInArray(arr, 20, ir.Int(0)),
		NewInsertIntoArray(arr, 2, ir.Int(9)),
	)
	ria := p.Primitives(KindReplaceInArray)
	require.Len(t, ria, 1)
	assert.Equal(t, 20, ria[0].Index)
	assert.Empty(t, p.Primitives(KindInsertIntoArray))
	assert.Len(t, p.Primitives(KindDeleteFromArray), 1)
}

func TestNormalizeArrayDeleteShadowsElementPaths(t *testing.T) {
	p := mustNormalize(t,
		NewDeleteFromArray(at("arr"), 2),
		NewReplaceInObject(at("arr.2"), "x", ir.Int(1)),
		NewInsertIntoArray(at("arr.2.tags"), 0, ir.String("t")),
		NewReplaceInObject(at("arr.1"), "x", ir.Int(1)),
	)
	rio := p.Primitives(KindReplaceInObject)
	require.Len(t, rio, 1)
	assert.Equal(t, at("arr.1"), rio[0].Target)
	assert.Empty(t, p.Primitives(KindInsertIntoArray))
	requireNormalizedInvariants(t, p)
}

func TestNormalizeSortsArrayKindsDescending(t *testing.T) {
	arr := at("arr")
	p := mustNormalize(t,
		NewReplaceInArray(arr, 0, ir.Int(0)),
		NewReplaceInArray(arr, 3, ir.Int(3)),
		NewReplaceInArray(arr, 1, ir.Int(1)),
		NewDeleteFromArray(arr, 4),
		NewDeleteFromArray(arr, 7),
	)
	var idx []int
	for _, u := range p.Primitives(KindReplaceInArray) {
		idx = append(idx, u.Index)
	}
	assert.Equal(t, []int{3, 1, 0}, idx)
	dfa := p.Primitives(KindDeleteFromArray)
	require.Len(t, dfa, 2)
	assert.Equal(t, 7, dfa[0].Index)
	requireNormalizedInvariants(t, p)
}

func TestNormalizeDeduplicates(t *testing.T) {
	p := mustNormalize(t,
		NewDelete("c", "1", "2"),
		NewDelete("c", "1"),
		NewDeleteFromObject(target.New("c", "3", ""), "a", "b"),
		NewDeleteFromObject(target.New("c", "3", ""), "b"),
		NewDeleteFromArray(target.New("c", "3", "arr"), 0),
		NewDeleteFromArray(target.New("c", "3", "arr"), 0),
	)
	del := p.Primitives(KindDelete)
	require.Len(t, del, 1)
	assert.Equal(t, []string{"1", "2"}, del[0].IDs)

	dfo := p.Primitives(KindDeleteFromObject)
	require.Len(t, dfo, 1)
	assert.Equal(t, []string{"a", "b"}, dfo[0].Names)

	assert.Len(t, p.Primitives(KindDeleteFromArray), 1)
}

func TestNormalizeConflicts(t *testing.T) {
	tests := []struct {
		name string
		a, b *Primitive
		code ErrorCode
	}{
		{
			name: "overlapping insert_into_object keys",
			a:    NewInsertIntoObject(at(""), doc(ir.P("a", ir.Int(1)), ir.P("b", ir.Int(1)))),
			b:    NewInsertIntoObject(at(""), doc(ir.P("b", ir.Int(2)))),
			code: CodeKeyConflict,
		},
		{
			name: "two replaces of one key",
			a:    NewReplaceInObject(at(""), "a", ir.Int(1)),
			b:    NewReplaceInObject(at(""), "a", ir.Int(2)),
			code: CodeStructuralConflict,
		},
		{
			name: "two renames of one key",
			a:    NewRenameInObject(at(""), "a", "b"),
			b:    NewRenameInObject(at(""), "a", "c"),
			code: CodeStructuralConflict,
		},
		{
			name: "two replaces of one element",
			a:    NewReplaceInArray(at("arr"), 0, ir.Int(1)),
			b:    NewReplaceInArray(at("arr"), 0, ir.Int(1)),
			code: CodeStructuralConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizePrimitives(tt.a, tt.b)
			require.Error(t, p.Err())
			assert.Equal(t, tt.code, CodeOf(p.Err()))
		})
	}
}

func TestNormalizeMergesObjectInserts(t *testing.T) {
	p := mustNormalize(t,
		NewInsertIntoObject(at(""), doc(ir.P("a", ir.Int(1)))),
		NewInsertIntoObject(at(""), doc(ir.P("b", ir.Int(2)))),
		NewInsertIntoObject(at("x"), doc(ir.P("a", ir.Int(3)))),
	)
	iio := p.Primitives(KindInsertIntoObject)
	require.Len(t, iio, 2)
	assert.Equal(t, doc(ir.P("a", ir.Int(1)), ir.P("b", ir.Int(2))), iio[0].Source)
}

func TestNormalizeRejectsInvalidPrimitives(t *testing.T) {
	tests := []struct {
		name string
		u    *Primitive
	}{
		{"no collection", NewDelete("", "1")},
		{"insert with key", &Primitive{Kind: KindInsert, Target: at("")}},
		{"in-place without key", NewReplaceInObject(target.New("c", "", ""), "a", ir.Int(1))},
		{"array without path", NewDeleteFromArray(at(""), 0)},
		{"negative index", NewDeleteFromArray(at("arr"), -1)},
		{"replace without value", NewReplaceInObject(at(""), "a", nil)},
		{"rename without new name", NewRenameInObject(at(""), "a", "")},
		{"delete_from_object without names", NewDeleteFromObject(at(""))},
		{"boolean id", NewInsert("c", doc(ir.P("id", ir.Bool(true))))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizePrimitives(tt.u)
			require.Error(t, p.Err())
			assert.Equal(t, CodeInvalidInput, CodeOf(p.Err()))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := mustNormalize(t,
		NewInsert("c", doc(ir.P("id", ir.Int(7)), ir.P("a", ir.Int(1)))),
		NewDelete("c", "3", "3"),
		NewInsertIntoObject(at(""), doc(ir.P("k", ir.String("v")))),
		NewDeleteFromObject(at("o"), "x", "y"),
		NewReplaceInObject(at("o"), "x", ir.Int(1)),
		NewReplaceInObject(at("o"), "z", ir.Int(1)),
		NewRenameInObject(at(""), "old", "new"),
		NewInsertIntoArray(at("arr"), 0, ir.Int(1)),
		NewInsertIntoArray(at("arr"), 2, ir.Int(2)),
		NewDeleteFromArray(at("arr"), 1),
		NewReplaceInArray(at("arr"), 3, ir.Null{}),
	)
	requireNormalizedInvariants(t, first)

	second := Normalize(first)
	require.NoError(t, second.Err())
	assert.True(t, Equal(first, second))
}

func TestNormalizeDropsEmptyPrimitives(t *testing.T) {
	p := mustNormalize(t,
		NewInsert("c"),
		NewDelete("d"),
		NewInsertIntoObject(at(""), nil),
	)
	assert.True(t, p.Empty())
}

func TestNormalizeDropsPrimitivesOnDeletedDocuments(t *testing.T) {
	p := mustNormalize(t,
		NewDelete("c", "1"),
		NewReplaceInObject(at(""), "a", ir.Int(1)),
		NewReplaceInObject(target.New("c", "2", ""), "a", ir.Int(1)),
	)
	rio := p.Primitives(KindReplaceInObject)
	require.Len(t, rio, 1)
	assert.Equal(t, "2", rio[0].Target.Key)
}

func TestNormalizeKeepsPrimitivesOnReinsertedDocuments(t *testing.T) {
	p := mustNormalize(t,
		NewDelete("c", "1"),
		NewInsert("c", doc(ir.P("id", ir.Int(1)), ir.P("a", ir.Int(0)))),
		NewReplaceInObject(at(""), "a", ir.Int(1)),
	)
	assert.Len(t, p.Primitives(KindReplaceInObject), 1)
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	raw := New(
		NewDelete("c", "1", "1"),
		NewInsertIntoArray(at("arr"), 0, ir.Int(1)),
		NewInsertIntoArray(at("arr"), 0, ir.Int(2)),
	)
	before := raw.ToValue()
	_ = Normalize(raw)
	assert.True(t, ir.Equal(before, raw.ToValue()))
	assert.False(t, raw.Normalized())
}

func TestPoisonedPULIgnoresAdds(t *testing.T) {
	p := NormalizePrimitives(
		NewReplaceInObject(at(""), "a", ir.Int(1)),
		NewReplaceInObject(at(""), "a", ir.Int(2)),
	)
	require.Error(t, p.Err())
	n := p.Len()
	p.Add(NewDelete("c", "9"))
	assert.Equal(t, n, p.Len())

	again := Normalize(p)
	assert.Equal(t, p.Err(), again.Err())
}
