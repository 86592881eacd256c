package apply

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/target"
	"github.com/ldoblies/ijsoniq/internal/testutil"
)

func seed(t *testing.T) *docstore.Memory {
	t.Helper()
	m := docstore.NewMemory(docstore.WithIDGenerator(testutil.NewSequentialIDGenerator("doc")))
	require.NoError(t, m.Load("users",
		ir.Obj(
			ir.P("id", ir.String("1")),
			ir.P("name", ir.String("al")),
			ir.P("tags", ir.Arr(ir.String("a"), ir.String("b"), ir.String("c"))),
			ir.P("meta", ir.Obj(ir.P("x", ir.Int(1)), ir.P("old", ir.Int(2)))),
		),
		ir.Obj(ir.P("id", ir.String("2")), ir.P("name", ir.String("bo"))),
		ir.Obj(ir.P("id", ir.String("3")), ir.P("name", ir.String("cy"))),
	))
	return m
}

func dump(t *testing.T, m *docstore.Memory) any {
	t.Helper()
	d, err := docstore.Dump(context.Background(), m)
	require.NoError(t, err)
	return ir.ToAny(docstore.DumpValue(d))
}

func at(key, path string) target.Target { return target.New("users", key, path) }

func mixedPUL() *pul.PUL {
	return pul.New(
		pul.NewDelete("users", "2", "3"),
		pul.NewInsert("users",
			ir.Obj(ir.P("id", ir.String("3")), ir.P("name", ir.String("cy2"))),
			ir.Obj(ir.P("id", ir.String("4")), ir.P("name", ir.String("di"))),
		),
		pul.NewInsertIntoObject(at("1", ""), ir.Obj(ir.P("age", ir.Int(30)))),
		pul.NewReplaceInObject(at("1", ""), "name", ir.String("ally")),
		pul.NewRenameInObject(at("1", "meta"), "old", "new"),
		pul.NewDeleteFromObject(at("1", "meta"), "x"),
		pul.NewInsertIntoArray(at("1", "tags"), 0, ir.String("z")),
		pul.NewDeleteFromArray(at("1", "tags"), 2),
		pul.NewReplaceInArray(at("1", "tags"), 1, ir.String("B")),
	)
}

func TestApplyMixedPUL(t *testing.T) {
	ctx := context.Background()
	m := seed(t)

	res, err := New(m).Apply(ctx, mixedPUL())
	require.NoError(t, err)

	want := map[string]any{"users": []any{
		map[string]any{
			"id":   "1",
			"name": "ally",
			"age":  int64(30),
			"tags": []any{"z", "a", "B"},
			"meta": map[string]any{"new": int64(2)},
		},
		map[string]any{"id": "3", "name": "cy2"},
		map[string]any{"id": "4", "name": "di"},
	}}
	if diff := cmp.Diff(want, dump(t, m)); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []pul.DocRef{{Collection: "users", ID: "4"}}, res.Created)
	assert.Len(t, res.PreImages, 3)
	assert.True(t, res.Applied.Normalized())
	assert.True(t, res.Inverse.Normalized())
}

func TestApplyInverseRestoresState(t *testing.T) {
	ctx := context.Background()
	m := seed(t)
	before := dump(t, m)

	a := New(m)
	res, err := a.Apply(ctx, mixedPUL())
	require.NoError(t, err)
	require.NotEqual(t, before, dump(t, m))

	_, err = a.Apply(ctx, res.Inverse)
	require.NoError(t, err)
	if diff := cmp.Diff(before, dump(t, m)); diff != "" {
		t.Errorf("inverse did not restore state (-want +got):\n%s", diff)
	}
}

func TestApplyAssignsGeneratedIDs(t *testing.T) {
	ctx := context.Background()
	m := seed(t)

	res, err := New(m).Apply(ctx, pul.New(pul.NewInsert("users", ir.Obj(ir.P("name", ir.String("ed"))))))
	require.NoError(t, err)

	inserted := res.Applied.Primitives(pul.KindInsert)
	require.Len(t, inserted, 1)
	require.Len(t, inserted[0].Docs, 1)
	assert.Equal(t, ir.String("doc-0001"), inserted[0].Docs[0]["id"])
	assert.Equal(t, []pul.DocRef{{Collection: "users", ID: "doc-0001"}}, res.Created)

	dels := res.Inverse.Primitives(pul.KindDelete)
	require.Len(t, dels, 1)
	assert.Equal(t, []string{"doc-0001"}, dels[0].IDs)
}

func TestApplyFailuresRollBack(t *testing.T) {
	tests := []struct {
		name string
		p    *pul.PUL
		code pul.ErrorCode
	}{
		{
			name: "insert over existing document",
			p: pul.New(
				pul.NewReplaceInObject(at("1", ""), "name", ir.String("x")),
				pul.NewInsert("users", ir.Obj(ir.P("id", ir.String("2")))),
			),
			code: pul.CodeDocumentOp,
		},
		{
			name: "missing document",
			p: pul.New(
				pul.NewDelete("users", "3"),
				pul.NewReplaceInObject(at("9", ""), "name", ir.String("x")),
			),
			code: pul.CodeDocumentOp,
		},
		{
			name: "missing key",
			p:    pul.New(pul.NewReplaceInObject(at("1", ""), "nope", ir.Int(1))),
			code: pul.CodeDocumentOp,
		},
		{
			name: "array index out of range",
			p:    pul.New(pul.NewReplaceInArray(at("1", "tags"), 3, ir.Int(1))),
			code: pul.CodeDocumentOp,
		},
		{
			name: "key already present",
			p:    pul.New(pul.NewInsertIntoObject(at("1", ""), ir.Obj(ir.P("name", ir.String("x"))))),
			code: pul.CodeDocumentOp,
		},
		{
			name: "identifier change",
			p:    pul.New(pul.NewReplaceInObject(at("1", ""), "id", ir.String("7"))),
			code: pul.CodeDocumentOp,
		},
		{
			name: "conflicting primitives",
			p: pul.New(
				pul.NewReplaceInObject(at("1", ""), "name", ir.String("x")),
				pul.NewReplaceInObject(at("1", ""), "name", ir.String("y")),
			),
			code: pul.CodeStructuralConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seed(t)
			before := dump(t, m)

			res, err := New(m).Apply(context.Background(), tt.p)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.code, pul.CodeOf(err))
			assert.Equal(t, before, dump(t, m))
		})
	}
}

func TestApplyDeleteOfMissingDocumentIsNoOp(t *testing.T) {
	m := seed(t)

	res, err := New(m).Apply(context.Background(), pul.New(pul.NewDelete("users", "9", "2")))
	require.NoError(t, err)
	assert.Len(t, res.PreImages, 1)

	dels := res.Inverse.Primitives(pul.KindDelete)
	require.Len(t, dels, 1)
	assert.Equal(t, []string{"2"}, dels[0].IDs)
}

func TestApplyRejectsPoisonedPUL(t *testing.T) {
	m := seed(t)
	bad := pul.Compose(pul.New(), pul.New())
	require.Error(t, bad.Err())

	_, err := New(m).Apply(context.Background(), bad)
	assert.True(t, pul.IsContractViolation(err))
}

func TestApplyBeforeCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("sees the result inside the transaction", func(t *testing.T) {
		m := seed(t)
		var seen *Result
		a := New(m, WithBeforeCommit(func(ctx context.Context, tx docstore.Tx, res *Result) error {
			doc, ok, err := tx.Get(ctx, "users", "4")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, ir.String("di"), doc["name"])
			seen = res
			return nil
		}))

		res, err := a.Apply(ctx, mixedPUL())
		require.NoError(t, err)
		assert.Same(t, res, seen)
	})

	t.Run("error rolls back", func(t *testing.T) {
		m := seed(t)
		before := dump(t, m)
		boom := errors.New("log unavailable")
		a := New(m, WithBeforeCommit(func(context.Context, docstore.Tx, *Result) error { return boom }))

		_, err := a.Apply(ctx, mixedPUL())
		require.ErrorIs(t, err, boom)
		assert.Equal(t, before, dump(t, m))
	})
}

func TestApplyObserverSeesEveryPrimitive(t *testing.T) {
	m := seed(t)
	var got []Progress
	a := New(m, WithObserver(func(p Progress) { got = append(got, p) }))

	_, err := a.Apply(context.Background(), mixedPUL())
	require.NoError(t, err)

	require.Len(t, got, 9)
	for i, p := range got {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, 9, p.Total)
	}
	assert.Equal(t, pul.KindDelete, got[0].Primitive.Kind)
	assert.Equal(t, pul.KindInsert, got[1].Primitive.Kind)
}

func TestApplyHonorsCancellation(t *testing.T) {
	m := seed(t)
	before := dump(t, m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(m).Apply(ctx, mixedPUL())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, dump(t, m))
}
