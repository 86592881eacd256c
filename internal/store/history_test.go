package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/target"
	"github.com/ldoblies/ijsoniq/internal/testutil"
)

func snapshot(t *testing.T, s *Store) any {
	t.Helper()
	d, err := docstore.Dump(context.Background(), s)
	require.NoError(t, err)
	return ir.ToAny(docstore.DumpValue(d))
}

func TestHistory_ApplyAndUndo(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t,
		WithSequencer(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("u")))

	_, seq, err := s.Apply(ctx, pul.New(pul.NewInsert("users",
		ir.Obj(ir.P("id", ir.String("1")), ir.P("name", ir.String("al"))),
	)))
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)
	base := snapshot(t, s)

	res, seq, err := s.Apply(ctx, pul.New(
		pul.NewReplaceInObject(target.New("users", "1", ""), "name", ir.String("ally")),
		pul.NewInsert("users", ir.Obj(ir.P("name", ir.String("bo")))),
	))
	require.NoError(t, err)
	require.Equal(t, int64(2), seq)
	assert.Equal(t, []pul.DocRef{{Collection: "users", ID: "u-0001"}}, res.Created)

	entry, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Seq)
	assert.True(t, entry.Undone)
	assert.Equal(t, base, snapshot(t, s))

	entry, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Seq)
	assert.Empty(t, snapshot(t, s))

	_, err = s.Undo(ctx)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, e.Undone, "entry %d", e.Seq)
	}
}

func TestHistory_FailedApplyIsNotLogged(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, _, err := s.Apply(ctx, pul.New(
		pul.NewReplaceInObject(target.New("users", "404", ""), "name", ir.String("x")),
	))
	require.Error(t, err)
	assert.Equal(t, pul.CodeDocumentOp, pul.CodeOf(err))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_EmptyPULIsNotLogged(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	res, seq, err := s.Apply(ctx, pul.New())
	require.NoError(t, err)
	assert.Zero(t, seq)
	assert.True(t, res.Applied.Empty())

	_, err = s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestHistory_UndoWithEmptyInverse(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, seq, err := s.Apply(ctx, pul.New(pul.NewDelete("users", "missing")))
	require.NoError(t, err)
	require.NotZero(t, seq)

	entry, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, seq, entry.Seq)
	assert.True(t, entry.Inverse.Empty())
}
