package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/query"
	"github.com/ldoblies/ijsoniq/internal/store"
)

func mustJSON(t *testing.T, s string) ir.Object {
	t.Helper()
	v, err := ir.ParseJSON([]byte(s))
	require.NoError(t, err)
	return v.(ir.Object)
}

func fixtures(t *testing.T) []ir.Object {
	return []ir.Object{
		mustJSON(t, `{"id": "1", "name": "al", "n": 1, "admin": true, "tags": ["a", "b"], "meta": {"x": 1}, "0": "zero"}`),
		mustJSON(t, `{"id": "2", "name": "bo", "n": "1", "admin": false, "tags": ["b"], "nick": null}`),
		mustJSON(t, `{"id": "3", "name": "cy", "n": 2, "tags": [], "meta": {"x": 1, "y": 2}}`),
	}
}

// backends returns the same documents behind the in-memory backend and
// the SQLite store.
func backends(t *testing.T) map[string]docstore.Backend {
	ctx := context.Background()

	mem := docstore.NewMemory()
	require.NoError(t, mem.Load("users", fixtures(t)...))

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	err = docstore.Run(ctx, st, []string{"users"}, docstore.ReadWrite, docstore.Hooks{}, func(tx docstore.Tx) error {
		for _, d := range fixtures(t) {
			if _, err := tx.Put(ctx, "users", d); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	return map[string]docstore.Backend{"memory": mem, "sqlite": st}
}

func cond(t *testing.T, s string) query.Predicate {
	t.Helper()
	p, err := query.ParseCondition(s)
	require.NoError(t, err)
	return p
}

func TestFind_BackendsAgree(t *testing.T) {
	tests := []struct {
		name   string
		filter query.Predicate
		limit  int
		want   []string
	}{
		{"string", cond(t, "name=al"), 0, []string{"1"}},
		{"int is not string", cond(t, "n=1"), 0, []string{"1"}},
		{"string is not int", cond(t, `n="1"`), 0, []string{"2"}},
		{"true", cond(t, "admin=true"), 0, []string{"1"}},
		{"false", cond(t, "admin=false"), 0, []string{"2"}},
		{"exists null", cond(t, "nick"), 0, []string{"2"}},
		{"equals null", cond(t, "nick=null"), 0, []string{"2"}},
		{"array index", cond(t, "tags.0=b"), 0, []string{"2"}},
		{"index exists", cond(t, "tags.0"), 0, []string{"1", "2"}},
		{"numeric key", cond(t, "0=zero"), 0, []string{"1"}},
		{"whole array", cond(t, `tags=["b"]`), 0, []string{"2"}},
		{"whole object", cond(t, `meta={"x":1}`), 0, []string{"1"}},
		{"nested", cond(t, "meta.x=1"), 0, []string{"1", "3"}},
		{"and", query.And{Predicates: []query.Predicate{cond(t, "meta.x=1"), cond(t, "n=2")}}, 0, []string{"3"}},
		{"empty and", query.And{}, 0, []string{"1", "2", "3"}},
		{"missing", cond(t, "missing=1"), 0, nil},
		{"limit", nil, 2, []string{"1", "2"}},
	}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					docs, err := query.Find(context.Background(), b, query.Select{Collection: "users", Filter: tt.filter, Limit: tt.limit})
					require.NoError(t, err)
					var ids []string
					for _, d := range docs {
						ids = append(ids, string(d["id"].(ir.String)))
					}
					assert.Equal(t, tt.want, ids)
				})
			}
		})
	}
}

func TestSQLCompiler_Compile(t *testing.T) {
	sql, params, err := query.SQLCompiler{}.Compile(query.Select{
		Collection: "users",
		Filter:     query.Equals{Path: docval.Path{"name"}, Value: ir.String("al")},
		Limit:      5,
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT body FROM documents WHERE collection = ? AND (json_type(body, ?) = 'text' AND json_extract(body, ?) = ?) ORDER BY id COLLATE BINARY LIMIT ?`,
		sql)
	assert.Equal(t, []any{"users", `$."name"`, `$."name"`, "al", 5}, params)
	assert.NotContains(t, sql, "al'")
}

func TestSQLCompiler_NumericSegments(t *testing.T) {
	sql, params, err := query.SQLCompiler{Table: "docs"}.Compile(query.Select{
		Collection: "c",
		Filter:     query.Exists{Path: docval.Path{"tags", "0"}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM docs")
	assert.Contains(t, sql, "(json_type(body, ?) IS NOT NULL OR json_type(body, ?) IS NOT NULL)")
	assert.Equal(t, []any{"c", `$."tags"."0"`, `$."tags"[0]`}, params)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		q    query.Select
	}{
		{"no collection", query.Select{}},
		{"negative limit", query.Select{Collection: "c", Limit: -1}},
		{"empty path", query.Select{Collection: "c", Filter: query.Exists{}}},
		{"empty segment", query.Select{Collection: "c", Filter: query.Exists{Path: docval.Path{"a", ""}}}},
		{"quote", query.Select{Collection: "c", Filter: query.Exists{Path: docval.Path{`a"b`}}}},
		{"no value", query.Select{Collection: "c", Filter: query.Equals{Path: docval.Path{"a"}}}},
		{"nil in and", query.Select{Collection: "c", Filter: query.And{Predicates: []query.Predicate{nil}}}},
		{"too many indexes", query.Select{Collection: "c", Filter: query.Exists{Path: docval.ParsePath("a.0.1.2.3.4")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := query.Validate(tt.q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, query.ErrInvalid))
		})
	}

	assert.NoError(t, query.Validate(query.Select{Collection: "c"}))
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want query.Predicate
	}{
		{"name=al", query.Equals{Path: docval.Path{"name"}, Value: ir.String("al")}},
		{"n=3", query.Equals{Path: docval.Path{"n"}, Value: ir.Int(3)}},
		{`n="3"`, query.Equals{Path: docval.Path{"n"}, Value: ir.String("3")}},
		{"a.b=", query.Equals{Path: docval.Path{"a", "b"}, Value: ir.String("")}},
		{"a\\.b", query.Exists{Path: docval.Path{"a.b"}}},
		{"x=a=b", query.Equals{Path: docval.Path{"x"}, Value: ir.String("a=b")}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := query.ParseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := query.ParseCondition("n=1.5")
	assert.ErrorIs(t, err, query.ErrInvalid)
}
