package pul

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

func TestMarshalJSONIsCanonical(t *testing.T) {
	p := mustNormalize(t,
		NewDelete("c", "2"),
		NewRenameInObject(at("a"), "b", "x"),
	)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t,
		`{"del":[{"params":{"ids":["2"]},"target":{"collection":"c"},"type":"del"}],`+
			`"rename_in_object":[{"params":{"name":"b","newName":"x"},"target":{"collection":"c","key":"1","path":"a"},"type":"rename_in_object"}]}`,
		string(data))
}

func TestMarshalJSONRefusesPoisonedPUL(t *testing.T) {
	p := NormalizePrimitives(NewDelete("", "1"))
	_, err := p.MarshalJSON()
	assert.Error(t, err)
}

func TestWireRoundTrip(t *testing.T) {
	p := mustNormalize(t,
		NewInsert("c", doc(ir.P("id", ir.String("k")), ir.P("n", ir.Null{}))),
		NewDelete("c", "9"),
		NewInsertIntoObject(at("o"), doc(ir.P("a", ir.Arr(ir.Int(1))))),
		NewDeleteFromObject(at("o"), "b"),
		NewReplaceInObject(at("o"), "c", ir.Bool(false)),
		NewRenameInObject(at("o"), "d", "e"),
		NewInsertIntoArray(at("arr"), 3, ir.String("x"), ir.String("y")),
		NewDeleteFromArray(at("arr"), 1),
		NewReplaceInArray(at("arr"), 0, ir.Obj()),
	)

	decoded, err := FromValue(p.ToValue())
	require.NoError(t, err)
	again := Normalize(decoded)
	require.NoError(t, again.Err())
	assert.True(t, Equal(p, again))
}

func TestFromValueList(t *testing.T) {
	v, err := ir.ParseJSON([]byte(`[
		{"type": "insert_into_array", "target": {"collection": "c", "key": 1, "path": ["arr"]}, "params": {"index": 1, "items": ["a"]}},
		{"type": "insert_into_array", "target": "c:1:arr", "params": {"index": 1, "items": "b"}},
		{"type": "del", "target": {"collection": "c"}, "params": {"ids": [7, "8"]}}
	]`))
	require.NoError(t, err)

	raw, err := FromValue(v)
	require.NoError(t, err)
	assert.False(t, raw.Normalized())

	p := Normalize(raw)
	require.NoError(t, p.Err())
	iia := p.Primitives(KindInsertIntoArray)
	require.Len(t, iia, 1)
	assert.Equal(t, at("arr"), iia[0].Target)
	assert.Equal(t, ir.Arr(ir.String("a"), ir.String("b")), iia[0].Items)
	del := p.Primitives(KindDelete)
	require.Len(t, del, 1)
	assert.Equal(t, []string{"7", "8"}, del[0].IDs)
}

func TestFromValueErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"scalar", `3`},
		{"unknown type", `[{"type": "upsert", "target": {"collection": "c"}}]`},
		{"missing type", `[{"target": {"collection": "c"}, "params": {"ids": []}}]`},
		{"missing target", `[{"type": "del", "params": {"ids": []}}]`},
		{"empty collection", `[{"type": "del", "target": {"collection": ""}, "params": {"ids": []}}]`},
		{"missing param", `[{"type": "rename_in_object", "target": {"collection": "c", "key": "1"}, "params": {"name": "a"}}]`},
		{"wrong param type", `[{"type": "delete_from_array", "target": {"collection": "c", "key": "1", "path": "a"}, "params": {"index": "0"}}]`},
		{"insert item not an object", `[{"type": "insert", "target": {"collection": "c"}, "params": {"items": [1]}}]`},
		{"kind key mismatch", `{"del": [{"type": "insert", "target": {"collection": "c"}, "params": {"items": []}}]}`},
		{"unknown kind key", `{"upsert": []}`},
		{"kind key not a list", `{"del": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ir.ParseJSON([]byte(tt.json))
			require.NoError(t, err)
			_, err = FromValue(v)
			require.Error(t, err)
			assert.Equal(t, CodeInvalidInput, CodeOf(err))
		})
	}
}
