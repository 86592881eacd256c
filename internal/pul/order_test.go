package pul

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

func TestApplicationOrder(t *testing.T) {
	p := mustNormalize(t,
		NewDeleteFromObject(at(""), "gone"),
		NewRenameInObject(at(""), "old", "new"),
		NewInsertIntoArray(at("list"), 2, ir.Int(0)),
		NewReplaceInArray(at("list"), 2, ir.Int(0)),
		NewDeleteFromArray(at("arr"), 1),
		NewInsertIntoArray(at("arr"), 4, ir.Int(0)),
		NewReplaceInObject(at("deep.er"), "k", ir.Int(0)),
		NewInsertIntoObject(at(""), doc(ir.P("k", ir.Int(0)))),
		NewReplaceInObject(at(""), "r", ir.Int(0)),
		NewInsert("c", doc(ir.P("id", ir.Int(2)))),
		NewDelete("c", "9"),
	)

	var got []string
	for _, u := range ApplicationOrder(p) {
		got = append(got, u.String())
	}
	assert.Equal(t, []string{
		"del c [9]",
		"insert c (1 docs)",
		"replace_in_object c:1:deep.er.k",
		"insert_into_array c:1:arr:4",
		"replace_in_array c:1:list:2",
		"insert_into_array c:1:list:2",
		"delete_from_array c:1:arr:1",
		"replace_in_object c:1:r",
		"delete_from_object c:1 [gone]",
		"rename_in_object c:1 old->new",
		"insert_into_object c:1",
	}, got)
}
