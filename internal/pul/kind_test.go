package pul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}
	_, err := ParseKind("upsert")
	assert.Error(t, err)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestKindClasses(t *testing.T) {
	var whole, inPlace, array int
	for _, k := range Kinds() {
		if k.WholeDocument() {
			whole++
		}
		if k.InPlace() {
			inPlace++
		}
		if k.Array() {
			array++
			assert.True(t, k.InPlace())
		}
		assert.NotEqual(t, k.WholeDocument(), k.InPlace(), k.String())
	}
	assert.Equal(t, 2, whole)
	assert.Equal(t, 7, inPlace)
	assert.Equal(t, 3, array)
}
