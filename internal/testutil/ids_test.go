package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator("")
	assert.Equal(t, "doc-0001", g.NewID())
	assert.Equal(t, "doc-0002", g.NewID())

	other := NewSequentialIDGenerator("user")
	assert.Equal(t, "user-0001", other.NewID())
}
