package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		selector string
		isArray  bool
		want     string
	}{
		{"collection", New("users", "", ""), "", false, "users"},
		{"document", New("users", "1", ""), "", false, "users:1"},
		{"path", New("users", "1", "a.b"), "", false, "users:1:a.b"},
		{"object selector", New("users", "1", "a"), "b", false, "users:1:a.b"},
		{"object selector at root", New("users", "1", ""), "b", false, "users:1:b"},
		{"array selector", New("users", "1", "tags"), "3", true, "users:1:tags:3"},
		{"escaped collection", New("a:b", "1", ""), "", false, `a\:b:1`},
		{"escaped key", New("c", "x.y", ""), "", false, `c:x\.y`},
		{"escaped path segment", New("c", "1", `a\.b`), "", false, `c:1:a\.b`},
		{"escaped selector", New("c", "1", ""), "n:m", false, `c:1:n\:m`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Serialize(tt.target, tt.selector, tt.isArray))
		})
	}
}

func TestSelectorEqualsChild(t *testing.T) {
	base := New("c", "k", "a")
	assert.Equal(t, base.Child("b").String(), Serialize(base, "b", false))
}

func TestContains(t *testing.T) {
	tests := []struct {
		name      string
		container string
		containee string
		want      bool
	}{
		{"equal", "c:1:a", "c:1:a", true},
		{"child", "c:1:a", "c:1:a.b", true},
		{"array element", "c:1:a", "c:1:a:2", true},
		{"document", "c:1", "c:1:a.b", true},
		{"collection", "c", "c:1", true},
		{"sibling prefix", "c:1:a", "c:1:ab", false},
		{"other document", "c:1", "c:12", false},
		{"escaped dot is one key", "c:1:a", `c:1:a\.b`, false},
		{"reverse", "c:1:a.b", "c:1:a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.container, tt.containee))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(New("c", "1", "a"), New("c", "1", "a")))
	assert.False(t, Equal(New("c", "1", "a"), New("c", "1", "")))
	assert.False(t, Equal(New("c", "1", ""), New("c", "", "")))
	assert.False(t, Equal(New("c", "1", ""), New("d", "1", "")))
}

func TestParseRoundTrip(t *testing.T) {
	targets := []Target{
		New("c", "", ""),
		New("c", "1", ""),
		New("c", "1", "a.b"),
		New("a:b", "x.y", `p\.q.r`),
		New(`back\slash`, `k\`, "z"),
	}
	for _, tgt := range targets {
		t.Run(tgt.String(), func(t *testing.T) {
			got, err := Parse(tgt.String())
			require.NoError(t, err)
			assert.Equal(t, tgt, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "c:1:a:2", `c:1\`, ":1"} {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			assert.Error(t, err)
		})
	}
}

func TestPathLength(t *testing.T) {
	assert.Equal(t, 0, New("c", "1", "").PathLength())
	assert.Equal(t, 1, New("c", "1", "a").PathLength())
	assert.Equal(t, 2, New("c", "1", `a\.x.b`).PathLength())
}

func TestSetPathSegment(t *testing.T) {
	tgt := New("c", "1", "a.x.c")

	got, err := tgt.SetPathSegment(1, "b")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", got.Path)
	assert.Equal(t, "a.x.c", tgt.Path, "receiver unchanged")

	got, err = tgt.SetPathSegment(0, "with.dot")
	require.NoError(t, err)
	assert.Equal(t, `with\.dot.x.c`, got.Path)

	_, err = tgt.SetPathSegment(3, "b")
	assert.Error(t, err)
	_, err = New("c", "1", "").SetPathSegment(0, "b")
	assert.Error(t, err)
}

func TestHasKeyAndPath(t *testing.T) {
	tgt := New("c", "1", "a")
	assert.True(t, tgt.HasKey())
	assert.True(t, tgt.HasPath())
	assert.False(t, New("c", "1", "").HasPath())
	assert.False(t, New("c", "", "").HasKey())
}
