package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_Without(t *testing.T) {
	s := New(1, 2, 3)

	assert.Equal(t, New(1, 3), s.Without(2))
	assert.Equal(t, New(1, 2, 3), s, "original set must not change")
	assert.Equal(t, New(1, 2, 3), s.Without(4))
}

func TestSet_HasRemove(t *testing.T) {
	s := New("a", "b")
	assert.True(t, s.Has("a"))

	s.Remove("a")
	assert.False(t, s.Has("a"))
	assert.Equal(t, 1, s.Len())
	assert.ElementsMatch(t, []string{"b"}, s.Values())
}

func TestEquals(t *testing.T) {
	assert.True(t, New(1, 2, 3).Equals(New(1, 2, 3)))
	assert.True(t, New(1, 2, 3).Equals(New(3, 2, 1)))
	assert.True(t, New(1, 1, 1).Equals(New(1, 1, 1)))
	assert.True(t, New[int]().Equals(New[int]()))
	assert.False(t, New(1, 2, 3).Equals(New(1, 2)))
	assert.False(t, New(1, 2).Equals(New(1, 2, 3)))
	assert.False(t, New(1).Equals(New(2)))
}
