package randengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleReproducible(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := []int{1, 2, 3, 4, 5, 6, 7, 8}
	Shuffle(New(42), a)
	Shuffle(New(42), b)
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, a)
}

func TestIntRange(t *testing.T) {
	e := New(7)
	for range 1000 {
		v := e.IntRange(15, 30)
		assert.GreaterOrEqual(t, v, 15)
		assert.Less(t, v, 30)
	}
	assert.Equal(t, 3, e.IntRange(3, 3))
}

func TestChoice(t *testing.T) {
	e := New(1)
	_, ok := Choice(e, []string{})
	assert.False(t, ok)
	v, ok := Choice(e, []string{"a", "b"})
	assert.True(t, ok)
	assert.Contains(t, []string{"a", "b"}, v)
	assert.NotZero(t, New(0).Seed())
}
