package data

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays fixed draws and records the bounds it was asked for.
type scripted struct {
	draws  []int
	bounds []int
}

func (s *scripted) IntN(n int) int {
	s.bounds = append(s.bounds, n)
	d := s.draws[0]
	s.draws = s.draws[1:]
	return d
}

func TestShuffleIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{0, 1, 2, 10, 1000} {
		idx := Indices(n)
		Shuffle(idx, rng)

		sorted := append([]int(nil), idx...)
		sort.Ints(sorted)
		assert.Equal(t, Indices(n), sorted)
	}
}

func TestShuffleFisherYatesDraws(t *testing.T) {
	src := &scripted{draws: []int{0, 2, 1, 0}}
	idx := Indices(5)
	Shuffle(idx, src)

	// i=4 swaps with 0, i=3 with 2, i=2 with 1, i=1 with 0
	assert.Equal(t, []int{5, 4, 3, 2}, src.bounds)
	assert.Equal(t, []int{3, 4, 1, 2, 0}, idx)
}

func TestShuffleIdentityDraws(t *testing.T) {
	src := &scripted{draws: []int{4, 3, 2, 1}}
	idx := Indices(5)
	Shuffle(idx, src)
	assert.Equal(t, Indices(5), idx)
}

func TestShuffleReproducible(t *testing.T) {
	a, b := Indices(64), Indices(64)
	Shuffle(a, rand.New(rand.NewPCG(7, 7)))
	Shuffle(b, rand.New(rand.NewPCG(7, 7)))
	require.Equal(t, a, b)

	rng := rand.New(rand.NewPCG(7, 7))
	first := Indices(64)
	Shuffle(first, rng)
	second := append([]int(nil), first...)
	Shuffle(second, rng)
	assert.NotEqual(t, first, second, "each epoch draws a fresh order")
}
