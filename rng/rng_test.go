package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// the distributions of gonum take their randomness from an x/exp/rand Source.
var _ xrand.Source = pcgSource{}

func TestSplitIsDeterministic(Te *testing.T) {
	a1, b1 := New(42).Split()
	a2, b2 := New(42).Split()
	assert.Equal(Te, a1, a2)
	assert.Equal(Te, b1, b2)
	assert.NotEqual(Te, a1, b1)
	assert.NotEqual(Te, New(42).Uint64(), New(43).Uint64())
}

func TestSplitN(Te *testing.T) {
	keys := New(7).SplitN(16)
	seen := map[Key]bool{}
	for _, k := range keys {
		assert.False(Te, seen[k], "children must be distinct")
		seen[k] = true
	}
	assert.Equal(Te, New(7).FoldIn(3), New(7).FoldIn(3))
	assert.NotEqual(Te, New(7).FoldIn(3), New(7).FoldIn(4))
}

func TestCategorical(Te *testing.T) {
	k := New(1)
	counts := make([]int, 3)
	for _, c := range k.SplitN(2000) {
		counts[c.Categorical([]float64{0, 1, 3})]++
	}
	assert.Zero(Te, counts[0], "zero weight must never be drawn")
	assert.Greater(Te, counts[2], counts[1])

	assert.Panics(Te, func() { k.Categorical([]float64{0, 0}) })
	assert.Panics(Te, func() { k.Categorical([]float64{1, -1}) })
}

func TestExclude(Te *testing.T) {
	ex := New(5).Exclude(10, 4)
	require.Len(Te, ex, 4)
	seen := map[int]bool{}
	for _, v := range ex {
		assert.GreaterOrEqual(Te, v, 0)
		assert.Less(Te, v, 10)
		assert.False(Te, seen[v])
		seen[v] = true
	}
	assert.Empty(Te, New(5).Exclude(3, 0))
}

func TestUnitVec(Te *testing.T) {
	for _, k := range New(9).SplitN(50) {
		assert.InDelta(Te, 1.0, r3.Norm(k.UnitVec()), 1e-9)
	}
}

func TestSource(Te *testing.T) {
	src := New(3).source()
	src.Seed(17)
	first := []uint64{src.Uint64(), src.Uint64()}
	src.Seed(17)
	assert.Equal(Te, first, []uint64{src.Uint64(), src.Uint64()}, "Seed restarts the stream")
	src.Seed(18)
	assert.NotEqual(Te, first[0], src.Uint64())

	//every draw going through gonum depends on the key alone
	k := New(21)
	assert.Equal(Te, k.Categorical([]float64{1, 2, 3, 4}), k.Categorical([]float64{1, 2, 3, 4}))
	assert.Equal(Te, k.Exclude(20, 5), k.Exclude(20, 5))
	assert.Equal(Te, k.UnitVec(), k.UnitVec())
}
