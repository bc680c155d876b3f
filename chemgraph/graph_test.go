package chemgraph

import (
	"testing"

	chem "github.com/rmera/fraggrow"
	v3 "github.com/rmera/fraggrow/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/spatial/r3"
)

func line(Te *testing.T, xs ...float64) *chem.Graph {
	Te.Helper()
	vecs := make([]r3.Vec, len(xs))
	for i, x := range xs {
		vecs[i] = r3.Vec{X: x}
	}
	g, err := chem.NewGraph(v3.FromVecs(vecs), make([]int, len(xs)), 1.1)
	require.NoError(Te, err)
	return g
}

func TestTopology(Te *testing.T) {
	g := line(Te, 0, 1, 2)
	T := TopologyFromGraph(g)
	var _ graph.Undirected = T
	assert.True(Te, T.HasEdgeBetween(0, 1))
	assert.True(Te, T.HasEdgeBetween(1, 0))
	assert.False(Te, T.HasEdgeBetween(0, 2))
	assert.Nil(Te, T.Edge(0, 2))
	assert.Nil(Te, T.Node(7))

	from := T.From(1)
	assert.Equal(Te, 2, from.Len())
	var ids []int64
	for from.Next() {
		ids = append(ids, from.Node().ID())
	}
	assert.Equal(Te, []int64{0, 2}, ids)
	assert.Equal(Te, 0, from.Len())

	e := T.Edge(0, 1)
	require.NotNil(Te, e)
	assert.Equal(Te, int64(1), e.ReversedEdge().From().ID())
}

func TestConnected(Te *testing.T) {
	assert.True(Te, Connected(line(Te, 0, 1, 2)))
	g := line(Te, 0, 1, 5, 6, 10)
	assert.False(Te, Connected(g))
	assert.Equal(Te, [][]int{{0, 1}, {2, 3}, {4}}, Components(g))
}
