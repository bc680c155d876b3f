package fragments

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/rng"
	v3 "github.com/rmera/fraggrow/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func mol(Te *testing.T, pos []r3.Vec, species []int, cutoff float64) *chem.Graph {
	Te.Helper()
	g, err := chem.NewGraph(v3.FromVecs(pos), species, cutoff)
	require.NoError(Te, err)
	return g
}

// the "chiral" tetris piece, all atoms of one species.
func chiral(Te *testing.T, cutoff float64) *chem.Graph {
	return mol(Te, []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}, []int{0, 0, 0, 0}, cutoff)
}

func chain(Te *testing.T, n int) *chem.Graph {
	pos := make([]r3.Vec, n)
	for i := range pos {
		pos[i] = r3.Vec{X: float64(i)}
	}
	return mol(Te, pos, make([]int, n), 1.1)
}

// ethane with hydrogens along the axes. Species follow the default table.
func ethane(Te *testing.T) *chem.Graph {
	pos := []r3.Vec{
		{X: -1.09, Y: 0, Z: 0}, {X: 0, Y: 1.09, Z: 0}, {X: 0, Y: -1.09, Z: 0},
		{X: 0, Y: 0, Z: 0}, {X: 1.54, Y: 0, Z: 0},
		{X: 2.63, Y: 0, Z: 0}, {X: 1.54, Y: 0, Z: 1.09}, {X: 1.54, Y: 0, Z: -1.09},
	}
	return mol(Te, pos, []int{0, 0, 0, 1, 1, 0, 0, 0}, 1.6)
}

func nnOpts() Options {
	o := DefaultOptions()
	o.NNTolerance = 0.01
	return o
}

var graphComparer = cmp.Comparer(func(a, b *chem.Graph) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cutoff() == b.Cutoff() &&
		cmp.Equal(a.Species(), b.Species()) &&
		cmp.Equal(a.Senders(), b.Senders()) &&
		cmp.Equal(a.Receivers(), b.Receivers()) &&
		cmp.Equal(a.Coords().Vecs(), b.Coords().Vecs())
})

// checkInvariants tests what must hold for every fragment of any molecule.
func checkInvariants(Te *testing.T, frags []*Fragment, g *chem.Graph, opts Options) {
	Te.Helper()
	require.NotEmpty(Te, frags)
	for i, f := range frags {
		last := i == len(frags)-1
		assert.Equal(Te, last, f.Stop, "fragment %d", i)
		assert.Len(Te, f.TargetSpecies, opts.NumNodesForMultifocus)
		foci := f.FocusIndices()
		if last {
			assert.Empty(Te, foci)
			assert.Equal(Te, g.Len(), f.Len())
			continue
		}
		assert.NotEmpty(Te, foci)
		assert.LessOrEqual(Te, len(foci), opts.NumNodesForMultifocus)
		var sum float64
		for _, row := range f.FocusAndTargetSpeciesProbs {
			sum += floats.Sum(row)
		}
		assert.InDelta(Te, 1.0, sum, 1e-9, "fragment %d", i)
		for slot := range foci {
			nt := f.NumTargets(slot)
			assert.GreaterOrEqual(Te, nt, 1)
			for j := 0; j < nt; j++ {
				assert.LessOrEqual(Te, r3.Norm(f.TargetPositions[slot][j]), g.Cutoff())
				if opts.Mode == Radius {
					assert.Less(Te, r3.Norm(f.TargetPositions[slot][j]), opts.MaxRadius)
				}
			}
		}
		if i > 0 {
			assert.Greater(Te, f.Len(), frags[i-1].Len(), "growth must be monotonic")
		}
	}
}

func TestChiral(Te *testing.T) {
	for _, cutoff := range []float64{1.1, 1.5} {
		g := chiral(Te, cutoff)
		for seed := uint64(0); seed < 20; seed++ {
			frags, err := Sequence(rng.New(seed), g, chem.DefaultSpecies(), nnOpts())
			require.NoError(Te, err)
			require.Len(Te, frags, 4)
			var sizes []int
			for _, f := range frags {
				sizes = append(sizes, f.Len())
			}
			assert.Equal(Te, []int{1, 2, 3, 4}, sizes)
			checkInvariants(Te, frags, g, nnOpts())
			for _, f := range frags[:3] {
				//every bond in the piece has unit length
				assert.InDelta(Te, 1.0, r3.Norm(f.TargetPositions[0][0]), 1e-12)
			}
		}
	}
}

func TestVisitedPrefix(Te *testing.T) {
	g := ethane(Te)
	S, err := NewSequencer(rng.New(3), g, chem.DefaultSpecies(), nnOpts())
	require.NoError(Te, err)
	prev := []int{}
	for {
		f, err := S.Next()
		if err == io.EOF {
			break
		}
		require.NoError(Te, err)
		if f.Stop {
			assert.Len(Te, S.Visited(), g.Len())
			continue
		}
		//the fragment holds the atoms visited before the step, in order.
		for k, v := range prev {
			assert.Equal(Te, g.Position(v), f.Molecule.Position(k))
			assert.Equal(Te, g.Species()[v], f.Species()[k])
		}
		cur := S.Visited()
		assert.Equal(Te, prev, cur[:len(prev)], "visited atoms are never removed or reordered")
		assert.Greater(Te, len(cur), len(prev))
		prev = cur
	}
	_, err = S.Next()
	assert.Equal(Te, io.EOF, err)
}

func TestRoundTrip(Te *testing.T) {
	g := ethane(Te)
	frags, err := Sequence(rng.New(11), g, chem.DefaultSpecies(), nnOpts())
	require.NoError(Te, err)
	last := frags[len(frags)-1]
	require.True(Te, last.Stop)
	assert.Equal(Te, g.Species(), last.Species())
	assert.Equal(Te, g.Coords().Vecs(), last.Coords().Vecs())
	checkInvariants(Te, frags, g, nnOpts())
}

func TestDeterminism(Te *testing.T) {
	g := ethane(Te)
	o := nnOpts()
	o.NumNodesForMultifocus = 2
	o.MaxTargetsPerGraph = 3
	a, err := Sequence(rng.New(42), g, chem.DefaultSpecies(), o)
	require.NoError(Te, err)
	b, err := Sequence(rng.New(42), g, chem.DefaultSpecies(), o)
	require.NoError(Te, err)
	if diff := cmp.Diff(a, b, graphComparer); diff != "" {
		Te.Errorf("same key gave different sequences (-first +second):\n%s", diff)
	}
}

func TestConfigErrors(Te *testing.T) {
	g := chiral(Te, 1.1)
	cases := map[string]func(*Options){
		"bad mode":          func(o *Options) { o.Mode = "knn" },
		"nn without tol":    func(o *Options) { o.NNTolerance = 0 },
		"nn with radius":    func(o *Options) { o.MaxRadius = 1 },
		"radius without r":  func(o *Options) { o.Mode = Radius; o.NNTolerance = 0 },
		"radius with tol":   func(o *Options) { o.Mode = Radius; o.MaxRadius = 1 },
		"no foci":           func(o *Options) { o.NumNodesForMultifocus = 0 },
		"no targets":        func(o *Options) { o.MaxTargetsPerGraph = 0 },
		"transition absent": func(o *Options) { o.TransitionFirst = true },
	}
	for name, mod := range cases {
		Te.Run(name, func(Te *testing.T) {
			o := nnOpts()
			mod(&o)
			_, err := Sequence(rng.New(0), g, chem.DefaultSpecies(), o)
			require.Error(Te, err)
			assert.True(Te, errors.Is(err, chem.ErrConfig), "got %v", err)
		})
	}
	_, err := Sequence(rng.New(0), chain(Te, 1), chem.DefaultSpecies(), nnOpts())
	assert.True(Te, errors.Is(err, chem.ErrInput))
}

func TestStarvation(Te *testing.T) {
	//two dihydrogens far apart
	g := mol(Te, []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0.74}, {X: 5, Y: 0, Z: 0}, {X: 5, Y: 0, Z: 0.74}}, []int{0, 0, 0, 0}, 1.2)
	_, err := Sequence(rng.New(0), g, chem.DefaultSpecies(), nnOpts())
	assert.True(Te, errors.Is(err, chem.ErrStarvation), "got %v", err)

	//every bond is longer than the radius
	o := Options{Mode: Radius, MaxRadius: 0.5, NumNodesForMultifocus: 1, MaxTargetsPerGraph: 1}
	S, err := NewSequencer(rng.New(0), chiral(Te, 1.1), chem.DefaultSpecies(), o)
	require.NoError(Te, err)
	_, err = S.Next()
	assert.True(Te, errors.Is(err, chem.ErrStarvation), "got %v", err)
	_, err2 := S.Next()
	assert.Equal(Te, err, err2, "errors are sticky")
}

func TestHeavyFirst(Te *testing.T) {
	g := ethane(Te)
	o := nnOpts()
	o.HeavyFirst = true
	for seed := uint64(0); seed < 10; seed++ {
		S, err := NewSequencer(rng.New(seed), g, chem.DefaultSpecies(), o)
		require.NoError(Te, err)
		f, err := S.Next()
		require.NoError(Te, err)
		assert.Equal(Te, []int{1}, f.Species())
		assert.Equal(Te, 1, f.TargetSpecies[0], "the first target is the other carbon")
		for _, v := range S.Visited() {
			assert.Equal(Te, 1, g.Species()[v])
		}
	}
}

func TestTransitionFirst(Te *testing.T) {
	table := chem.SpeciesTable{1, 6, 26}
	//a linear C-Fe-C-H piece
	pos := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1.8, Y: 0, Z: 0}, {X: -1.8, Y: 0, Z: 0}, {X: 2.8, Y: 0, Z: 0}}
	g := mol(Te, pos, []int{2, 1, 1, 0}, 1.9)
	o := nnOpts()
	o.TransitionFirst = true
	for seed := uint64(0); seed < 10; seed++ {
		frags, err := Sequence(rng.New(seed), g, table, o)
		require.NoError(Te, err)
		assert.Equal(Te, []int{2}, frags[0].Species())
		checkInvariants(Te, frags, g, o)
	}
}

func TestMultiFocus(Te *testing.T) {
	g := chain(Te, 6)
	o := nnOpts()
	o.NumNodesForMultifocus = 2
	shorter := false
	for seed := uint64(0); seed < 20; seed++ {
		frags, err := Sequence(rng.New(seed), g, chem.DefaultSpecies(), o)
		require.NoError(Te, err)
		checkInvariants(Te, frags, g, o)
		if len(frags) < g.Len() {
			shorter = true
		}
		for _, f := range frags {
			foci := f.FocusIndices()
			if len(foci) == 2 {
				//both ends of the chain grow, and the trials keep distinct targets.
				a := r3.Add(f.Molecule.Position(foci[0]), f.TargetPositions[0][0])
				b := r3.Add(f.Molecule.Position(foci[1]), f.TargetPositions[1][0])
				assert.NotEqual(Te, a, b)
			}
		}
	}
	assert.True(Te, shorter, "two foci should let some runs finish in fewer steps")
}

func TestMaxTargets(Te *testing.T) {
	g := chiral(Te, 1.5)
	o := Options{Mode: Radius, MaxRadius: 1.45, NumNodesForMultifocus: 1, MaxTargetsPerGraph: 3}
	for seed := uint64(0); seed < 10; seed++ {
		frags, err := Sequence(rng.New(seed), g, chem.DefaultSpecies(), o)
		require.NoError(Te, err)
		checkInvariants(Te, frags, g, o)
		first := -1
		for i := 0; i < g.Len(); i++ {
			if g.Position(i) == frags[0].Molecule.Position(0) {
				first = i
			}
		}
		require.NotEqual(Te, -1, first)
		assert.Equal(Te, len(g.Neighbors(first)), frags[0].NumTargets(0), fmt.Sprint("seed ", seed))
	}
}

func panicErr(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	f()
	return nil
}

func TestBuild(Te *testing.T) {
	g := chain(Te, 3)
	dims := Dims{NumSpecies: 5, NumFoci: 2, MaxTargets: 1}
	f, err := Build(g, []int{2, 0}, []int{0, 2}, nil, [][]int{{1}, {1}}, false, dims)
	require.NoError(Te, err)
	assert.Equal(Te, []int{0, 1}, f.FocusIndices())
	//slot 0 belongs to the first focus of the fragment, which is atom 2.
	assert.Equal(Te, r3.Vec{X: -1}, f.TargetPositions[0][0])
	assert.Equal(Te, r3.Vec{X: 1}, f.TargetPositions[1][0])
	assert.Equal(Te, r3.Vec{X: 2}, f.Molecule.Position(0))

	err = panicErr(func() {
		Build(g, []int{0}, []int{0}, nil, [][]int{{2}}, false, dims)
	})
	assert.True(Te, errors.Is(err, ErrTargetOutsideCutoff), "got %v", err)

	mixed := mol(Te, []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}}, []int{1, 0, 1}, 1.1)
	err = panicErr(func() {
		Build(mixed, []int{0}, []int{0}, nil, [][]int{{1, 2}}, false, Dims{NumSpecies: 5, NumFoci: 1, MaxTargets: 2})
	})
	assert.True(Te, errors.Is(err, ErrSpeciesMismatch), "got %v", err)

	err = panicErr(func() {
		Build(g, []int{0}, []int{1}, nil, [][]int{{2}}, false, dims)
	})
	assert.True(Te, errors.Is(err, ErrFocusNotVisited), "got %v", err)
}
