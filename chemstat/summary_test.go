package chemstat

import (
	"testing"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/generate"
	"github.com/rmera/fraggrow/rng"
	v3 "github.com/rmera/fraggrow/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func result(Te *testing.T, seed int, stopped bool, species ...int) generate.Result {
	pos := make([]r3.Vec, len(species))
	for i := range pos {
		pos[i] = r3.Vec{X: float64(i)}
	}
	g, err := chem.NewGraph(v3.FromVecs(pos), species, 1.5)
	require.NoError(Te, err)
	return generate.Result{Seed: seed, Stopped: stopped, Fragment: &generate.Fragment{Seed: seed, Molecule: g}}
}

func TestNewSizes(Te *testing.T) {
	S := NewSizes([]int{2, 4, 4, 6})
	assert.Equal(Te, 4.0, S.Mean)
	assert.InDelta(Te, 1.63299, S.Std, 1e-4)
	assert.Equal(Te, 2, S.Min)
	assert.Equal(Te, 6, S.Max)
	assert.Equal(Te, []float64{1, 0, 2, 0, 1}, S.Histo.View())

	one := NewSizes([]int{3})
	assert.Zero(Te, one.Std)
	assert.Nil(Te, NewSizes(nil))
	assert.Equal(Te, "no data", NewSizes(nil).String())
}

func TestSummarize(Te *testing.T) {
	table := chem.DefaultSpecies()
	res := []generate.Result{
		result(Te, 0, true, 1, 0, 0),
		result(Te, 1, true, 1, 0, 0),
		result(Te, 2, false, 3, 0),
		result(Te, 3, true, 1, 1, 0),
	}
	G := Summarize(res, table)
	assert.Equal(Te, 4, G.Molecules)
	assert.Equal(Te, 3, G.Stopped)
	assert.Equal(Te, 0.75, G.StopRate())
	assert.Equal(Te, map[string]int{"CH2": 2, "HO": 1, "C2H": 1}, G.Formulas)
	assert.Equal(Te, []string{"CH2", "C2H"}, G.TopFormulas(2))
	assert.Equal(Te, 2, G.Atoms.Min)
	assert.Equal(Te, 3, G.Atoms.Max)
	assert.Contains(Te, G.String(), "4 molecules, 3 stopped (75.0%)")
	assert.Zero(Te, Summarize(nil, table).StopRate())
}

func TestSummarizeFragments(Te *testing.T) {
	g, err := chem.NewGraph(v3.FromVecs([]r3.Vec{{}, {X: 1.09}, {X: 2.2}}), []int{1, 0, 1}, 1.2)
	require.NoError(Te, err)
	frags, err := fragments.Sequence(rng.New(2), g, chem.DefaultSpecies(), fragments.DefaultOptions())
	require.NoError(Te, err)
	S := SummarizeFragments(frags)
	assert.Equal(Te, 3, S.Fragments)
	assert.Equal(Te, 1, S.Stops)
	assert.Equal(Te, 1, S.Atoms.Min)
	assert.Equal(Te, 3, S.Atoms.Max)
	assert.Equal(Te, 0, S.Targets.Min, "the stop fragment has no targets")
	assert.Equal(Te, 1, S.Targets.Max)
}

func TestNewSpread(Te *testing.T) {
	assert.Nil(Te, NewSpread(nil))
	assert.Equal(Te, "no data", NewSpread(nil).String())
	S := NewSpread([]float64{90})
	assert.Equal(Te, 1, S.N)
	assert.Equal(Te, 0.0, S.Std)
	S = NewSpread([]float64{100, 120, 110})
	assert.InDelta(Te, 110, S.Mean, 1e-12)
	assert.Equal(Te, 100.0, S.Min)
	assert.Equal(Te, 120.0, S.Max)
}

// Every bond angle of the chain is square, and the dihedral along it
// is a quarter turn whichever end the sequence starts from.
func TestTargetGeometry(Te *testing.T) {
	pos := []r3.Vec{{}, {Z: 1}, {X: 1}, {X: 1, Y: 1}}
	g, err := chem.NewGraph(v3.FromVecs(pos), []int{1, 1, 1, 1}, 1.1)
	require.NoError(Te, err)
	for seed := uint64(0); seed < 6; seed++ {
		frags, err := fragments.Sequence(rng.New(seed), g, chem.DefaultSpecies(), fragments.DefaultOptions())
		require.NoError(Te, err)
		angles, dihedrals := TargetGeometry(frags)
		require.NotEmpty(Te, angles, "seed %d", seed)
		for _, a := range angles {
			assert.InDelta(Te, 90, a, 1e-9, "seed %d", seed)
		}
		require.Len(Te, dihedrals, 1, "seed %d", seed)
		assert.InDelta(Te, 90, dihedrals[0], 1e-9, "seed %d", seed)

		S := SummarizeFragments(frags)
		assert.Equal(Te, len(angles), S.Angles.N)
		assert.Equal(Te, 1, S.Dihedrals.N)
		assert.Contains(Te, S.String(), "focus-target dihedrals (deg): 90.00")
	}
}
