package store

import (
	"context"
	"path/filepath"
	"testing"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/generate"
	v3 "github.com/rmera/fraggrow/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// newTestStore creates an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func result(t *testing.T, seed int, stopped bool, pos []r3.Vec, species []int) generate.Result {
	t.Helper()
	g, err := chem.NewGraph(v3.FromVecs(pos), species, 1.5)
	require.NoError(t, err)
	return generate.Result{Seed: seed, Stopped: stopped, Fragment: &generate.Fragment{Seed: seed, Molecule: g}}
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	table := chem.DefaultSpecies()
	s := newTestStore(t)

	methyl := result(t, 0, true, []r3.Vec{{}, {X: 1.09}, {Y: 1.09}, {Z: 1.09}}, []int{1, 0, 0, 0})
	water := result(t, 1, false, []r3.Vec{{}, {X: 0.96}, {Y: 0.96}}, []int{3, 0, 0})
	id, err := s.Save(ctx, "run1", "C", methyl, table)
	require.NoError(t, err)
	assert.Positive(t, id)
	_, err = s.Save(ctx, "run1", "C", water, table)
	require.NoError(t, err)
	require.NoError(t, s.SaveAll(ctx, "run2", "O", []generate.Result{water}, table))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	mols, err := s.List(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, mols, 2)
	m := mols[0]
	assert.Equal(t, 0, m.Seed)
	assert.True(t, m.Stopped)
	assert.Equal(t, "CH3", m.Formula)
	assert.Equal(t, 4, m.NumAtoms)
	assert.False(t, m.CreatedAt.IsZero())
	assert.False(t, mols[1].Stopped)
	assert.Equal(t, "H2O", mols[1].Formula)

	g, err := m.Graph(table, 1.5)
	require.NoError(t, err)
	assert.Equal(t, methyl.Fragment.Species(), g.Species())
	for i := 0; i < g.Len(); i++ {
		assert.InDelta(t, 0, r3.Norm(r3.Sub(g.Position(i), methyl.Fragment.Molecule.Position(i))), 1e-5)
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	table := chem.DefaultSpecies()
	s := newTestStore(t)
	_, err := s.Save(ctx, "run", "C", result(t, 4, false, []r3.Vec{{}}, []int{1}), table)
	require.NoError(t, err)
	_, err = s.Save(ctx, "run", "C", result(t, 4, true, []r3.Vec{{}, {X: 1.09}}, []int{1, 0}), table)
	require.NoError(t, err)
	mols, err := s.List(ctx, "run")
	require.NoError(t, err)
	require.Len(t, mols, 1, "one molecule per run and seed")
	assert.True(t, mols[0].Stopped)
	assert.Equal(t, 2, mols[0].NumAtoms)
}

func TestFormulas(t *testing.T) {
	ctx := context.Background()
	table := chem.DefaultSpecies()
	s := newTestStore(t)
	var res []generate.Result
	for i := 0; i < 3; i++ {
		res = append(res, result(t, i, true, []r3.Vec{{}, {X: 1.09}}, []int{1, 0}))
	}
	res = append(res, result(t, 3, true, []r3.Vec{{}}, []int{2}))
	require.NoError(t, s.SaveAll(ctx, "a", "C", res, table))
	require.NoError(t, s.SaveAll(ctx, "b", "C", res[3:], table))

	got, err := s.Formulas(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []FormulaCount{{"CH", 3}, {"N", 1}}, got)
	got, err = s.Formulas(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []FormulaCount{{"CH", 3}, {"N", 2}}, got)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	table := chem.DefaultSpecies()
	path := filepath.Join(t.TempDir(), "molecules.db")
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, "run", "C", result(t, 0, true, []r3.Vec{{}}, []int{1}), table)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	mols, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, mols, 1)
}
