/*
 * fragment.go, part of fraggrow.
 *
 * Copyright 2026 The fraggrow authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package fragments

import (
	"fmt"

	chem "github.com/rmera/fraggrow"
	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dims are the fixed sizes of the annotations of a fragment.
type Dims struct {
	NumSpecies int //length of each row of FocusAndTargetSpeciesProbs
	NumFoci    int //number of target slots, i.e. the maximum number of simultaneous foci
	MaxTargets int //targets per slot
}

// Fragment is one snapshot of a partially built molecule, annotated with
// what should be added next.
//
// Target slot i belongs to the i-th focus of the fragment, counting foci
// in node order (see FocusIndices). Slots beyond the number of foci, and
// targets beyond the mask, are zero.
type Fragment struct {
	Molecule *chem.Graph

	FocusMask                  []bool      //per node
	FocusAndTargetSpeciesProbs [][]float64 //per node, per species

	TargetSpecies       []int      //per slot
	TargetPositions     [][]r3.Vec //per slot, per target; relative to the focus
	TargetPositionsMask [][]bool   //per slot, per target

	Stop bool
}

// Graph returns the molecular graph of the fragment.
func (F *Fragment) Graph() *chem.Graph {
	return F.Molecule
}

// Coords returns the coordinates of the atoms of the fragment.
func (F *Fragment) Coords() *v3.Matrix {
	return F.Molecule.Coords()
}

// Species returns the species of the atoms of the fragment.
func (F *Fragment) Species() []int {
	return F.Molecule.Species()
}

// Len returns the number of atoms in the fragment.
func (F *Fragment) Len() int {
	return F.Molecule.Len()
}

// FocusIndices returns the indexes of the focus nodes, in increasing order.
func (F *Fragment) FocusIndices() []int {
	var ret []int
	for i, v := range F.FocusMask {
		if v {
			ret = append(ret, i)
		}
	}
	return ret
}

// NumTargets returns the number of valid targets in slot i.
func (F *Fragment) NumTargets(i int) int {
	n := 0
	for _, v := range F.TargetPositionsMask[i] {
		if v {
			n++
		}
	}
	return n
}

func (F *Fragment) String() string {
	return fmt.Sprintf("Fragment{atoms: %d, foci: %v, stop: %t}", F.Len(), F.FocusIndices(), F.Stop)
}

// EmptyAnnotations returns a fragment of g with all-zero annotations of
// the sizes given by dims, as used for terminal and generation fragments.
func EmptyAnnotations(g *chem.Graph, dims Dims) *Fragment {
	F := &Fragment{
		Molecule:                   g,
		FocusMask:                  make([]bool, g.Len()),
		FocusAndTargetSpeciesProbs: make([][]float64, g.Len()),
		TargetSpecies:              make([]int, dims.NumFoci),
		TargetPositions:            make([][]r3.Vec, dims.NumFoci),
		TargetPositionsMask:        make([][]bool, dims.NumFoci),
	}
	for i := range F.FocusAndTargetSpeciesProbs {
		F.FocusAndTargetSpeciesProbs[i] = make([]float64, dims.NumSpecies)
	}
	for i := 0; i < dims.NumFoci; i++ {
		F.TargetPositions[i] = make([]r3.Vec, dims.MaxTargets)
		F.TargetPositionsMask[i] = make([]bool, dims.MaxTargets)
	}
	return F
}

// Build assembles a fragment of g.
//
// visited lists the atoms of g in the fragment, in the order they will have
// in it. foci are atoms of g (all of them visited) with targets[i] holding
// the target atoms of g for foci[i]; probs holds, for every atom of g, the
// distribution of the species to attach next. If stop is true, visited must
// hold every atom of g and the fragment is g itself.
//
// Build panics if the targets of one focus have different species, if a
// target is farther from its focus than the cutoff of g, or if the sizes
// don't fit dims. None of the arguments is modified.
func Build(g *chem.Graph, visited []int, foci []int, probs [][]float64, targets [][]int, stop bool, dims Dims) (*Fragment, error) {
	n := g.Len()
	if len(foci) != len(targets) || len(foci) > dims.NumFoci {
		panic(fmt.Errorf("%w: %d foci, %d target groups, %d slots", ErrDims, len(foci), len(targets), dims.NumFoci))
	}
	if probs != nil && len(probs) != n {
		panic(fmt.Errorf("%w: %d probability rows for %d atoms", ErrDims, len(probs), n))
	}
	species := g.Species()

	//position of each atom of g in the fragment.
	where := make([]int, n)
	for i := range where {
		where[i] = -1
	}
	for k, v := range visited {
		if v >= 0 && v < n {
			where[v] = k
		}
	}
	slots := make([]int, len(foci))
	for i, f := range foci {
		if where[f] < 0 {
			panic(fmt.Errorf("%w: focus %d", ErrFocusNotVisited, f))
		}
		slots[i] = i
	}
	//slots follow the order of the foci in the fragment.
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && where[foci[slots[j]]] < where[foci[slots[j-1]]]; j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}

	frag := EmptyAnnotations(g, dims)
	frag.Stop = stop
	for slot, i := range slots {
		focus := foci[i]
		tg := targets[i]
		if len(tg) > dims.MaxTargets {
			panic(fmt.Errorf("%w: %d targets for %d per slot", ErrDims, len(tg), dims.MaxTargets))
		}
		frag.FocusMask[focus] = true
		if len(tg) == 0 {
			continue
		}
		frag.TargetSpecies[slot] = species[tg[0]]
		fpos := g.Position(focus)
		for j, t := range tg {
			if species[t] != species[tg[0]] {
				panic(fmt.Errorf("%w: focus %d, targets %v", ErrSpeciesMismatch, focus, tg))
			}
			rel := r3.Sub(g.Position(t), fpos)
			if d := r3.Norm(rel); d > g.Cutoff() {
				panic(fmt.Errorf("%w: focus %d, target %d at %.4f > %.4f", ErrTargetOutsideCutoff, focus, t, d, g.Cutoff()))
			}
			frag.TargetPositions[slot][j] = rel
			frag.TargetPositionsMask[slot][j] = true
		}
	}
	if probs != nil {
		for i, row := range probs {
			if len(row) != dims.NumSpecies {
				panic(fmt.Errorf("%w: probability row of length %d for %d species", ErrDims, len(row), dims.NumSpecies))
			}
			copy(frag.FocusAndTargetSpeciesProbs[i], row)
		}
	}

	if stop {
		if len(visited) != n {
			panic(fmt.Errorf("%w: stop fragment with %d of %d atoms", ErrIncomplete, len(visited), n))
		}
		return frag, nil
	}

	sub, err := g.Subgraph(visited)
	if err != nil {
		return nil, chem.ErrDecorate(err, "Build")
	}
	frag.Molecule = sub
	mask := make([]bool, len(visited))
	rows := make([][]float64, len(visited))
	for k, v := range visited {
		mask[k] = frag.FocusMask[v]
		rows[k] = frag.FocusAndTargetSpeciesProbs[v]
	}
	frag.FocusMask = mask
	frag.FocusAndTargetSpeciesProbs = rows
	return frag, nil
}

// PanicMsg is a message used for panics on violated invariants, which are
// programming or data errors.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrSpeciesMismatch     = PanicMsg("fraggrow/fragments: targets of one focus have different species")
	ErrTargetOutsideCutoff = PanicMsg("fraggrow/fragments: target position outside the radial cutoff")
	ErrFocusNotVisited     = PanicMsg("fraggrow/fragments: focus is not a visited node")
	ErrDims                = PanicMsg("fraggrow/fragments: annotation sizes don't match")
	ErrIncomplete          = PanicMsg("fraggrow/fragments: sequence ended before visiting every node")
)
