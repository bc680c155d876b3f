/*
 * graph.go, part of fraggrow.
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

package chem

import (
	"fmt"

	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Graph is a single molecule: atom positions, species indexes and a
// cutoff-radius edge list. Every bond appears twice, once in each direction.
// A Graph is never modified after construction; methods that return slices
// return the internal storage, which callers must not change.
type Graph struct {
	coords    *v3.Matrix
	species   []int
	senders   []int
	receivers []int
	cutoff    float64
}

// NewGraph builds the graph for the atoms with coordinates coords and species
// species. There is an edge i->j for every pair of distinct atoms closer than,
// or exactly at, cutoff. Edges are sorted by sender, then receiver.
// The coordinates are copied.
func NewGraph(coords *v3.Matrix, species []int, cutoff float64) (*Graph, error) {
	if coords == nil {
		return nil, NewError(ErrInput, "nil coordinates", "NewGraph")
	}
	n := coords.NVecs()
	if n != len(species) {
		return nil, NewError(ErrInput, fmt.Sprintf("%d coordinates but %d species", n, len(species)), "NewGraph")
	}
	if cutoff <= 0 {
		return nil, NewError(ErrConfig, fmt.Sprintf("cutoff must be positive, got %g", cutoff), "NewGraph")
	}
	for i, s := range species {
		if s < 0 {
			return nil, NewError(ErrInput, fmt.Sprintf("negative species %d for atom %d", s, i), "NewGraph")
		}
	}
	G := &Graph{
		coords:  coords.Clone(),
		species: append([]int(nil), species...),
		cutoff:  cutoff,
	}
	G.assignEdges()
	return G, nil
}

// assignEdges fills the edge list with a simple distance criterion.
// It might get slow for large systems, but molecules here are small.
func (G *Graph) assignEdges() {
	n := G.Len()
	pos := G.coords.Vecs()
	G.senders = make([]int, 0, 4*n)
	G.receivers = make([]int, 0, 4*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if r3.Norm(r3.Sub(pos[j], pos[i])) <= G.cutoff {
				G.senders = append(G.senders, i)
				G.receivers = append(G.receivers, j)
			}
		}
	}
}

// Graph returns G itself, so a *Graph is a Grapher.
func (G *Graph) Graph() *Graph {
	return G
}

// Len returns the number of atoms.
func (G *Graph) Len() int {
	return len(G.species)
}

// NEdges returns the number of (directed) edges.
func (G *Graph) NEdges() int {
	return len(G.senders)
}

// Cutoff returns the radius used to build the edge list.
func (G *Graph) Cutoff() float64 {
	return G.cutoff
}

// Coords returns the coordinates of the atoms.
func (G *Graph) Coords() *v3.Matrix {
	return G.coords
}

// Species returns the species index of each atom.
func (G *Graph) Species() []int {
	return G.species
}

// Senders returns the sender atom of each edge.
func (G *Graph) Senders() []int {
	return G.senders
}

// Receivers returns the receiver atom of each edge.
func (G *Graph) Receivers() []int {
	return G.receivers
}

// Position returns the position of atom i.
func (G *Graph) Position(i int) r3.Vec {
	return G.coords.Vec(i)
}

// EdgeDistances returns the length of each edge.
func (G *Graph) EdgeDistances() []float64 {
	d := make([]float64, len(G.senders))
	for e := range d {
		d[e] = r3.Norm(r3.Sub(G.Position(G.receivers[e]), G.Position(G.senders[e])))
	}
	return d
}

// Neighbors returns the receivers of the edges sent by atom i, in edge order.
func (G *Graph) Neighbors(i int) []int {
	var ret []int
	for e, s := range G.senders {
		if s == i {
			ret = append(ret, G.receivers[e])
		}
	}
	return ret
}

// Subgraph returns the graph induced by nodes. The order of nodes defines the
// index space of the new graph: nodes[k] becomes atom k. Only the edges with
// both ends in nodes are kept, in their original order. The cutoff is carried
// through unchanged. Returns an error for repeated or out-of-range indexes.
func (G *Graph) Subgraph(nodes []int) (*Graph, error) {
	n := G.Len()
	newIndex := make([]int, n)
	for i := range newIndex {
		newIndex[i] = -1
	}
	for k, v := range nodes {
		if v < 0 || v >= n {
			return nil, NewError(ErrInput, fmt.Sprintf("node %d out of range for a graph with %d atoms", v, n), "Graph.Subgraph")
		}
		if newIndex[v] >= 0 {
			return nil, NewError(ErrInput, fmt.Sprintf("node %d repeated", v), "Graph.Subgraph")
		}
		newIndex[v] = k
	}
	coords := v3.Zeros(len(nodes))
	if err := coords.SomeVecsSafe(G.coords, nodes); err != nil {
		return nil, errDecorate(err, "Graph.Subgraph")
	}
	S := &Graph{
		coords:  coords,
		species: make([]int, len(nodes)),
		cutoff:  G.cutoff,
	}
	for k, v := range nodes {
		S.species[k] = G.species[v]
	}
	for e := range G.senders {
		s, r := newIndex[G.senders[e]], newIndex[G.receivers[e]]
		if s < 0 || r < 0 {
			continue
		}
		S.senders = append(S.senders, s)
		S.receivers = append(S.receivers, r)
	}
	return S, nil
}

// Append returns a new graph with the atoms of G followed by the given ones.
// The edge list is rebuilt from scratch, as new atoms can change the
// connectivity of the old ones.
func (G *Graph) Append(coords *v3.Matrix, species []int) (*Graph, error) {
	if coords.NVecs() != len(species) {
		return nil, NewError(ErrInput, fmt.Sprintf("%d coordinates but %d species", coords.NVecs(), len(species)), "Graph.Append")
	}
	all := v3.Zeros(G.Len() + len(species))
	all.Stack(G.coords, coords)
	sp := make([]int, 0, G.Len()+len(species))
	sp = append(sp, G.species...)
	sp = append(sp, species...)
	N, err := NewGraph(all, sp, G.cutoff)
	if err != nil {
		return nil, errDecorate(err, "Graph.Append")
	}
	return N, nil
}

// String returns a short description of the graph.
func (G *Graph) String() string {
	return fmt.Sprintf("Graph{atoms: %d, edges: %d, cutoff: %.2f}", G.Len(), G.NEdges(), G.cutoff)
}
