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

// Package chemgraph exposes a molecular graph as a gonum graph.Undirected,
// so the gonum graph algorithms can be used on it.
package chemgraph

import (
	"sort"

	chem "github.com/rmera/fraggrow"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// Atom is a node of the graph. Its ID is the atom index.
type Atom struct {
	Index   int
	Species int
}

func (A *Atom) ID() int64 {
	return int64(A.Index)
}

// Bond is an undirected edge between two atoms.
type Bond struct {
	At1, At2 *Atom
}

func (B *Bond) From() graph.Node {
	return B.At1
}

func (B *Bond) To() graph.Node {
	return B.At2
}

func (B *Bond) ReversedEdge() graph.Edge {
	return &Bond{At1: B.At2, At2: B.At1}
}

// Implements gonum graph.Nodes
type Atoms struct {
	Atoms []*Atom
	curr  int
}

func newAtoms(ats []*Atom) *Atoms {
	return &Atoms{Atoms: ats, curr: -1}
}

// Len returns the number of atoms not yet iterated over.
func (A *Atoms) Len() int {
	if A.curr >= len(A.Atoms) {
		return 0
	}
	return len(A.Atoms) - A.curr - 1
}

func (A *Atoms) Reset() {
	A.curr = -1
}

func (A *Atoms) Next() bool {
	if A.curr+1 >= len(A.Atoms) {
		A.curr = len(A.Atoms)
		return false
	}
	A.curr++
	return true
}

func (A *Atoms) Node() graph.Node {
	if A.curr < 0 || A.curr >= len(A.Atoms) {
		return nil
	}
	return A.Atoms[A.curr]
}

// Topology implements the gonum graph.Undirected interface
// over a *chem.Graph.
type Topology struct {
	atoms []*Atom
	adj   []map[int]bool
}

// TopologyFromGraph builds the topology of g. The directed edge list of g
// is symmetric, so every pair of bonded atoms gives one undirected bond.
func TopologyFromGraph(g *chem.Graph) *Topology {
	n := g.Len()
	T := &Topology{atoms: make([]*Atom, n), adj: make([]map[int]bool, n)}
	for i, s := range g.Species() {
		T.atoms[i] = &Atom{Index: i, Species: s}
		T.adj[i] = make(map[int]bool)
	}
	recv := g.Receivers()
	for e, s := range g.Senders() {
		T.adj[s][recv[e]] = true
		T.adj[recv[e]][s] = true
	}
	return T
}

func (T *Topology) valid(id int64) bool {
	return id >= 0 && id < int64(len(T.atoms))
}

func (T *Topology) Node(id int64) graph.Node {
	if !T.valid(id) {
		return nil
	}
	return T.atoms[id]
}

func (T *Topology) Nodes() graph.Nodes {
	return newAtoms(T.atoms)
}

// From returns the atoms bonded to the atom with the given id,
// in increasing index order.
func (T *Topology) From(id int64) graph.Nodes {
	if !T.valid(id) {
		return graph.Empty
	}
	ret := make([]*Atom, 0, len(T.adj[id]))
	for j := range T.adj[id] {
		ret = append(ret, T.atoms[j])
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Index < ret[j].Index })
	return newAtoms(ret)
}

func (T *Topology) HasEdgeBetween(xid, yid int64) bool {
	if !T.valid(xid) || !T.valid(yid) {
		return false
	}
	return T.adj[xid][int(yid)]
}

func (T *Topology) Edge(uid, vid int64) graph.Edge {
	if !T.HasEdgeBetween(uid, vid) {
		return nil
	}
	return &Bond{At1: T.atoms[uid], At2: T.atoms[vid]}
}

// EdgeBetween is Edge, as bonds are not directional.
func (T *Topology) EdgeBetween(xid, yid int64) graph.Edge {
	return T.Edge(xid, yid)
}

// Components returns the connected components of g, each as a sorted
// slice of atom indexes. Components are sorted by their first atom.
func Components(g *chem.Graph) [][]int {
	cc := topo.ConnectedComponents(TopologyFromGraph(g))
	ret := make([][]int, 0, len(cc))
	for _, c := range cc {
		idx := make([]int, len(c))
		for i, n := range c {
			idx[i] = int(n.ID())
		}
		sort.Ints(idx)
		ret = append(ret, idx)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}

// Connected returns true if every atom of g can be reached from every
// other one through bonds.
func Connected(g *chem.Graph) bool {
	return len(Components(g)) <= 1
}
