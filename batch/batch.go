/*
 * batch.go, part of fraggrow.
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

// Package batch packs molecular graphs of different sizes into
// fixed-size padded batches.
//
// A batch of budget {Nodes, Edges, Graphs} always has exactly that many
// nodes, edges and graphs. The last graph is a padding graph that owns
// every padding node, and padding edges connect the first padding node
// to itself. So a batch holds at most Graphs-1 real graphs with at
// most Nodes-1 real nodes among them.
package batch

import (
	"fmt"
	"math"

	chem "github.com/rmera/fraggrow"
	"gonum.org/v1/gonum/spatial/r3"
)

// Budget is the padded size of a batch.
type Budget struct {
	Nodes  int `yaml:"nodes"`
	Edges  int `yaml:"edges"`
	Graphs int `yaml:"graphs"`
}

// Validate returns an error of kind chem.ErrConfig if no graph could
// ever fit in a batch of budget B.
func (B Budget) Validate() error {
	if B.Nodes < 2 || B.Graphs < 2 || B.Edges < 0 {
		return chem.NewError(chem.ErrConfig, fmt.Sprintf("budget %+v leaves no room for a real graph and the padding graph", B), "Budget.Validate")
	}
	return nil
}

// fits reports whether a graph with n nodes and e edges fits in a
// batch of budget B already holding graphs graphs, nodes nodes and
// edges edges.
func (B Budget) fits(graphs, nodes, edges, n, e int) bool {
	return graphs+1 <= B.Graphs-1 && nodes+n <= B.Nodes-1 && edges+e <= B.Edges
}

// Batch is a padded set of graphs. The node and edge arrays are
// concatenated over graphs, with edge indexes shifted by the offset
// of their graph.
type Batch struct {
	Budget Budget

	Positions []r3.Vec
	Species   []int
	Senders   []int
	Receivers []int
	NNode     []int //per graph
	NEdge     []int //per graph

	NodeMask  []bool
	EdgeMask  []bool
	GraphMask []bool

	graphs []*chem.Graph
}

// NGraphs returns the number of real graphs in the batch.
func (B *Batch) NGraphs() int {
	return len(B.graphs)
}

// Unbatch returns the real graphs of the batch, in the order they
// were added.
func (B *Batch) Unbatch() []*chem.Graph {
	return append([]*chem.Graph(nil), B.graphs...)
}

// Builder accumulates graphs for one batch.
type Builder struct {
	budget Budget
	graphs []*chem.Graph
	nodes  int
	edges  int
}

// NewBuilder returns an empty Builder for batches of the given budget.
func NewBuilder(budget Budget) (*Builder, error) {
	if err := budget.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "NewBuilder")
	}
	return &Builder{budget: budget}, nil
}

// Len returns the number of graphs added since the last Build.
func (B *Builder) Len() int {
	return len(B.graphs)
}

// Fits reports whether g can be added to the current batch.
func (B *Builder) Fits(g *chem.Graph) bool {
	return B.budget.fits(len(B.graphs), B.nodes, B.edges, g.Len(), g.NEdges())
}

// FitsEmpty reports whether g would fit in an empty batch.
func (B *Builder) FitsEmpty(g *chem.Graph) bool {
	return B.budget.fits(0, 0, 0, g.Len(), g.NEdges())
}

// Add adds g to the current batch. It returns an error if g doesn't fit.
func (B *Builder) Add(g *chem.Graph) error {
	if !B.Fits(g) {
		return chem.NewError(chem.ErrConfig, fmt.Sprintf("graph with %d nodes and %d edges doesn't fit budget %+v with %d graphs, %d nodes and %d edges already in", g.Len(), g.NEdges(), B.budget, len(B.graphs), B.nodes, B.edges), "Builder.Add")
	}
	B.graphs = append(B.graphs, g)
	B.nodes += g.Len()
	B.edges += g.NEdges()
	return nil
}

// Build returns the padded batch with the graphs added so far, and
// empties the builder.
func (B *Builder) Build() *Batch {
	bu := B.budget
	b := &Batch{
		Budget:    bu,
		Positions: make([]r3.Vec, 0, bu.Nodes),
		Species:   make([]int, 0, bu.Nodes),
		Senders:   make([]int, 0, bu.Edges),
		Receivers: make([]int, 0, bu.Edges),
		NNode:     make([]int, 0, bu.Graphs),
		NEdge:     make([]int, 0, bu.Graphs),
		NodeMask:  make([]bool, bu.Nodes),
		EdgeMask:  make([]bool, bu.Edges),
		GraphMask: make([]bool, bu.Graphs),
		graphs:    B.graphs,
	}
	off := 0
	for i, g := range B.graphs {
		b.Positions = append(b.Positions, g.Coords().Vecs()...)
		b.Species = append(b.Species, g.Species()...)
		for _, s := range g.Senders() {
			b.Senders = append(b.Senders, s+off)
		}
		for _, r := range g.Receivers() {
			b.Receivers = append(b.Receivers, r+off)
		}
		b.NNode = append(b.NNode, g.Len())
		b.NEdge = append(b.NEdge, g.NEdges())
		b.GraphMask[i] = true
		off += g.Len()
	}
	for i := 0; i < off; i++ {
		b.NodeMask[i] = true
	}
	for i := 0; i < len(b.Senders); i++ {
		b.EdgeMask[i] = true
	}
	pad := off
	//the padding graph
	b.NNode = append(b.NNode, bu.Nodes-off)
	b.NEdge = append(b.NEdge, bu.Edges-len(b.Senders))
	for len(b.NNode) < bu.Graphs {
		b.NNode = append(b.NNode, 0)
		b.NEdge = append(b.NEdge, 0)
	}
	for len(b.Positions) < bu.Nodes {
		b.Positions = append(b.Positions, r3.Vec{})
		b.Species = append(b.Species, 0)
	}
	for len(b.Senders) < bu.Edges {
		b.Senders = append(b.Senders, pad)
		b.Receivers = append(b.Receivers, pad)
	}
	B.graphs = nil
	B.nodes = 0
	B.edges = 0
	return b
}

// Dynamic packs graphs, in order, into as few batches of the given budget
// as a greedy first-fit allows. It returns an error if one graph alone
// doesn't fit the budget.
func Dynamic(graphs []*chem.Graph, budget Budget) ([]*Batch, error) {
	B, err := NewBuilder(budget)
	if err != nil {
		return nil, chem.ErrDecorate(err, "Dynamic")
	}
	var ret []*Batch
	for _, g := range graphs {
		if !B.FitsEmpty(g) {
			return nil, chem.NewError(chem.ErrConfig, fmt.Sprintf("graph with %d nodes and %d edges can't fit budget %+v", g.Len(), g.NEdges(), budget), "Dynamic")
		}
		if !B.Fits(g) {
			ret = append(ret, B.Build())
		}
		if err := B.Add(g); err != nil {
			return nil, chem.ErrDecorate(err, "Dynamic")
		}
	}
	if B.Len() > 0 {
		ret = append(ret, B.Build())
	}
	return ret, nil
}

// EstimateBudget returns a budget for batches of nGraphs graphs like the
// given ones: the mean node and edge counts times nGraphs, rounded up to
// the next multiple of 64, plus one node and one graph for the padding.
func EstimateBudget(graphs []*chem.Graph, nGraphs int) (Budget, error) {
	if len(graphs) == 0 || nGraphs < 1 {
		return Budget{}, chem.NewError(chem.ErrConfig, "a budget needs at least one graph to estimate from, and a positive batch size", "EstimateBudget")
	}
	var nodes, edges float64
	for _, g := range graphs {
		nodes += float64(g.Len())
		edges += float64(g.NEdges())
	}
	n := float64(len(graphs))
	return Budget{
		Nodes:  nextMultiple(nodes/n*float64(nGraphs), 64) + 1,
		Edges:  nextMultiple(edges/n*float64(nGraphs), 64),
		Graphs: nGraphs + 1,
	}, nil
}

func nextMultiple(x float64, m int) int {
	k := int(math.Ceil(x / float64(m)))
	if k < 1 {
		k = 1
	}
	return k * m
}
