/*
 * sequencer.go, part of fraggrow.
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
	"io"
	"math"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/chemgraph"
	"github.com/rmera/fraggrow/rng"
	"gonum.org/v1/gonum/floats"
)

// targetTrials is the number of random target assignments tried in each
// middle step. The one reaching the most distinct atoms is kept.
const targetTrials = 10

type stage int

const (
	stageInit stage = iota
	stageMiddle
	stageDone
)

// Sequencer grows a molecule atom by atom, yielding one fragment per step.
// A Sequencer is not safe for concurrent use.
type Sequencer struct {
	key   rng.Key
	g     *chem.Graph
	table chem.SpeciesTable
	opts  Options
	dims  Dims

	dist      []float64 //per edge
	heavy     []bool    //per node
	visited   []int
	isVisited []bool
	middles   int
	stage     stage
	err       error
}

// NewSequencer returns a Sequencer for g. The options, the species of g
// and the connectivity of g are checked here, so no fragment is yielded
// for a molecule that can't be fully grown.
func NewSequencer(key rng.Key, g *chem.Graph, table chem.SpeciesTable, opts Options) (*Sequencer, error) {
	if err := opts.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "NewSequencer")
	}
	if err := table.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "NewSequencer")
	}
	if g == nil || g.Len() < 2 {
		return nil, chem.NewError(chem.ErrInput, "fragmentation needs at least 2 atoms", "NewSequencer")
	}
	S := &Sequencer{
		key:       key,
		g:         g,
		table:     table,
		opts:      opts,
		dims:      opts.Dims(table),
		dist:      g.EdgeDistances(),
		heavy:     make([]bool, g.Len()),
		isVisited: make([]bool, g.Len()),
	}
	for i, s := range g.Species() {
		if s < 0 || s >= table.Len() {
			return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("atom %d has species %d, outside a table of %d", i, s, table.Len()), "NewSequencer")
		}
		S.heavy[i] = table.IsHeavy(s)
	}
	if !chemgraph.Connected(g) {
		return nil, chem.NewError(chem.ErrStarvation, fmt.Sprintf("molecule is not connected at cutoff %.3f", g.Cutoff()), "NewSequencer")
	}
	return S, nil
}

// Sequence fragments g and returns every fragment, the terminal one last.
func Sequence(key rng.Key, g *chem.Graph, table chem.SpeciesTable, opts Options) ([]*Fragment, error) {
	S, err := NewSequencer(key, g, table, opts)
	if err != nil {
		return nil, chem.ErrDecorate(err, "Sequence")
	}
	var ret []*Fragment
	for {
		f, err := S.Next()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return nil, chem.ErrDecorate(err, "Sequence")
		}
		ret = append(ret, f)
	}
}

// Visited returns a copy of the visited atoms, in the order they were reached.
func (S *Sequencer) Visited() []int {
	return append([]int(nil), S.visited...)
}

// Next returns the next fragment. After the terminal fragment it returns
// io.EOF. Once an error is returned, every further call returns it too.
func (S *Sequencer) Next() (*Fragment, error) {
	if S.err != nil {
		return nil, S.err
	}
	var f *Fragment
	var err error
	switch {
	case S.stage == stageInit:
		f, err = S.first()
		S.stage = stageMiddle
	case S.stage == stageMiddle && len(S.visited) < S.g.Len() && S.middles < S.g.Len()-2:
		f, err = S.middle()
		S.middles++
	case S.stage == stageMiddle:
		f, err = S.last()
		S.stage = stageDone
	default:
		err = io.EOF
	}
	if err != nil {
		if err != io.EOF {
			err = chem.ErrDecorate(err, "Next")
		}
		S.err = err
		return nil, err
	}
	return f, nil
}

func (S *Sequencer) split() rng.Key {
	var k rng.Key
	S.key, k = S.key.Split()
	return k
}

func (S *Sequencer) visit(nodes ...int) {
	for _, v := range nodes {
		S.visited = append(S.visited, v)
		S.isVisited[v] = true
	}
}

func (S *Sequencer) starved(msg string, caller string) error {
	return chem.NewError(chem.ErrStarvation, msg, caller)
}

// filter keeps, among the candidate edges, those that pass the distance
// criterion of the current mode.
func (S *Sequencer) filter(cand []int) []int {
	closest := math.Inf(1)
	for _, e := range cand {
		closest = math.Min(closest, S.dist[e])
	}
	ret := cand[:0:0]
	for _, e := range cand {
		if S.opts.keep(S.dist[e], closest) {
			ret = append(ret, e)
		}
	}
	return ret
}

func (S *Sequencer) firstAtom() (int, error) {
	n := S.g.Len()
	species := S.g.Species()
	var pool []int
	switch {
	case S.opts.TransitionFirst:
		for i, s := range species {
			if S.table.IsTransitionGroup(s) {
				pool = append(pool, i)
			}
		}
		if len(pool) == 0 {
			return -1, chem.NewError(chem.ErrConfig, "transition_first requested for a molecule without atoms in groups 2-11", "firstAtom")
		}
	case S.opts.HeavyFirst:
		for i := range species {
			if S.heavy[i] {
				pool = append(pool, i)
			}
		}
	}
	k := S.split()
	if len(pool) == 0 {
		return k.Intn(n), nil
	}
	return k.Choice(pool), nil
}

func (S *Sequencer) first() (*Fragment, error) {
	first, err := S.firstAtom()
	if err != nil {
		return nil, err
	}
	senders, receivers := S.g.Senders(), S.g.Receivers()
	species := S.g.Species()

	var cand, heavyCand []int
	for e, s := range senders {
		if s != first {
			continue
		}
		cand = append(cand, e)
		if S.heavy[receivers[e]] {
			heavyCand = append(heavyCand, e)
		}
	}
	if S.opts.HeavyFirst && len(heavyCand) > 0 {
		cand = heavyCand
	}
	cand = S.filter(cand)
	if len(cand) == 0 {
		return nil, S.starved(fmt.Sprintf("no targets found for the first atom %d", first), "first")
	}

	counts := make([]float64, S.dims.NumSpecies)
	for _, e := range cand {
		counts[species[receivers[e]]]++
	}
	floats.Scale(1/floats.Sum(counts), counts)
	probs := make([][]float64, S.g.Len())
	for i := range probs {
		probs[i] = make([]float64, S.dims.NumSpecies)
	}
	copy(probs[first], counts)

	tspecies := S.split().Categorical(counts)
	var group []int
	for _, e := range cand {
		if r := receivers[e]; species[r] == tspecies && len(group) < S.dims.MaxTargets {
			group = append(group, r)
		}
	}
	f, err := Build(S.g, []int{first}, []int{first}, probs, [][]int{group}, false, S.dims)
	if err != nil {
		return nil, err
	}
	next := S.split().Choice(group)
	S.visit(first, next)
	return f, nil
}

func (S *Sequencer) middle() (*Fragment, error) {
	n := S.g.Len()
	senders, receivers := S.g.Senders(), S.g.Receivers()
	species := S.g.Species()

	heavyLeft := false
	if S.opts.HeavyFirst {
		for i, h := range S.heavy {
			if h && !S.isVisited[i] {
				heavyLeft = true
				break
			}
		}
	}
	var cand []int
	for e, s := range senders {
		r := receivers[e]
		if !S.isVisited[s] || S.isVisited[r] {
			continue
		}
		if heavyLeft && !(S.heavy[s] && S.heavy[r]) {
			continue
		}
		cand = append(cand, e)
	}
	cand = S.filter(cand)
	if len(cand) == 0 {
		return nil, S.starved(fmt.Sprintf("no targets found with %d of %d atoms visited", len(S.visited), n), "middle")
	}

	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, S.dims.NumSpecies)
	}
	outdeg := make([]float64, n)
	edgesOf := make([][]int, n)
	for _, e := range cand {
		s := senders[e]
		probs[s][species[receivers[e]]]++
		outdeg[s]++
		edgesOf[s] = append(edgesOf[s], e)
	}
	total := floats.Sum(outdeg)
	for _, row := range probs {
		floats.Scale(1/total, row)
	}

	var foci []int
	if len(S.visited) >= S.opts.NumNodesForMultifocus {
		for i, d := range outdeg {
			if d > 0 {
				foci = append(foci, i)
			}
		}
		if excess := len(foci) - S.opts.NumNodesForMultifocus; excess > 0 {
			drop := make([]bool, len(foci))
			for _, i := range S.split().Exclude(len(foci), excess) {
				drop[i] = true
			}
			kept := foci[:0:0]
			for i, f := range foci {
				if !drop[i] {
					kept = append(kept, f)
				}
			}
			foci = kept
		}
	} else {
		foci = []int{floats.MaxIdx(outdeg)}
	}

	//best of several random assignments of one target per focus
	var chosen []int
	best := -1
	for t := 0; t < targetTrials; t++ {
		keys := S.split().SplitN(len(foci))
		trial := make([]int, len(foci))
		distinct := make(map[int]bool)
		for i, f := range foci {
			e := edgesOf[f][keys[i].Intn(len(edgesOf[f]))]
			trial[i] = receivers[e]
			distinct[trial[i]] = true
		}
		if len(distinct) > best {
			best = len(distinct)
			chosen = trial
		}
	}

	groups := make([][]int, len(foci))
	for i, f := range foci {
		t := chosen[i]
		groups[i] = []int{t}
		for _, e := range edgesOf[f] {
			r := receivers[e]
			if r != t && species[r] == species[t] && len(groups[i]) < S.dims.MaxTargets {
				groups[i] = append(groups[i], r)
			}
		}
	}
	f, err := Build(S.g, S.visited, foci, probs, groups, false, S.dims)
	if err != nil {
		return nil, err
	}

	var reached []int
	seen := make(map[int]bool)
	for _, t := range chosen {
		if !seen[t] {
			seen[t] = true
			reached = append(reached, t)
		}
	}
	lead := S.split().Intn(len(reached))
	S.visit(reached[lead])
	for i, t := range reached {
		if i != lead {
			S.visit(t)
		}
	}
	return f, nil
}

func (S *Sequencer) last() (*Fragment, error) {
	if len(S.visited) != S.g.Len() {
		panic(fmt.Errorf("%w: %d of %d atoms", ErrIncomplete, len(S.visited), S.g.Len()))
	}
	all := make([]int, S.g.Len())
	for i := range all {
		all[i] = i
	}
	return Build(S.g, all, nil, nil, nil, true, S.dims)
}
