/*
 * scheduler.go, part of fraggrow.
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

// Package generate grows molecules with a Predictor, batching many
// independent generation seeds together.
package generate

import (
	"context"
	"fmt"
	"time"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/batch"
	"github.com/rmera/fraggrow/internal/ctxlog"
	"github.com/rmera/fraggrow/rng"
	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DuplicateEps is the distance from the origin under which a predicted,
// non-zero position is taken as a numerical duplicate and dropped.
const DuplicateEps = 1e-4

// Fragment is a molecule being generated, tagged with the seed it
// started from.
type Fragment struct {
	Seed     int
	Molecule *chem.Graph
}

// Graph returns the molecule generated so far.
func (F *Fragment) Graph() *chem.Graph { return F.Molecule }

// Coords returns the positions of the atoms generated so far.
func (F *Fragment) Coords() *v3.Matrix { return F.Molecule.Coords() }

// Species returns the species of the atoms generated so far.
func (F *Fragment) Species() []int { return F.Molecule.Species() }

// Len returns the number of atoms generated so far.
func (F *Fragment) Len() int { return F.Molecule.Len() }

// Seeds returns n fragments, with seeds 0 to n-1, all starting from init.
func Seeds(init *chem.Graph, n int) []*Fragment {
	ret := make([]*Fragment, n)
	for i := range ret {
		ret[i] = &Fragment{Seed: i, Molecule: init}
	}
	return ret
}

// Result is a finished generation. Stopped is false if the molecule was
// finalized without the predictor asking to stop.
type Result struct {
	Seed     int
	Stopped  bool
	Fragment *Fragment
}

// Options for a Scheduler. A zero MaxAtomsPerStep means no limit other
// than MaxAtoms, and a zero MaxBatches means no limit at all. A zero Budget
// means that each batch takes up to BatchSize molecules, and is padded to a
// budget estimated from the molecules themselves.
type Options struct {
	Table           chem.SpeciesTable
	MaxAtoms        int
	MaxAtomsPerStep int
	MaxBatches      int
	Budget          batch.Budget
	BatchSize       int //only with a zero Budget; DefaultBatchSize if zero
	Temperatures    Temperatures
}

// DefaultBatchSize is the number of molecules per batch when neither a
// budget nor a batch size is given.
const DefaultBatchSize = 8

// Scheduler drives generation seeds to completion.
type Scheduler struct {
	predictor Predictor
	opts      Options
}

// NewScheduler returns a Scheduler using p, or an error of kind
// chem.ErrConfig if the options are invalid.
func NewScheduler(p Predictor, opts Options) (*Scheduler, error) {
	bad := func(format string, a ...any) error {
		return chem.NewError(chem.ErrConfig, fmt.Sprintf(format, a...), "NewScheduler")
	}
	if p == nil {
		return nil, bad("nil predictor")
	}
	if err := opts.Table.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "NewScheduler")
	}
	if opts.MaxAtoms < 1 {
		return nil, bad("max_atoms must be positive, got %d", opts.MaxAtoms)
	}
	if opts.MaxAtomsPerStep < 0 || opts.MaxBatches < 0 {
		return nil, bad("max_atoms_per_step and max_batches can't be negative")
	}
	if opts.MaxAtomsPerStep == 0 {
		opts.MaxAtomsPerStep = opts.MaxAtoms
	}
	if opts.BatchSize < 0 {
		return nil, bad("batch_size can't be negative, got %d", opts.BatchSize)
	}
	if opts.Budget == (batch.Budget{}) {
		if opts.BatchSize == 0 {
			opts.BatchSize = DefaultBatchSize
		}
	} else if err := opts.Budget.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "NewScheduler")
	}
	return &Scheduler{predictor: p, opts: opts}, nil
}

// dynamicBatch packs members into a single batch, padded to a budget
// estimated from their sizes.
func dynamicBatch(members []*Fragment) (*batch.Batch, error) {
	graphs := make([]*chem.Graph, len(members))
	for i, f := range members {
		graphs[i] = f.Molecule
	}
	budget, err := batch.EstimateBudget(graphs, len(graphs))
	if err != nil {
		return nil, chem.ErrDecorate(err, "dynamicBatch")
	}
	bs, err := batch.Dynamic(graphs, budget)
	if err != nil {
		return nil, chem.ErrDecorate(err, "dynamicBatch")
	}
	if len(bs) != 1 {
		return nil, chem.NewError(chem.ErrConfig, fmt.Sprintf("%d molecules packed into %d batches of estimated budget %+v", len(graphs), len(bs), budget), "dynamicBatch")
	}
	return bs[0], nil
}

// AppendPrediction returns g with the atoms of p appended, and its edges
// rebuilt at the cutoff of g. The absolute positions of the targets of all
// foci are taken in order. Those at a distance d from the origin with
// 0 < d < DuplicateEps are dropped, and at most maxNew of the rest are kept.
// If nothing is kept, g itself is returned.
func AppendPrediction(g *chem.Graph, p Prediction, maxNew int, table chem.SpeciesTable) (*chem.Graph, error) {
	var pos []r3.Vec
	var species []int
	for _, f := range p.Foci {
		if f.Index < 0 || f.Index >= g.Len() {
			return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("predicted focus %d for a molecule of %d atoms", f.Index, g.Len()), "AppendPrediction")
		}
		fpos := g.Position(f.Index)
		for _, t := range f.Targets {
			if t.Species < 0 || t.Species >= table.Len() {
				return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("predicted species %d outside a table of %d", t.Species, table.Len()), "AppendPrediction")
			}
			abs := r3.Add(t.Offset, fpos)
			if d := r3.Norm(abs); d > 0 && d < DuplicateEps {
				continue
			}
			pos = append(pos, abs)
			species = append(species, t.Species)
		}
	}
	if maxNew < 0 {
		maxNew = 0
	}
	if len(pos) > maxNew {
		pos = pos[:maxNew]
		species = species[:maxNew]
	}
	if len(pos) == 0 {
		return g, nil
	}
	ng, err := g.Append(v3.FromVecs(pos), species)
	if err != nil {
		return nil, chem.ErrDecorate(err, "AppendPrediction")
	}
	return ng, nil
}

// Run grows every seed until the predictor stops it or it reaches the
// maximum number of atoms. Seeds still growing when the run ends, because
// MaxBatches was reached or ctx was cancelled, are returned unfinished.
// Every seed gives exactly one Result, in the order they finish.
//
// Run returns an error if the predictor fails or returns an invalid
// prediction. If ctx is cancelled, the results are returned along with
// the context error.
func (S *Scheduler) Run(ctx context.Context, key rng.Key, seeds []*Fragment) ([]Result, error) {
	log := ctxlog.FromContext(ctx)
	seen := make(map[int]bool, len(seeds))
	for _, s := range seeds {
		if s == nil || s.Molecule == nil || s.Len() == 0 {
			return nil, chem.NewError(chem.ErrInput, "empty generation seed", "Scheduler.Run")
		}
		if seen[s.Seed] {
			return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("seed %d given twice", s.Seed), "Scheduler.Run")
		}
		seen[s.Seed] = true
	}
	var B *batch.Builder
	if S.opts.Budget != (batch.Budget{}) {
		var err error
		B, err = batch.NewBuilder(S.opts.Budget)
		if err != nil {
			return nil, chem.ErrDecorate(err, "Scheduler.Run")
		}
	}
	start := time.Now()
	queue := append([]*Fragment(nil), seeds...)
	results := make([]Result, 0, len(seeds))
	finish := func(f *Fragment, stopped bool) {
		results = append(results, Result{Seed: f.Seed, Stopped: stopped, Fragment: f})
	}
	batches := 0
	for len(results) < len(seeds) && len(queue) > 0 {
		if ctx.Err() != nil || (S.opts.MaxBatches > 0 && batches >= S.opts.MaxBatches) {
			break
		}
		log.Debug("Building batch.", "queued", len(queue), "finished", len(results))
		var members []*Fragment
		var b *batch.Batch
		if B == nil {
			n := min(S.opts.BatchSize, len(queue))
			members, queue = queue[:n:n], queue[n:]
			var err error
			if b, err = dynamicBatch(members); err != nil {
				return nil, chem.ErrDecorate(err, "Scheduler.Run")
			}
		} else {
			for len(queue) > 0 {
				f := queue[0]
				if !B.FitsEmpty(f.Molecule) {
					log.Warn("Molecule doesn't fit the padding budget, finishing it.", "seed", f.Seed, "atoms", f.Len(), "edges", f.Molecule.NEdges())
					queue = queue[1:]
					finish(f, false)
					continue
				}
				if !B.Fits(f.Molecule) {
					break
				}
				if err := B.Add(f.Molecule); err != nil {
					return nil, chem.ErrDecorate(err, "Scheduler.Run")
				}
				members = append(members, f)
				queue = queue[1:]
			}
			if len(members) == 0 {
				continue
			}
			b = B.Build()
		}
		var k rng.Key
		key, k = key.Split()
		preds, err := S.predictor.Predict(ctx, k, b, S.opts.Temperatures)
		if err != nil {
			return nil, fmt.Errorf("generate: prediction for batch %d: %w", batches, err)
		}
		if len(preds) != len(members) {
			return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("%d predictions for a batch of %d molecules", len(preds), len(members)), "Scheduler.Run")
		}
		batches++
		for i, f := range members {
			maxNew := min(S.opts.MaxAtomsPerStep, S.opts.MaxAtoms-f.Len())
			g, err := AppendPrediction(f.Molecule, preds[i], maxNew, S.opts.Table)
			if err != nil {
				return nil, chem.ErrDecorate(err, "Scheduler.Run")
			}
			if g == f.Molecule {
				log.Debug("No atoms added.", "seed", f.Seed, "atoms", f.Len())
			}
			grown := &Fragment{Seed: f.Seed, Molecule: g}
			if preds[i].Stop || g.Len() >= S.opts.MaxAtoms {
				finish(grown, preds[i].Stop)
				log.Debug("Molecule finished.", "seed", f.Seed, "formula", S.opts.Table.Formula(g.Species()), "stop", preds[i].Stop)
				continue
			}
			queue = append(queue, grown)
		}
	}
	for _, f := range queue {
		log.Debug("Seed unfinished.", "seed", f.Seed, "atoms", f.Len())
		finish(f, false)
	}
	elapsed := time.Since(start)
	log.Info("Generation finished.", "molecules", len(results), "batches", batches, "elapsed", elapsed)
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// OutputName returns the name of the XYZ file for a generated molecule.
func OutputName(initName string, seed int, stopped bool) string {
	if stopped {
		return fmt.Sprintf("%s_seed=%d.xyz", initName, seed)
	}
	return fmt.Sprintf("%s_seed=%d_no_stop.xyz", initName, seed)
}
