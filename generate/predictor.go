/*
 * predictor.go, part of fraggrow.
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

package generate

import (
	"context"
	"fmt"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/batch"
	"github.com/rmera/fraggrow/rng"
	"gonum.org/v1/gonum/spatial/r3"
)

// Temperatures are the inverse sampling temperatures passed to a Predictor.
type Temperatures struct {
	FocusAndAtomType float64 `yaml:"focus_and_atom_type"`
	Position         float64 `yaml:"position"`
}

// DefaultTemperatures samples at temperature 1.
func DefaultTemperatures() Temperatures {
	return Temperatures{FocusAndAtomType: 1, Position: 1}
}

// Target is one predicted atom.
type Target struct {
	Offset  r3.Vec //relative to the focus
	Species int
}

// FocusPrediction holds the atoms predicted around one focus.
type FocusPrediction struct {
	Index   int //atom of the graph, not of the batch
	Targets []Target
}

// Prediction is what a Predictor returns for one graph.
type Prediction struct {
	Stop bool
	Foci []FocusPrediction
}

// Predictor predicts how to grow each real graph of a batch. It must
// return one Prediction per real graph, in batch order.
type Predictor interface {
	Predict(ctx context.Context, key rng.Key, b *batch.Batch, t Temperatures) ([]Prediction, error)
}

// PredictorFunc allows a plain function to be used as a Predictor.
type PredictorFunc func(ctx context.Context, key rng.Key, b *batch.Batch, t Temperatures) ([]Prediction, error)

func (f PredictorFunc) Predict(ctx context.Context, key rng.Key, b *batch.Batch, t Temperatures) ([]Prediction, error) {
	return f(ctx, key, b, t)
}

// RandomPredictor is a baseline Predictor with no model behind it. For each
// graph it picks a uniform focus, and places one atom of a uniformly chosen
// species in a random direction, at the sum of the covalent radii of the
// new atom and the focus. It stops with probability StopProbability.
// The temperatures are ignored.
type RandomPredictor struct {
	Table           chem.SpeciesTable
	Species         []int //species to choose from; all the table if empty
	StopProbability float64
}

func (R *RandomPredictor) Predict(ctx context.Context, key rng.Key, b *batch.Batch, t Temperatures) ([]Prediction, error) {
	if R.StopProbability < 0 || R.StopProbability > 1 {
		return nil, chem.NewError(chem.ErrConfig, fmt.Sprintf("stop probability %g is not in [0,1]", R.StopProbability), "RandomPredictor.Predict")
	}
	species := R.Species
	if len(species) == 0 {
		species = make([]int, R.Table.Len())
		for i := range species {
			species[i] = i
		}
	}
	graphs := b.Unbatch()
	ret := make([]Prediction, len(graphs))
	keys := key.SplitN(len(graphs))
	for i, g := range graphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k := keys[i].SplitN(4)
		focus := k[1].Intn(g.Len())
		s := k[2].Choice(species)
		if s < 0 || s >= R.Table.Len() {
			return nil, chem.NewError(chem.ErrConfig, fmt.Sprintf("species %d outside a table of %d", s, R.Table.Len()), "RandomPredictor.Predict")
		}
		bond := chem.CovalentRadius(R.Table.AtomicNumber(s)) + chem.CovalentRadius(R.Table.AtomicNumber(g.Species()[focus]))
		ret[i] = Prediction{
			Stop: k[0].Bernoulli(R.StopProbability),
			Foci: []FocusPrediction{{
				Index:   focus,
				Targets: []Target{{Offset: r3.Scale(bond, k[3].UnitVec()), Species: s}},
			}},
		}
	}
	return ret, nil
}
