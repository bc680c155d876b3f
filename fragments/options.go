/*
 * options.go, part of fraggrow.
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
)

// Mode selects how candidate targets are filtered by distance.
type Mode string

const (
	NearestNeighbors Mode = "nn"     //neighbors within NNTolerance of the closest one
	Radius           Mode = "radius" //neighbors closer than MaxRadius
)

// Options control the fragmentation of a molecule. A zero NNTolerance or
// MaxRadius means the parameter is not set.
type Options struct {
	Mode                  Mode
	NNTolerance           float64
	MaxRadius             float64
	NumNodesForMultifocus int
	MaxTargetsPerGraph    int
	HeavyFirst            bool
	TransitionFirst       bool
}

// DefaultOptions returns nearest-neighbor options with a single focus
// and a single target per step.
func DefaultOptions() Options {
	return Options{
		Mode:                  NearestNeighbors,
		NNTolerance:           0.01,
		NumNodesForMultifocus: 1,
		MaxTargetsPerGraph:    1,
	}
}

// Validate returns an error of kind chem.ErrConfig if the options
// can't be used.
func (O Options) Validate() error {
	bad := func(format string, a ...any) error {
		return chem.NewError(chem.ErrConfig, fmt.Sprintf(format, a...), "fragments.Options.Validate")
	}
	switch O.Mode {
	case NearestNeighbors:
		if O.NNTolerance <= 0 {
			return bad("mode %q requires a positive nn_tolerance", O.Mode)
		}
		if O.MaxRadius != 0 {
			return bad("max_radius can't be set in mode %q", O.Mode)
		}
	case Radius:
		if O.MaxRadius <= 0 {
			return bad("mode %q requires a positive max_radius", O.Mode)
		}
		if O.NNTolerance != 0 {
			return bad("nn_tolerance can't be set in mode %q", O.Mode)
		}
	default:
		return bad("invalid mode %q, use %q or %q", O.Mode, NearestNeighbors, Radius)
	}
	if O.NumNodesForMultifocus < 1 {
		return bad("num_nodes_for_multifocus must be at least 1, got %d", O.NumNodesForMultifocus)
	}
	if O.MaxTargetsPerGraph < 1 {
		return bad("max_targets_per_graph must be at least 1, got %d", O.MaxTargetsPerGraph)
	}
	return nil
}

// Dims returns the annotation sizes of the fragments built with these
// options and the given species table.
func (O Options) Dims(table chem.SpeciesTable) Dims {
	return Dims{NumSpecies: table.Len(), NumFoci: O.NumNodesForMultifocus, MaxTargets: O.MaxTargetsPerGraph}
}

// keep reports whether an edge at distance d survives the distance filter,
// given the shortest candidate distance closest.
func (O Options) keep(d, closest float64) bool {
	if O.Mode == Radius {
		return d < O.MaxRadius
	}
	return d < closest+O.NNTolerance
}
