/*
 * summary.go, part of fraggrow.
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

// Package chemstat computes summary statistics of fragment sequences
// and generation runs.
package chemstat

import (
	"fmt"
	"math"
	"sort"
	"strings"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/generate"
	"github.com/rmera/fraggrow/histo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Sizes holds the distribution of a count, such as the atoms per molecule.
type Sizes struct {
	Mean, Std float64
	Min, Max  int
	Histo     *histo.Data //one bin per integer from Min to Max
}

// NewSizes returns the distribution of the given counts. With no counts,
// it returns nil.
func NewSizes(counts []int) *Sizes {
	if len(counts) == 0 {
		return nil
	}
	x := make([]float64, len(counts))
	for i, v := range counts {
		x[i] = float64(v)
	}
	S := &Sizes{Min: int(floats.Min(x)), Max: int(floats.Max(x))}
	S.Mean, S.Std = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		S.Std = 0
	}
	S.Histo = histo.NewData(histo.IntDividers(S.Min, S.Max), x)
	return S
}

func (S *Sizes) String() string {
	if S == nil {
		return "no data"
	}
	return fmt.Sprintf("%.2f +/- %.2f (min %d, max %d)", S.Mean, S.Std, S.Min, S.Max)
}

// Spread holds the distribution of a real-valued quantity.
type Spread struct {
	N         int
	Mean, Std float64
	Min, Max  float64
}

// NewSpread returns the distribution of x, or nil if x is empty.
func NewSpread(x []float64) *Spread {
	if len(x) == 0 {
		return nil
	}
	S := &Spread{N: len(x), Min: floats.Min(x), Max: floats.Max(x)}
	S.Mean, S.Std = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		S.Std = 0
	}
	return S
}

func (S *Spread) String() string {
	if S == nil {
		return "no data"
	}
	return fmt.Sprintf("%.2f +/- %.2f (min %.2f, max %.2f, n %d)", S.Mean, S.Std, S.Min, S.Max, S.N)
}

// TargetGeometry returns, in degrees, the angles between each valid target
// of a fragment and the bonds of its focus, and the unsigned dihedrals
// that each target makes with the bonded pairs behind its focus.
func TargetGeometry(frags []*fragments.Fragment) (angles, dihedrals []float64) {
	for _, f := range frags {
		g := f.Graph()
		for slot, focus := range f.FocusIndices() {
			if slot >= len(f.TargetPositions) {
				break
			}
			fpos := g.Position(focus)
			for t, offset := range f.TargetPositions[slot] {
				if !f.TargetPositionsMask[slot][t] {
					continue
				}
				target := r3.Add(fpos, offset)
				for _, n := range g.Neighbors(focus) {
					npos := g.Position(n)
					angles = append(angles, chem.Rad2Deg(chem.Angle(r3.Sub(npos, fpos), offset)))
					for _, m := range g.Neighbors(n) {
						if m == focus {
							continue
						}
						d := chem.Dihedral(g.Position(m), npos, fpos, target)
						dihedrals = append(dihedrals, math.Abs(chem.Rad2Deg(d)))
					}
				}
			}
		}
	}
	return angles, dihedrals
}

// Generation summarizes the results of a generation run.
type Generation struct {
	Molecules int
	Stopped   int
	Atoms     *Sizes
	Formulas  map[string]int
}

// Summarize returns the summary of a generation run.
func Summarize(results []generate.Result, table chem.SpeciesTable) *Generation {
	G := &Generation{Molecules: len(results), Formulas: make(map[string]int)}
	atoms := make([]int, 0, len(results))
	for _, r := range results {
		if r.Stopped {
			G.Stopped++
		}
		atoms = append(atoms, r.Fragment.Len())
		G.Formulas[table.Formula(r.Fragment.Species())]++
	}
	G.Atoms = NewSizes(atoms)
	return G
}

// StopRate returns the fraction of molecules the predictor stopped.
func (G *Generation) StopRate() float64 {
	if G.Molecules == 0 {
		return 0
	}
	return float64(G.Stopped) / float64(G.Molecules)
}

// TopFormulas returns the n most common formulas, most common first, ties
// broken alphabetically.
func (G *Generation) TopFormulas(n int) []string {
	f := make([]string, 0, len(G.Formulas))
	for k := range G.Formulas {
		f = append(f, k)
	}
	sort.Slice(f, func(i, j int) bool {
		if G.Formulas[f[i]] != G.Formulas[f[j]] {
			return G.Formulas[f[i]] > G.Formulas[f[j]]
		}
		return f[i] < f[j]
	})
	if n < len(f) {
		f = f[:n]
	}
	return f
}

func (G *Generation) String() string {
	top := G.TopFormulas(5)
	for i, f := range top {
		top[i] = fmt.Sprintf("%s (%d)", f, G.Formulas[f])
	}
	return fmt.Sprintf("%d molecules, %d stopped (%.1f%%)\natoms: %s\nformulas: %s",
		G.Molecules, G.Stopped, 100*G.StopRate(), G.Atoms, strings.Join(top, ", "))
}

// Sequence summarizes a stream of fragments.
type Sequence struct {
	Fragments int
	Stops     int //terminal fragments, one per complete sequence
	Atoms     *Sizes
	Foci      *Sizes
	Targets   *Sizes //valid targets over all slots of a fragment
	Angles    *Spread
	Dihedrals *Spread
}

// SummarizeFragments returns the summary of the given fragments.
func SummarizeFragments(frags []*fragments.Fragment) *Sequence {
	S := &Sequence{Fragments: len(frags)}
	var atoms, foci, targets []int
	for _, f := range frags {
		if f.Stop {
			S.Stops++
		}
		atoms = append(atoms, f.Len())
		foci = append(foci, len(f.FocusIndices()))
		t := 0
		for i := range f.TargetPositionsMask {
			t += f.NumTargets(i)
		}
		targets = append(targets, t)
	}
	S.Atoms = NewSizes(atoms)
	S.Foci = NewSizes(foci)
	S.Targets = NewSizes(targets)
	angles, dihedrals := TargetGeometry(frags)
	S.Angles = NewSpread(angles)
	S.Dihedrals = NewSpread(dihedrals)
	return S
}

func (S *Sequence) String() string {
	return fmt.Sprintf("%d fragments, %d stop fragments\natoms: %s\nfoci: %s\ntargets: %s\nfocus-target angles (deg): %s\nfocus-target dihedrals (deg): %s",
		S.Fragments, S.Stops, S.Atoms, S.Foci, S.Targets, S.Angles, S.Dihedrals)
}
