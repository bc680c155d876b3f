/*
 * plot.go, part of fraggrow.
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

// Package chemplot draws plots of fragment sequences and generation runs.
// The format of each plot is taken from the extension of its file name.
package chemplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/generate"
	"github.com/rmera/fraggrow/histo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Size of the saved plots.
var (
	Width  = 5 * vg.Inch
	Height = 4 * vg.Inch
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

// Sizes plots the histogram of the number of atoms of the generated
// molecules, with the stopped and unfinished ones stacked.
func Sizes(results []generate.Result, title, filename string) error {
	if len(results) == 0 {
		return fmt.Errorf("chemplot.Sizes: no molecules to plot")
	}
	lo, hi := math.MaxInt, 0
	for _, r := range results {
		lo = min(lo, r.Fragment.Len())
		hi = max(hi, r.Fragment.Len())
	}
	stopped := histo.NewData(histo.IntDividers(lo, hi), nil)
	unfinished := histo.NewData(histo.IntDividers(lo, hi), nil)
	for _, r := range results {
		if r.Stopped {
			stopped.AddData(float64(r.Fragment.Len()))
		} else {
			unfinished.AddData(float64(r.Fragment.Len()))
		}
	}
	p := basicPlot(title, "Atoms", "Molecules")
	width := Width / vg.Length(2*(hi-lo+1)+4)
	var below *plotter.BarChart
	for i, h := range []*histo.Data{stopped, unfinished} {
		bars, err := plotter.NewBarChart(plotter.Values(h.View()), width)
		if err != nil {
			return fmt.Errorf("chemplot.Sizes: %w", err)
		}
		bars.XMin = float64(lo)
		bars.LineStyle.Width = 0
		r, g, b := colors(i, 2)
		bars.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		if below != nil {
			bars.StackOn(below)
		}
		below = bars
		p.Add(bars)
		p.Legend.Add([]string{"stopped", "unfinished"}[i], bars)
	}
	p.Legend.Top = true
	if err := p.Save(Width, Height, filename); err != nil {
		return fmt.Errorf("chemplot.Sizes: %w", err)
	}
	return nil
}

// Growth plots the number of atoms, foci and targets of each fragment
// of a sequence against its position in the sequence.
func Growth(frags []*fragments.Fragment, title, filename string) error {
	if len(frags) == 0 {
		return fmt.Errorf("chemplot.Growth: no fragments to plot")
	}
	atoms := make(plotter.XYs, len(frags))
	foci := make(plotter.XYs, len(frags))
	targets := make(plotter.XYs, len(frags))
	for i, f := range frags {
		x := float64(i)
		atoms[i] = plotter.XY{X: x, Y: float64(f.Len())}
		foci[i] = plotter.XY{X: x, Y: float64(len(f.FocusIndices()))}
		t := 0
		for k := range f.TargetPositionsMask {
			t += f.NumTargets(k)
		}
		targets[i] = plotter.XY{X: x, Y: float64(t)}
	}
	p := basicPlot(title, "Fragment", "Count")
	names := []string{"atoms", "foci", "targets"}
	for i, data := range []plotter.XYs{atoms, foci, targets} {
		l, s, err := plotter.NewLinePoints(data)
		if err != nil {
			return fmt.Errorf("chemplot.Growth: %w", err)
		}
		r, g, b := colors(i, len(names))
		l.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		s.Color = l.Color
		s.Shape, err = getShape(i)
		if err != nil {
			return fmt.Errorf("chemplot.Growth: %w", err)
		}
		p.Add(l, s)
		p.Legend.Add(names[i], l, s)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	if err := p.Save(Width, Height, filename); err != nil {
		return fmt.Errorf("chemplot.Growth: %w", err)
	}
	return nil
}
