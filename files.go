/*
 * files.go, part of fraggrow.
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/fraggrow/v3"
)

// XYZFileRead reads all the molecules in the (possibly multi-frame) xyz file
// xyzname, and returns their graphs built with the given cutoff, along with
// the comment line of each molecule.
func XYZFileRead(xyzname string, table SpeciesTable, cutoff float64) ([]*Graph, []string, error) {
	xyzfile, err := os.Open(xyzname)
	if err != nil {
		return nil, nil, fmt.Errorf("XYZFileRead: %w", err)
	}
	defer xyzfile.Close()
	gs, comments, err := XYZReadAll(xyzfile, table, cutoff)
	if err != nil {
		return nil, nil, errDecorate(err, "XYZFileRead "+xyzname)
	}
	return gs, comments, nil
}

// XYZReadAll reads every molecule in r until EOF.
func XYZReadAll(r io.Reader, table SpeciesTable, cutoff float64) ([]*Graph, []string, error) {
	xyz := bufio.NewReader(r)
	var gs []*Graph
	var comments []string
	for {
		g, comment, err := XYZRead(xyz, table, cutoff)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, errDecorate(err, fmt.Sprintf("XYZReadAll (molecule %d)", len(gs)))
		}
		gs = append(gs, g)
		comments = append(comments, comment)
	}
	return gs, comments, nil
}

// XYZRead reads one molecule from xyz. It returns io.EOF, unwrapped, if there
// was nothing left to read. The element column can hold either symbols or
// atomic numbers.
func XYZRead(xyz *bufio.Reader, table SpeciesTable, cutoff float64) (*Graph, string, error) {
	var line string
	var err error
	//skip blank lines between frames
	for {
		line, err = xyz.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			break
		}
		if err != nil {
			return nil, "", io.EOF
		}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || natoms < 0 {
		return nil, "", NewError(ErrInput, fmt.Sprintf("ill formatted XYZ atom count %q", strings.TrimSpace(line)), "XYZRead")
	}
	comment, err := xyz.ReadString('\n')
	if err != nil && natoms > 0 {
		return nil, "", NewError(ErrInput, "truncated XYZ file", "XYZRead")
	}
	coords := make([]float64, natoms*3)
	species := make([]int, natoms)
	for i := 0; i < natoms; i++ {
		line, err = xyz.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return nil, "", NewError(ErrInput, fmt.Sprintf("truncated XYZ file at atom %d", i), "XYZRead")
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, "", NewError(ErrInput, fmt.Sprintf("line for atom %d ill formed", i), "XYZRead")
		}
		z, err := strconv.Atoi(fields[0])
		if err != nil {
			z, err = AtomicNumber(fields[0])
			if err != nil {
				return nil, "", errDecorate(err, "XYZRead")
			}
		}
		species[i], err = table.Species(z)
		if err != nil {
			return nil, "", errDecorate(err, "XYZRead")
		}
		for j := 0; j < 3; j++ {
			coords[i*3+j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, "", NewError(ErrInput, fmt.Sprintf("bad coordinate %q for atom %d", fields[j+1], i), "XYZRead")
			}
		}
	}
	c, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, "", errDecorate(err, "XYZRead")
	}
	g, err := NewGraph(c, species, cutoff)
	if err != nil {
		return nil, "", errDecorate(err, "XYZRead")
	}
	return g, strings.TrimRight(comment, "\r\n"), nil
}

// XYZWrite writes the atoms of mol to out in XYZ format.
func XYZWrite(out io.Writer, mol Coorder, table SpeciesTable, comment string) error {
	coords := mol.Coords()
	species := mol.Species()
	if coords.NVecs() != len(species) {
		panic(ErrBadGraph)
	}
	if _, err := fmt.Fprintf(out, "%-4d\n%s\n", len(species), strings.ReplaceAll(comment, "\n", " ")); err != nil {
		return fmt.Errorf("XYZWrite: %w", err)
	}
	for i, s := range species {
		c := coords.Vec(i)
		_, err := fmt.Fprintf(out, "%-2s  %12.6f %12.6f %12.6f\n", table.Symbol(s), c.X, c.Y, c.Z)
		if err != nil {
			return fmt.Errorf("XYZWrite: %w", err)
		}
	}
	return nil
}

// XYZFileWrite writes mol to the file xyzname, which will be created
// or overwritten.
func XYZFileWrite(xyzname string, mol Coorder, table SpeciesTable, comment string) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return fmt.Errorf("XYZFileWrite: %w", err)
	}
	if err := XYZWrite(out, mol, table, comment); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
