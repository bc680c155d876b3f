/*
 * atomicdata.go, part of fraggrow.
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
	"strings"
)

// Element symbols, indexed by atomic number.
var symbols = [...]string{"",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
	"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// Periodic table groups, indexed by atomic number. f-block elements
// other than La and Ac have group 0.
var groups = [...]int{0,
	1, 18,
	1, 2, 13, 14, 15, 16, 17, 18,
	1, 2, 13, 14, 15, 16, 17, 18,
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
	1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
	1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
}

// A map for assigning covalent radii to elements
// Values from Cordero et al., 2008 (DOI:10.1039/B801115J)
// Note that just common "bio-elements" are present
var symbolCovrad = map[string]float64{
	"H":  0.31,
	"C":  0.76, //the sp3 radius
	"O":  0.66,
	"N":  0.71,
	"P":  1.07,
	"S":  1.05,
	"Se": 1.2,
	"K":  2.03,
	"Ca": 1.76,
	"Mg": 1.41,
	"Cl": 1.02,
	"Na": 1.66,
	"Cu": 1.32,
	"Zn": 1.22,
	"Co": 1.5,  // hs
	"Fe": 1.52, //hs
	"Mn": 1.61, //hs
	"Cr": 1.39,
	"Si": 1.11,
	"Be": 0.96,
	"F":  0.57,
	"Br": 1.2,
	"I":  1.39,
}

// defaultCovrad is used for elements missing from symbolCovrad.
const defaultCovrad = 0.75

// Symbol returns the element symbol for the atomic number z, or ""
// if z is not a known element.
func Symbol(z int) string {
	if z <= 0 || z >= len(symbols) {
		return ""
	}
	return symbols[z]
}

// AtomicNumber returns the atomic number of the element with the given
// symbol. The symbol is case-insensitive.
func AtomicNumber(symbol string) (int, error) {
	s := strings.TrimSpace(symbol)
	if len(s) > 0 {
		s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	}
	for z, v := range symbols {
		if z > 0 && v == s {
			return z, nil
		}
	}
	return 0, NewError(ErrConfig, fmt.Sprintf("unknown element symbol %q", symbol), "AtomicNumber")
}

// Group returns the periodic table group of the atomic number z, or 0
// if it has none (f-block) or is unknown.
func Group(z int) int {
	if z <= 0 || z >= len(groups) {
		return 0
	}
	return groups[z]
}

// CovalentRadius returns the covalent radius, in A, of the element
// with atomic number z.
func CovalentRadius(z int) float64 {
	if r, ok := symbolCovrad[Symbol(z)]; ok {
		return r
	}
	return defaultCovrad
}

// SpeciesTable is the ordered list of atomic numbers a model knows about.
// The position of an atomic number in the table is its species index.
type SpeciesTable []int

// DefaultSpecies returns the QM9 species table: H, C, N, O, F.
func DefaultSpecies() SpeciesTable {
	return SpeciesTable{1, 6, 7, 8, 9}
}

// Len returns the number of species in the table.
func (S SpeciesTable) Len() int {
	return len(S)
}

// Validate checks that the table is non-empty, strictly increasing and
// contains only known elements.
func (S SpeciesTable) Validate() error {
	if len(S) == 0 {
		return NewError(ErrConfig, "empty species table", "SpeciesTable.Validate")
	}
	for i, z := range S {
		if Symbol(z) == "" {
			return NewError(ErrConfig, fmt.Sprintf("unknown atomic number %d in species table", z), "SpeciesTable.Validate")
		}
		if i > 0 && S[i-1] >= z {
			return NewError(ErrConfig, "species table must be strictly increasing", "SpeciesTable.Validate")
		}
	}
	return nil
}

// Species returns the species index for the atomic number z.
func (S SpeciesTable) Species(z int) (int, error) {
	for i, v := range S {
		if v == z {
			return i, nil
		}
	}
	return -1, NewError(ErrConfig, fmt.Sprintf("atomic number %d not in species table %v", z, []int(S)), "SpeciesTable.Species")
}

// SpeciesFromSymbol returns the species index for an element symbol.
func (S SpeciesTable) SpeciesFromSymbol(symbol string) (int, error) {
	z, err := AtomicNumber(symbol)
	if err != nil {
		return -1, errDecorate(err, "SpeciesTable.SpeciesFromSymbol")
	}
	return S.Species(z)
}

// AtomicNumber returns the atomic number of the species s. Panics
// if s is out of range.
func (S SpeciesTable) AtomicNumber(s int) int {
	if s < 0 || s >= len(S) {
		panic(ErrSpeciesOutOfRange)
	}
	return S[s]
}

// Symbol returns the element symbol of the species s.
func (S SpeciesTable) Symbol(s int) string {
	return Symbol(S.AtomicNumber(s))
}

// IsHeavy returns true if species s is not hydrogen.
func (S SpeciesTable) IsHeavy(s int) bool {
	return S.AtomicNumber(s) != 1
}

// Group returns the periodic group of species s.
func (S SpeciesTable) Group(s int) int {
	return Group(S.AtomicNumber(s))
}

// IsTransitionGroup is true if species s belongs to one of the periodic
// groups 2 to 11.
func (S SpeciesTable) IsTransitionGroup(s int) bool {
	g := S.Group(s)
	return g >= 2 && g <= 11
}

// Formula returns a Hill-ordered chemical formula for the given species.
func (S SpeciesTable) Formula(species []int) string {
	counts := make([]int, len(S))
	for _, s := range species {
		counts[s]++
	}
	var b strings.Builder
	write := func(s int) {
		if counts[s] == 0 {
			return
		}
		b.WriteString(S.Symbol(s))
		if counts[s] > 1 {
			fmt.Fprintf(&b, "%d", counts[s])
		}
		counts[s] = 0
	}
	carbon, _ := S.Species(6)
	hydrogen, _ := S.Species(1)
	if carbon >= 0 && counts[carbon] > 0 {
		write(carbon)
		if hydrogen >= 0 {
			write(hydrogen)
		}
	}
	//Everything else, alphabetically.
	rest := make([]int, 0, len(S))
	for s := range S {
		if counts[s] > 0 {
			rest = append(rest, s)
		}
	}
	for i := 1; i < len(rest); i++ {
		for j := i; j > 0 && S.Symbol(rest[j]) < S.Symbol(rest[j-1]); j-- {
			rest[j], rest[j-1] = rest[j-1], rest[j]
		}
	}
	for _, s := range rest {
		write(s)
	}
	return b.String()
}
