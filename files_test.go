/*
 * files_test.go, part of fraggrow.
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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const water2 = `3
water
O   0.000000   0.000000   0.117300
H   0.000000   0.757200  -0.469200
1   0.000000  -0.757200  -0.469200

2
dihydrogen
H 0 0 0
H 0 0 0.74
`

func TestXYZReadAll(Te *testing.T) {
	gs, comments, err := XYZReadAll(strings.NewReader(water2), DefaultSpecies(), 1.2)
	require.NoError(Te, err)
	require.Len(Te, gs, 2)
	assert.Equal(Te, []string{"water", "dihydrogen"}, comments)
	assert.Equal(Te, []int{3, 0, 0}, gs[0].Species())
	assert.Equal(Te, 4, gs[0].NEdges(), "two O-H bonds, both directions")
	assert.Equal(Te, 2, gs[1].NEdges())
}

func TestXYZRoundTrip(Te *testing.T) {
	table := DefaultSpecies()
	gs, _, err := XYZReadAll(strings.NewReader(water2), table, 1.2)
	require.NoError(Te, err)
	name := filepath.Join(Te.TempDir(), "water.xyz")
	require.NoError(Te, XYZFileWrite(name, gs[0], table, "round trip"))
	back, comments, err := XYZFileRead(name, table, 1.2)
	require.NoError(Te, err)
	require.Len(Te, back, 1)
	assert.Equal(Te, "round trip", comments[0])
	assert.Equal(Te, gs[0].Species(), back[0].Species())
	for i := 0; i < gs[0].Len(); i++ {
		a, b := gs[0].Position(i), back[0].Position(i)
		assert.InDelta(Te, a.X, b.X, 1e-6)
		assert.InDelta(Te, a.Y, b.Y, 1e-6)
		assert.InDelta(Te, a.Z, b.Z, 1e-6)
	}
}

func TestXYZErrors(Te *testing.T) {
	table := DefaultSpecies()
	_, _, err := XYZReadAll(strings.NewReader("2\nbad\nH 0 0 0\n"), table, 1)
	assert.True(Te, errors.Is(err, ErrInput), "truncated file")
	_, _, err = XYZReadAll(strings.NewReader("1\nbad\nFe 0 0 0\n"), table, 1)
	assert.True(Te, errors.Is(err, ErrConfig), "species not in table")
	_, _, err = XYZReadAll(strings.NewReader("x\n"), table, 1)
	assert.True(Te, errors.Is(err, ErrInput))

	gs, _, err := XYZReadAll(strings.NewReader("\n\n"), table, 1)
	require.NoError(Te, err)
	assert.Empty(Te, gs)
}
