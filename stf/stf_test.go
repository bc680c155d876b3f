/*
 * stf_test.go, part of fraggrow.
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
 */

package stf

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/rng"
	v3 "github.com/rmera/fraggrow/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sequence(Te *testing.T, opts fragments.Options) ([]*fragments.Fragment, Header) {
	Te.Helper()
	pos := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1.09, Y: 0, Z: 0}, {X: -0.36, Y: 1.03, Z: 0}, {X: -0.36, Y: -0.51, Z: 0.89}, {X: -0.36, Y: -0.51, Z: -0.89}}
	g, err := chem.NewGraph(v3.FromVecs(pos), []int{1, 0, 0, 0, 0}, 1.2)
	require.NoError(Te, err)
	frags, err := fragments.Sequence(rng.New(1), g, chem.DefaultSpecies(), opts)
	require.NoError(Te, err)
	h := Header{Prec: 4, Table: chem.DefaultSpecies(), Cutoff: 1.2, Dims: opts.Dims(chem.DefaultSpecies())}
	return frags, h
}

func sameFragment(Te *testing.T, want, got *fragments.Fragment) {
	Te.Helper()
	assert.Equal(Te, want.Species(), got.Species())
	assert.Equal(Te, want.Stop, got.Stop)
	assert.Equal(Te, want.FocusMask, got.FocusMask)
	assert.Equal(Te, want.FocusAndTargetSpeciesProbs, got.FocusAndTargetSpeciesProbs)
	assert.Equal(Te, want.TargetSpecies, got.TargetSpecies)
	assert.Equal(Te, want.TargetPositionsMask, got.TargetPositionsMask)
	for i, v := range want.Coords().Vecs() {
		assert.InDelta(Te, 0, r3.Norm(r3.Sub(v, got.Molecule.Position(i))), 1e-4)
	}
	for k := range want.TargetPositions {
		for j, v := range want.TargetPositions[k] {
			assert.InDelta(Te, 0, r3.Norm(r3.Sub(v, got.TargetPositions[k][j])), 1e-4)
		}
	}
}

func TestSTFRoundTrip(Te *testing.T) {
	opts := fragments.DefaultOptions()
	opts.MaxTargetsPerGraph = 4
	frags, h := sequence(Te, opts)
	h.Extra = map[string]string{"source": "methane"}

	var buf bytes.Buffer
	W, err := NewWriter(&buf, h)
	require.NoError(Te, err)
	for _, f := range frags {
		require.NoError(Te, W.Write(f))
	}
	require.NoError(Te, W.Close())
	assert.Error(Te, W.Write(frags[0]), "closed writers can't write")

	R, err := NewReader(&buf)
	require.NoError(Te, err)
	defer R.Close()
	got := R.Header()
	assert.Equal(Te, h.Table, got.Table)
	assert.Equal(Te, h.Dims, got.Dims)
	assert.Equal(Te, "methane", got.Extra["source"])
	for _, want := range frags {
		f, err := R.Next()
		require.NoError(Te, err)
		sameFragment(Te, want, f)
	}
	_, err = R.Next()
	assert.Equal(Te, io.EOF, err)
}

func TestSTFFile(Te *testing.T) {
	frags, h := sequence(Te, fragments.DefaultOptions())
	name := filepath.Join(Te.TempDir(), "methane.stf")
	W, err := Create(name, h, 3)
	require.NoError(Te, err)
	for _, f := range frags {
		require.NoError(Te, W.Write(f))
	}
	require.NoError(Te, W.Close())

	R, err := Open(name)
	require.NoError(Te, err)
	defer R.Close()
	n := 0
	for {
		f, err := R.Next()
		if err == io.EOF {
			break
		}
		require.NoError(Te, err)
		sameFragment(Te, frags[n], f)
		n++
	}
	assert.Equal(Te, len(frags), n)

	_, err = Open(filepath.Join(Te.TempDir(), "missing.stf"))
	assert.Error(Te, err)
}

func compressed(Te *testing.T, s string) *bytes.Buffer {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(Te, err)
	_, err = io.Copy(enc, strings.NewReader(s))
	require.NoError(Te, err)
	require.NoError(Te, enc.Close())
	return &buf
}

func TestSTFErrors(Te *testing.T) {
	_, err := NewReader(compressed(Te, "prec=2\nspecies=1,6\n"))
	assert.Error(Te, err, "unterminated header")
	_, err = NewReader(compressed(Te, "prec=x\nspecies=1\ncutoff=1\nfoci=1\ntargets=1\n**\n"))
	assert.Error(Te, err)

	R, err := NewReader(compressed(Te, "prec=2\nspecies=1,6\ncutoff=1.5\nfoci=1\ntargets=1\n**\n> 1 0\n0 0 0 0 1\nq 1\n*\n"))
	require.NoError(Te, err)
	_, err = R.Next()
	assert.Error(Te, err)

	_, err = NewWriter(io.Discard, Header{Table: chem.DefaultSpecies()})
	assert.Error(Te, err, "a header needs a cutoff and target sizes")
}
