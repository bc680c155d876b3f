/*
 * rng.go, part of fraggrow.
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

// Package rng provides immutable, splittable random keys.
//
// A Key is a value. Every sampling function derives its randomness from
// the key alone, so the same key always gives the same draw. A key that
// has been used for a draw should not be reused for another one: Split it
// first and use the children.
package rng

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// golden is used to decorrelate the two words of a freshly seeded key.
const golden uint64 = 0x9e3779b97f4a7c15

// Key is a random state token.
type Key struct {
	hi, lo uint64
}

// New returns the root key for the given seed.
func New(seed uint64) Key {
	return Key{hi: seed, lo: seed ^ golden}
}

func (k Key) String() string {
	return fmt.Sprintf("rng.Key{%016x%016x}", k.hi, k.lo)
}

// pcgSource is a PCG generator that gonum's distributions can take as
// their Src, which is seeded with a single word.
type pcgSource struct {
	pcg *rand.PCG
}

func (s pcgSource) Uint64() uint64 { return s.pcg.Uint64() }

func (s pcgSource) Seed(seed uint64) { s.pcg.Seed(seed, seed^golden) }

func (k Key) source() pcgSource {
	return pcgSource{pcg: rand.NewPCG(k.hi, k.lo)}
}

// Split returns two independent children of k.
func (k Key) Split() (Key, Key) {
	c := k.SplitN(2)
	return c[0], c[1]
}

// SplitN returns n independent children of k.
func (k Key) SplitN(n int) []Key {
	src := k.source()
	ret := make([]Key, n)
	for i := range ret {
		ret[i] = Key{hi: src.Uint64(), lo: src.Uint64()}
	}
	return ret
}

// FoldIn derives a new key from k and the integer data, so that
// e.g. each molecule of a dataset gets its own key from a single root.
func (k Key) FoldIn(data uint64) Key {
	src := rand.NewPCG(k.hi^data, k.lo+data*golden)
	return Key{hi: src.Uint64(), lo: src.Uint64()}
}

// Uint64 returns a random 64-bit value.
func (k Key) Uint64() uint64 {
	return k.source().Uint64()
}

// Float64 returns a uniform value in [0,1).
func (k Key) Float64() float64 {
	return rand.New(k.source()).Float64()
}

// Intn returns a uniform integer in [0,n). Panics if n<=0.
func (k Key) Intn(n int) int {
	if n <= 0 {
		panic(ErrEmpty)
	}
	return rand.New(k.source()).IntN(n)
}

// Choice returns a uniformly chosen element of xs. Panics if xs is empty.
func (k Key) Choice(xs []int) int {
	return xs[k.Intn(len(xs))]
}

// Bernoulli returns true with probability p.
func (k Key) Bernoulli(p float64) bool {
	return k.Float64() < p
}

// Categorical returns an index i with probability proportional to w[i].
// The weights need not be normalized, but must be nonnegative with
// a positive sum.
func (k Key) Categorical(w []float64) int {
	var sum float64
	for _, v := range w {
		if v < 0 || math.IsNaN(v) {
			panic(ErrWeights)
		}
		sum += v
	}
	if sum <= 0 {
		panic(ErrWeights)
	}
	c := distuv.NewCategorical(w, k.source())
	return int(c.Rand())
}

// Exclude returns m distinct integers drawn uniformly from [0,n).
func (k Key) Exclude(n, m int) []int {
	if m > n || m < 0 {
		panic(ErrEmpty)
	}
	idxs := make([]int, m)
	if m == 0 {
		return idxs
	}
	sampleuv.WithoutReplacement(idxs, n, k.source())
	return idxs
}

// UnitVec returns a vector uniformly distributed on the unit sphere.
func (k Key) UnitVec() r3.Vec {
	src := k.source()
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for {
		v := r3.Vec{X: norm.Rand(), Y: norm.Rand(), Z: norm.Rand()}
		if n := r3.Norm(v); n > 1e-12 {
			return r3.Scale(1/n, v)
		}
	}
}

// PanicMsg is a message used for panics on invalid sampling requests,
// which are programming errors.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrEmpty   = PanicMsg("fraggrow/rng: sampling from an empty set")
	ErrWeights = PanicMsg("fraggrow/rng: weights must be nonnegative with a positive sum")
)
