package chem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAngle(Te *testing.T) {
	assert.InDelta(Te, math.Pi/2, Angle(r3.Vec{X: 1}, r3.Vec{Y: 2}), 1e-12)
	assert.InDelta(Te, math.Pi, Angle(r3.Vec{X: 1}, r3.Vec{X: -3}), 1e-12)
	assert.Equal(Te, 0.0, Angle(r3.Vec{X: 1, Y: 1}, r3.Vec{X: 2, Y: 2}))
	assert.Equal(Te, 0.0, Angle(r3.Vec{}, r3.Vec{X: 1}))
	assert.InDelta(Te, 90.0, Rad2Deg(math.Pi/2), 1e-12)
}

func TestDihedral(Te *testing.T) {
	a, b, c, d := r3.Vec{Z: 1}, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}
	assert.InDelta(Te, -math.Pi/2, Dihedral(a, b, c, d), 1e-12)
	//the mirror image has the opposite handedness
	assert.InDelta(Te, math.Pi/2, Dihedral(r3.Vec{Z: -1}, b, c, d), 1e-12)
	//trans
	assert.InDelta(Te, math.Pi, math.Abs(Dihedral(r3.Vec{Y: -1}, b, c, d)), 1e-12)
}
