package histo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestHisto(Te *testing.T) {
	rawdata := []float64{1, 6, 3, 2, 4, 5, 7, 6, 3.5, 3, 5, 1, 1, 0, 0, 5, 8, 1, 2, 3, 44, 3, 7, 3, 1, 3, 5, 32, 1}
	D := NewData([]float64{0, 1, 2, 3, 4, 8}, rawdata)
	assert.Equal(Te, []float64{2, 6, 2, 7, 9}, D.View())
	assert.Equal(Te, 26, D.Total(), "8, 32 and 44 are out of range")
	assert.Equal(Te, 6.0, D.Mode())

	D.AddData(0.5, 8, -1, 7.99)
	assert.Equal(Te, []float64{3, 6, 2, 7, 10}, D.View())
	D.Normalize()
	assert.InDelta(Te, 1.0, floats.Sum(D.View()), 1e-12)
	assert.InDelta(Te, 10.0/28, D.View()[4], 1e-12)
	D.AddData(1)
	assert.True(Te, D.Normalized())
	assert.InDelta(Te, 7.0/29, D.View()[1], 1e-12)

	j, err := json.Marshal(D)
	require.NoError(Te, err)
	D2 := new(Data)
	require.NoError(Te, json.Unmarshal(j, D2))
	assert.Equal(Te, D, D2)
	Te.Log(D2.String())
}

func TestIntDividers(Te *testing.T) {
	D := NewData(IntDividers(1, 3), []float64{1, 1, 2, 3, 3, 3, 4})
	assert.Equal(Te, []float64{0.5, 1.5, 2.5, 3.5}, D.Dividers())
	assert.Equal(Te, []float64{2, 1, 3}, D.View())
	assert.Equal(Te, 3.0, D.Mode())

	E := NewData(IntDividers(1, 3), nil)
	assert.Equal(Te, []float64{0, 0, 0}, E.View())
	assert.Panics(Te, func() { NewData([]float64{1}, nil) })
}
