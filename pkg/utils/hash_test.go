package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFloats(t *testing.T) {
	a := HashFloats("seed=1", []float64{0.5, 0.5, math.NaN()})
	b := HashFloats("seed=1", []float64{0.5, 0.5, math.NaN()})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, HashFloats("seed=2", []float64{0.5, 0.5, math.NaN()}))
	assert.NotEqual(t, a, HashFloats("seed=1", []float64{0.5, 0.5, 0}))
	assert.Len(t, a, 32)
}
