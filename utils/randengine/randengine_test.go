package randengine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/randengine"
)

func TestReproducible(t *testing.T) {
	a, b := randengine.New(42), randengine.New(42)
	for range 100 {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestPoissonMean(t *testing.T) {
	e := randengine.New(1)
	for _, lambda := range []float64{0.05, 1, 4, 75} {
		sum := 0
		const n = 20000
		for range n {
			sum += e.Poisson(lambda)
		}
		mean := float64(sum) / n
		assert.InDelta(t, lambda, mean, lambda*0.1+0.01, "lambda=%v", lambda)
	}
	assert.Zero(t, e.Poisson(0))
	assert.Zero(t, e.Poisson(-3))
	assert.Zero(t, e.Poisson(math.NaN()))
}

func TestPoissonReproducible(t *testing.T) {
	a, b := randengine.New(9), randengine.New(9)
	for range 200 {
		assert.Equal(t, a.Poisson(2.5), b.Poisson(2.5))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestPTrue(t *testing.T) {
	e := randengine.New(7)
	assert.False(t, e.PTrue(0))
	assert.True(t, e.PTrue(1))
	n := e.Intn(10)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 10)
}
