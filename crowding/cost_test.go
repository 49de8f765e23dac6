package crowding_test

import (
	"testing"

	"git.fiblab.net/sim/crowding/v2/crowding"
	"github.com/stretchr/testify/assert"
)

func TestLinear(t *testing.T) {
	f := crowding.Function{Kind: crowding.Linear}
	assert.Equal(t, 0.5, f.Eval(50, 80, 20))
}

func TestQuadratic(t *testing.T) {
	f := crowding.Function{Kind: crowding.Quadratic}
	assert.InDelta(t, 0.25, f.Eval(50, 80, 20), 1e-9)
}

func TestOneStepFlatBelowSeated(t *testing.T) {
	f := crowding.NewOneStep(1.0, 6, 2.0)
	assert.Equal(t, 1.0, f.Eval(30, 50, 20))
	assert.Equal(t, 1.0, f.Eval(50, 50, 20))
}

func TestOneStepEnforcesMinimumExponent(t *testing.T) {
	f := crowding.NewOneStep(1.0, 1, 2.0)
	assert.Equal(t, 5.0, f.A)
}

func TestTwoStepSegments(t *testing.T) {
	f := crowding.NewTwoStep(1.0, 2.0, 5, 1.0, 0.1)
	assert.Equal(t, 1.0, f.Eval(40, 50, 20))
	assert.InDelta(t, 1.5, f.Eval(60, 50, 20), 1e-9)
	assert.Equal(t, 2.0, f.Eval(70, 50, 20))
	assert.Greater(t, f.Eval(80, 50, 20), 2.0)
}

func TestTwoStepClampsDecreasingA1(t *testing.T) {
	f := crowding.NewTwoStep(3.0, 1.0, 5, 1.0, 0.1)
	assert.Equal(t, 3.0, f.A1)
}

// TestOneStepZeroCoefficientIsNotClamped verifies b, a plain
// multiplicative coefficient rather than a denominator or exponent,
// is taken as configured — a true zero disables post-threshold
// scaling entirely instead of being forced to the 1e-4 floor.
func TestOneStepZeroCoefficientIsNotClamped(t *testing.T) {
	f := crowding.NewOneStep(1.0, 6, 0)
	assert.Equal(t, 0.0, f.B)
	assert.Equal(t, 1.0, f.Eval(70, 50, 20))
}

// TestTwoStepZeroCoefficientsAreNotClamped covers the same case for
// b and c in the two_step form.
func TestTwoStepZeroCoefficientsAreNotClamped(t *testing.T) {
	f := crowding.NewTwoStep(1.0, 2.0, 5, 0, 0)
	assert.Equal(t, 0.0, f.B)
	assert.Equal(t, 0.0, f.C)
	assert.Equal(t, 2.0, f.Eval(80, 50, 20))
}

func TestMonotoneCrowding(t *testing.T) {
	fns := []crowding.Function{
		{Kind: crowding.Linear},
		{Kind: crowding.Quadratic},
		crowding.NewOneStep(1.0, 6, 2.0),
		crowding.NewTwoStep(1.0, 2.0, 5, 1.0, 0.1),
	}
	for _, f := range fns {
		prev := f.Eval(0, 50, 20)
		for load := 1; load <= 100; load++ {
			cur := f.Eval(load, 50, 20)
			assert.GreaterOrEqual(t, cur, prev, "kind=%v load=%d", f.Kind, load)
			prev = cur
		}
	}
}

func TestSample(t *testing.T) {
	f := crowding.Function{Kind: crowding.Linear}
	points := f.Sample(50, 20, 5)
	assert.Len(t, points, 6)
	assert.Equal(t, 0, points[0].Load)
}
