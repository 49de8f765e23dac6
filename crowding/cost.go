// Package crowding implements the pure, branch-predictable cost
// function of spec §4.2: a mapping from (load, capacity) to a
// per-minute disutility factor, evaluated inside the RAPTOR engine's
// hot loop.
package crowding

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/crowding/v2/internal/mathutil"
)

// Kind tags which of the four supported forms a Function encodes.
// Per DESIGN NOTES §9, crowding functions are a closed tagged union
// with inlined parameters rather than an interface with dynamic
// dispatch, so the compiler can inline Eval at its call site in the
// RAPTOR ride-cost integration.
type Kind int

const (
	Linear Kind = iota
	Quadratic
	OneStep
	TwoStep
)

// minCoefficient is the small-coefficient clamp floor named in spec
// §4.2, applied to any parameter that appears in a denominator or
// exponent.
const minCoefficient = 1e-4

// Function is a crowding cost function of one Kind with its
// parameters inlined. Zero value is Linear, which needs no
// parameters.
type Function struct {
	Kind Kind

	// OneStep / TwoStep parameters.
	A0 float64
	A1 float64
	A  float64
	B  float64
	C  float64
}

// NewOneStep builds a one_step function, clamping a to the enforced
// minimum of 5 (spec §4.2). b is a plain multiplicative coefficient,
// not a denominator or exponent, so it is taken as given — a
// configured 0 means exactly no post-threshold scaling, not the
// small-coefficient floor.
func NewOneStep(a0, a, b float64) Function {
	if a < 5 {
		a = 5
	}
	return Function{Kind: OneStep, A0: a0, A: a, B: b}
}

// NewTwoStep builds a two_step function. a is an exponent, so it gets
// the small-coefficient floor; b and c are plain multiplicative
// coefficients and are taken as given, including zero.
func NewTwoStep(a0, a1, a, b, c float64) Function {
	if a1 < a0 {
		// keeps the middle segment non-decreasing (monotone crowding,
		// spec §8 property 5); a1 is meant to be the cost at full
		// seated+standing capacity, which cannot be below a0.
		a1 = a0
	}
	return Function{
		Kind: TwoStep,
		A0:   a0,
		A1:   a1,
		A:    mathutil.Clamp(a, minCoefficient, math.MaxFloat64),
		B:    b,
		C:    c,
	}
}

// Eval computes c(load, capacity) for the configured form. capacity
// is (seated S, standing T). Must stay alloc-free and branch
// predictable: no interface calls, no heap escapes.
func (f Function) Eval(load int, seated, standing int) float64 {
	x := float64(load)
	switch f.Kind {
	case Linear:
		return x / float64(seated+standing)
	case Quadratic:
		r := x / float64(seated+standing)
		return r * r
	case OneStep:
		if x <= float64(seated) {
			return f.A0
		}
		return f.A0 + math.Pow((x-float64(seated))/float64(seated), f.A)*f.B
	case TwoStep:
		s, t := float64(seated), float64(standing)
		switch {
		case x <= s:
			return f.A0
		case x <= s+t:
			return f.A0 + (x-s)/t*(f.A1-f.A0)
		default:
			return f.A1 + math.Pow((x-s-t)/(s+t), f.A)*(f.B+f.C*(x-s-t))
		}
	default:
		return x / float64(seated+standing)
	}
}

// String names the function kind, used in config echoes and logs.
func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case OneStep:
		return "one_step"
	case TwoStep:
		return "two_step"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sample produces the load -> per-minute cost table of spec §6's
// "crowding function sample" output, for (seated S, standing T) over
// load 0..loadMax inclusive.
type SamplePoint struct {
	Load int
	Cost float64
}

func (f Function) Sample(seated, standing, loadMax int) []SamplePoint {
	out := make([]SamplePoint, 0, loadMax+1)
	for load := 0; load <= loadMax; load++ {
		out = append(out, SamplePoint{Load: load, Cost: f.Eval(load, seated, standing)})
	}
	return out
}
