package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.jpl.nasa.gov/bdube/emccd/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(3.14159, 0.01))
	// Output: 3.14
}

func TestRoundToInteger(t *testing.T) {
	cases := [][2]float64{
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{1234.51, 1235},
	}
	for _, c := range cases {
		out := mathx.Round(c[0], 1)
		if out != c[1] {
			t.Errorf("Round(%v, 1): expected %v got %v", c[0], c[1], out)
		}
	}
}

func TestLambertWm1SatisfiesDefiningEquation(t *testing.T) {
	xs := []float64{-1 / math.E, -0.36, -0.25, -0.1, -0.01, -1e-6, -1e-12}
	for _, x := range xs {
		w := mathx.LambertWm1(x)
		back := w * math.Exp(w)
		if math.Abs(back-x) > 1e-10*math.Max(1, math.Abs(x)) {
			t.Errorf("w*exp(w) != x for x=%g: w=%g, w*exp(w)=%g", x, w, back)
		}
		if w > -1 {
			t.Errorf("branch -1 must satisfy w <= -1, got %g for x=%g", w, x)
		}
	}
}

func TestLambertWm1BranchPoint(t *testing.T) {
	w := mathx.LambertWm1(-math.Exp(-1))
	if w != -1 {
		t.Errorf("expected -1 at the branch point, got %v", w)
	}
}

func TestLambertWm1OutOfDomain(t *testing.T) {
	for _, x := range []float64{-1, -0.5, 0, 0.1, 1} {
		if !math.IsNaN(mathx.LambertWm1(x)) {
			t.Errorf("expected NaN outside [-1/e, 0), got %v for x=%v", mathx.LambertWm1(x), x)
		}
	}
}

func TestLambertWm1KnownValue(t *testing.T) {
	// W_-1(-0.1) = -3.577152063957297...
	w := mathx.LambertWm1(-0.1)
	if math.Abs(w-(-3.577152063957297)) > 1e-9 {
		t.Errorf("W_-1(-0.1): got %v", w)
	}
}
