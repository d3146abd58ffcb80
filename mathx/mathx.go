// Package mathx provides a few special functions and numeric helpers that are
// not in the standard library.
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// branch point of the Lambert W function, -1/e
var wBranch = -math.Exp(-1)

// LambertWm1 evaluates the -1 branch of the Lambert W function, the solution
// w <= -1 of w*exp(w) = x.  The branch is real on [-1/e, 0); inputs outside
// that interval return NaN.
//
// The seed is the series expansion about the branch point for x near -1/e and
// the asymptotic log form for x near zero, polished with Halley iterations to
// near machine precision.
func LambertWm1(x float64) float64 {
	if x < wBranch || x >= 0 {
		return math.NaN()
	}
	if x == wBranch {
		return -1
	}

	var w float64
	if x < -0.25 {
		// series about the branch point, p = -sqrt(2(1+ex)) on this branch
		p := -math.Sqrt(2 * (1 + math.E*x))
		w = -1 + p - p*p/3 + 11*p*p*p/72
	} else {
		// asymptotic form as x -> 0-
		l1 := math.Log(-x)
		l2 := math.Log(-l1)
		w = l1 - l2 + l2/l1
	}

	// Halley iteration on f(w) = w e^w - x
	for i := 0; i < 50; i++ {
		ew := math.Exp(w)
		f := w*ew - x
		if f == 0 {
			break
		}
		den := ew*(w+1) - (w+2)*f/(2*w+2)
		step := f / den
		w -= step
		if math.Abs(step) <= 1e-14*math.Abs(w) {
			break
		}
	}
	return w
}
