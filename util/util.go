// Package util contains misc internal utilities.
package util

import "sort"

// Clamp restricts x to the interval [low, high].
func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// Arange returns [0, 1, 2, ... n-1] as floats.
func Arange(n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(i)
	}
	return out
}

// UniqueNonzero returns the distinct values of a that are greater than zero,
// in ascending order.  The input is not modified.
func UniqueNonzero(a []float64) []float64 {
	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, v := range a {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// Indices returns the positions of a holding value v.
func Indices(a []float64, v float64) []int {
	var out []int
	for i, av := range a {
		if av == v {
			out = append(out, i)
		}
	}
	return out
}
