package emgain

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.jpl.nasa.gov/bdube/emccd/mathx"
)

func TestSubUnityGainRejected(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Apply(rng, []float64{1, 2, 3}, 0.99, 1e5)
	if err != ErrSubUnityGain {
		t.Errorf("expected ErrSubUnityGain, got %v", err)
	}
	_, err = ApplyCIC(rng, []float64{1}, 0.5, 1e5, 0.1, DefaultNElements)
	if err != ErrSubUnityGain {
		t.Errorf("expected ErrSubUnityGain, got %v", err)
	}
}

func TestUnityGainAccepted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	out, err := Apply(rng, []float64{1, 1, 1}, 1, 1e5)
	if err != nil {
		t.Fatalf("gain of exactly 1 must be accepted, got %v", err)
	}
	for _, v := range out {
		if v < 0 {
			t.Errorf("negative output %v", v)
		}
	}
}

func TestZeroInZeroOut(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	nIn := []float64{0, 3, 0, 1, 0}
	out, err := Apply(rng, nIn, 750, 1e5)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{0, 2, 4} {
		if out[i] != 0 {
			t.Errorf("position %d held 0 electrons but output %v", i, out[i])
		}
	}
	if len(out) != len(nIn) {
		t.Errorf("shape not preserved: %d != %d", len(out), len(nIn))
	}
}

func TestOutputBoundedAndInteger(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	nIn := make([]float64, 3000)
	for i := range nIn {
		nIn[i] = float64(i%6) + 0.4 // fractional inputs exercise the rounding policy
	}
	maxOut := 5000.
	out, err := Apply(rng, nIn, 1000, maxOut)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v < 0 || v > maxOut {
			t.Errorf("output %v at %d outside [0, %v]", v, i, maxOut)
		}
		if v != math.Round(v) {
			t.Errorf("output %v at %d is not an integer count", v, i)
		}
	}
}

// two generators from the same seed walk the same uniform sequence, so the
// closed-form paths can be checked draw by draw
func TestExactSolutionN1(t *testing.T) {
	const g = 1234.5
	shadow := rand.New(rand.NewSource(42))
	rng := rand.New(rand.NewSource(42))

	expected := make([]float64, 10)
	for i := range expected {
		u := shadow.Float64()
		expected[i] = math.Round(-g * math.Log(1-u))
	}
	out := randPDF(rng, 1, g, 1e9, 10)
	for i := range out {
		if out[i] != expected[i] {
			t.Errorf("sample %d: expected %v got %v", i, expected[i], out[i])
		}
	}
}

func TestExactSolutionN2(t *testing.T) {
	const g = 800.
	shadow := rand.New(rand.NewSource(7))
	rng := rand.New(rand.NewSource(7))

	expected := make([]float64, 10)
	for i := range expected {
		u := shadow.Float64()
		expected[i] = math.Round(-g*mathx.LambertWm1((u-1)/math.E) - g)
	}
	out := randPDF(rng, 2, g, 1e9, 10)
	for i := range out {
		if out[i] != expected[i] {
			t.Errorf("sample %d: expected %v got %v", i, expected[i], out[i])
		}
	}
}

func TestCDFMonotoneNormalized(t *testing.T) {
	axis := make([]float64, 5000)
	for i := range axis {
		axis[i] = float64(i)
	}
	axis[0] = machineEps
	for _, n := range []float64{3, 5, 10, 50} {
		c := cdf(n, 300, axis)
		for i := 1; i < len(c); i++ {
			if c[i] < c[i-1] {
				t.Fatalf("n=%v: cdf decreases at %d: %v -> %v", n, i, c[i-1], c[i])
			}
		}
		last := c[len(c)-1]
		if math.Abs(last-1) > 1e-9 {
			t.Errorf("n=%v: cdf does not end at 1: %v", n, last)
		}
	}
}

func TestSampleMeanTracksErlangMean(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const (
		g    = 100.
		size = 20000
	)
	for _, n := range []float64{1, 2, 3} {
		out := randPDF(rng, n, g, 5000, size)
		var mean float64
		for _, v := range out {
			mean += v
		}
		mean /= size
		want := n * g
		if math.Abs(mean-want) > 0.1*want {
			t.Errorf("n=%v: sample mean %v far from %v", n, mean, want)
		}
	}
}

func TestPartialCICLeavesNonzeroAlone(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	nOut := []float64{512, 0, 77, 0, 3, 0, 0, 9000}
	before := make([]float64, len(nOut))
	copy(before, nOut)
	partialCIC(rng, nOut, DefaultNElements, 1e5, 5, 1000)
	for i := range nOut {
		if before[i] != 0 && nOut[i] != before[i] {
			t.Errorf("nonzero position %d modified: %v -> %v", i, before[i], nOut[i])
		}
		if nOut[i] < 0 {
			t.Errorf("position %d went negative: %v", i, nOut[i])
		}
	}
}

func TestPartialCICActualizesCharge(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	nIn := make([]float64, 1000)
	out, err := ApplyCIC(rng, nIn, 1000, 1e5, 0.2, DefaultNElements)
	if err != nil {
		t.Fatal(err)
	}
	var hit int
	for _, v := range out {
		if v < 0 {
			t.Fatalf("negative output %v", v)
		}
		if v > 0 {
			hit++
		}
	}
	// P(Poisson(0.2) > 0) ~ 0.18, so roughly 180 of 1000 pixels
	if hit < 100 || hit > 270 {
		t.Errorf("expected on the order of 180 CIC hits, got %d", hit)
	}
}

func TestCICRateZeroIsInert(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	nIn := make([]float64, 500)
	out, err := ApplyCIC(rng, nIn, 5000, 1e5, 0, DefaultNElements)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("position %d nonzero with CIC disabled: %v", i, v)
		}
	}
}
