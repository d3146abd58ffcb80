/*Package emgain draws random electron counts from the output distribution of
an electron-multiplying (EM) gain register.

The register is described by the Basden 2003 probability density,

	pdf(x) = x^(n-1) * exp(-x/g) / (g^n * (n-1)!)

for n input electrons and mean gain g.  Exact inverse-CDF solutions exist for
n = 1 (exponential) and n = 2 (Lambert W, branch -1); larger n falls back to
inverse-transform sampling against a discretized CDF, accurate to the integer
resolution of the output axis.

Clock-induced charge generated inside the register never sees the full gain.
ApplyCIC models it by actualizing CIC electrons at pixels that came out of the
primary multiplication empty, assigning each a random entry stage among the
register's multiplying elements, and re-multiplying with the partial gain the
remaining stages compound to.

All sampling goes through an explicit *rand.Rand so results are reproducible
under a fixed seed.  A Rand must not be shared between goroutines; give each
concurrent caller its own.
*/
package emgain

import (
	"errors"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.jpl.nasa.gov/bdube/emccd/mathx"
	"github.jpl.nasa.gov/bdube/emccd/util"
)

// DefaultNElements is the number of multiplying elements in the gain register
// of a CCD201-20, the sensor this model was built around.
const DefaultNElements = 604

// ErrSubUnityGain is returned when the EM gain is below 1.  Gain below unity
// is not physically meaningful for a multiplying register and is never
// silently clamped.
var ErrSubUnityGain = errors.New("emgain: EM gain cannot be set to less than 1")

// Apply multiplies each element of nIn by a random draw from the EM gain
// distribution for that element's count.  maxOut bounds the output axis of the
// n > 2 distributions and clamps every returned value.  The returned slice is
// freshly allocated, the same length as nIn, with integer-valued elements.
// Zero inputs produce zero outputs.
func Apply(rng *rand.Rand, nIn []float64, emGain, maxOut float64) ([]float64, error) {
	return ApplyCIC(rng, nIn, emGain, maxOut, 0, DefaultNElements)
}

// ApplyCIC is Apply with partial clock-induced charge modeling.  gainCIC is
// the mean CIC charge actualized per pixel per frame at the gain register
// (e-); zero disables the CIC pass.  nElements is the number of multiplying
// stages used to discretize where along the register CIC charge originates.
func ApplyCIC(rng *rand.Rand, nIn []float64, emGain, maxOut, gainCIC float64, nElements int) ([]float64, error) {
	if emGain < 1 {
		return nil, ErrSubUnityGain
	}
	nOut := applyGain(rng, nIn, emGain, maxOut)
	if gainCIC != 0 {
		partialCIC(rng, nOut, nElements, maxOut, gainCIC, emGain)
	}
	return nOut, nil
}

// applyGain samples the gain distribution for each distinct nonzero input
// count and scatters the draws back to the positions holding that count.
// Inputs are rounded to the nearest integer first; electrons are discrete.
// Zero positions are skipped, nothing in means nothing out.
func applyGain(rng *rand.Rand, nIn []float64, emGain, maxOut float64) []float64 {
	rounded := make([]float64, len(nIn))
	for i, v := range nIn {
		rounded[i] = math.Round(v)
	}

	nOut := make([]float64, len(nIn))
	for _, n := range util.UniqueNonzero(rounded) {
		inds := util.Indices(rounded, n)
		samples := randPDF(rng, n, emGain, maxOut, len(inds))
		for i, idx := range inds {
			nOut[idx] = samples[i]
		}
	}
	return nOut
}

// randPDF draws size samples from the EM gain distribution for nIn input
// electrons, rounded to integers and clamped to [0, xMax].
func randPDF(rng *rand.Rand, nIn, emGain, xMax float64, size int) []float64 {
	out := make([]float64, size)
	switch nIn {
	case 1:
		// exact: the n=1 density is exponential with mean emGain
		for i := range out {
			out[i] = -emGain * math.Log(1-rng.Float64())
		}
	case 2:
		// exact: inverting the n=2 CDF leads to the -1 branch of Lambert W
		for i := range out {
			u := rng.Float64()
			out[i] = -emGain*mathx.LambertWm1((u-1)/math.E) - emGain
		}
	default:
		// inverse-transform sampling against the discretized CDF; accuracy
		// is limited to the integer resolution of the output axis
		xAxis := util.Arange(int(xMax))
		xAxis[0] = machineEps // avoid log(0)
		c := cdf(nIn, emGain, xAxis)
		lo, hi := c[0], c[len(c)-1]
		for i := range out {
			target := lo + (hi-lo)*rng.Float64()
			j := sort.SearchFloat64s(c, target)
			if j >= len(xAxis) {
				j = len(xAxis) - 1
			}
			out[i] = xAxis[j]
		}
	}
	for i := range out {
		out[i] = util.Clamp(mathx.Round(out[i], 1), 0, maxOutFloor(xMax))
	}
	return out
}

var machineEps = math.Nextafter(1, 2) - 1

// maxOutFloor keeps the clamp on an integer boundary like the samples.
func maxOutFloor(xMax float64) float64 {
	return math.Floor(xMax)
}

// cdf returns the normalized cumulative distribution of the Basden density
// for nIn input electrons and gain emGain, evaluated on the axis x.
//
// Large n makes x^(n-1) and (n-1)! overflow long before their ratio does, so
// the density is formed in log space and exponentiated afterward.
func cdf(nIn, emGain float64, x []float64) []float64 {
	lg, _ := math.Lgamma(nIn)
	pdf := make([]float64, len(x))
	var sum float64
	for i, xi := range x {
		logpdf := (nIn-1)*math.Log(xi) - xi/emGain - nIn*math.Log(emGain) - lg
		pdf[i] = math.Exp(logpdf)
		sum += pdf[i]
	}
	out := make([]float64, len(pdf))
	var run float64
	for i := range pdf {
		run += pdf[i] / sum
		out[i] = run
	}
	return out
}

// partialCIC actualizes CIC electrons at the positions of nOut that came out
// of the primary multiplication empty, and multiplies them by the partial
// gain of the register stages downstream of their random entry point.  nOut
// is modified in place; positions with nonzero primary output are untouched.
func partialCIC(rng *rand.Rand, nOut []float64, nElements int, maxOut, gainCIC, emGain float64) {
	pois := distuv.Poisson{Lambda: gainCIC, Src: rng}

	// actualize CIC counts at the empty pixels, remembering which ones hit
	var cicInds []int
	for i, v := range nOut {
		if v != 0 {
			continue
		}
		n := pois.Rand()
		if n > 0 {
			nOut[i] = n
			cicInds = append(cicInds, i)
		}
	}
	if len(cicInds) == 0 {
		return
	}

	// each CIC electron enters at a random stage; the remaining stages
	// compound the per-stage rate r to a partial gain (1+r)^k in [1, g]
	rate := math.Pow(emGain, 1/float64(nElements)) - 1
	partialGains := make([]float64, len(cicInds))
	for i := range partialGains {
		stages := math.Round(rng.Float64() * float64(nElements-1))
		partialGains[i] = math.Pow(1+rate, stages)
	}

	// group by gain value and run each group through the ordinary
	// multiplication, overwriting the raw counts
	for _, pg := range util.UniqueNonzero(partialGains) {
		var inds []int
		counts := make([]float64, 0)
		for i, g := range partialGains {
			if g == pg {
				inds = append(inds, cicInds[i])
				counts = append(counts, nOut[cicInds[i]])
			}
		}
		multiplied := applyGain(rng, counts, pg, maxOut)
		for i, idx := range inds {
			nOut[idx] = multiplied[i]
		}
	}
}
