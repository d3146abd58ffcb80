// Package cosmic injects simulated cosmic ray strikes into an image-area frame.
package cosmic

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// sigma of the charge cloud a strike deposits, in pixels
const cloudSigma = 0.5

// maximum radius charge is laid down over, in pixels
const cloudRadius = 2

// Hits deposits cosmic ray strikes on a strided row-major frame of electron
// counts.  rate is the strike rate in hits/cm^2/s, pixelPitch the pixel
// center spacing in meters, and maxVal the charge a strike saturates a pixel
// at.  The frame is modified in place and returned.
//
// The number of strikes is Poisson in the collecting area and frame time;
// each strike lands uniformly on the frame and deposits a Gaussian charge
// cloud clipped at maxVal.
func Hits(rng *rand.Rand, frame []float64, width, height int, rate, frametime, pixelPitch, maxVal float64) []float64 {
	if rate <= 0 {
		return frame
	}

	// collecting area in cm^2 (pitch is meters, 1 m^2 = 1e4 cm^2)
	area := float64(width) * pixelPitch * float64(height) * pixelPitch * 1e4
	lam := rate * area * frametime
	if lam <= 0 {
		return frame
	}
	nHits := int(distuv.Poisson{Lambda: lam, Src: rng}.Rand())

	for i := 0; i < nHits; i++ {
		row := rng.Float64() * float64(height-1)
		col := rng.Float64() * float64(width-1)
		deposit(frame, width, height, row, col, maxVal)
	}
	return frame
}

// deposit lays down the charge cloud of one strike centered at (row, col).
func deposit(frame []float64, width, height int, row, col, maxVal float64) {
	rmin := int(math.Max(0, math.Floor(row-cloudRadius)))
	rmax := int(math.Min(float64(height-1), math.Ceil(row+cloudRadius)))
	cmin := int(math.Max(0, math.Floor(col-cloudRadius)))
	cmax := int(math.Min(float64(width-1), math.Ceil(col+cloudRadius)))
	for r := rmin; r <= rmax; r++ {
		for c := cmin; c <= cmax; c++ {
			dr := float64(r) - row
			dc := float64(c) - col
			q := maxVal * math.Exp(-(dr*dr+dc*dc)/(2*cloudSigma*cloudSigma))
			idx := r*width + c
			frame[idx] += q
			if frame[idx] > maxVal {
				frame[idx] = maxVal
			}
		}
	}
}
