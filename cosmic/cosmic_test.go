package cosmic_test

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.jpl.nasa.gov/bdube/emccd/cosmic"
)

func TestZeroRateLeavesFrameAlone(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	frame := make([]float64, 64*64)
	for i := range frame {
		frame[i] = float64(i)
	}
	out := cosmic.Hits(rng, frame, 64, 64, 0, 100, 13e-6, 60000)
	for i, v := range out {
		if v != float64(i) {
			t.Fatalf("frame modified at %d with zero rate", i)
		}
	}
}

func TestHitsStayBelowSaturation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const (
		w, h   = 128, 128
		maxVal = 60000.
	)
	frame := make([]float64, w*h)
	// 5 hits/cm^2/s at L2, long frame so strikes are certain
	cosmic.Hits(rng, frame, w, h, 5, 1000, 13e-6, maxVal)
	var struck int
	for i, v := range frame {
		if v > maxVal {
			t.Errorf("pixel %d above saturation: %v", i, v)
		}
		if v > 0 {
			struck++
		}
	}
	if struck == 0 {
		t.Error("expected at least one strike")
	}
}
