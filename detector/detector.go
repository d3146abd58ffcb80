/*Package detector simulates the frames produced by an electron-multiplying
CCD given a photon flux map.

A simulated exposure is a single stateless pass: photo-electrons, dark
current, and clock-induced charge are actualized over the frame time in the
image area (with optional cosmic ray strikes), the frame is read out row by
row into the serial register where the EM gain multiplication happens, and
read noise plus the bias offset are added on top.

A Detector owns its random number generator, so it is cheap and safe to give
every concurrently-simulated frame its own Detector.
*/
package detector

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.jpl.nasa.gov/bdube/emccd/cosmic"
	"github.jpl.nasa.gov/bdube/emccd/emgain"
	"github.jpl.nasa.gov/bdube/emccd/util"
)

// Frame is a strided row-major image of per-pixel electron counts.
type Frame struct {
	// Pix holds the counts, row-major, len == Width*Height
	Pix []float64

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int
}

// NewFrame returns a zero-filled frame of the given dimensions.
func NewFrame(width, height int) Frame {
	return Frame{Pix: make([]float64, width*height), Width: width, Height: height}
}

// At returns the count at (col, row).
func (f Frame) At(col, row int) float64 {
	return f.Pix[row*f.Width+col]
}

// Config holds the physical parameters of the simulated sensor.  The zero
// value is not useful; start from DefaultConfig.
type Config struct {
	// EMGain is the mean multiplication of the gain register (e-/photo-e-)
	EMGain float64 `yaml:"emGain" koanf:"emGain"`

	// FullWellImage is the image area full well capacity (e-)
	FullWellImage float64 `yaml:"fullWellImage" koanf:"fullWellImage"`

	// FullWellSerial is the serial (gain) register full well capacity (e-)
	FullWellSerial float64 `yaml:"fullWellSerial" koanf:"fullWellSerial"`

	// DarkCurrent is the dark generation rate (e-/pix/s)
	DarkCurrent float64 `yaml:"darkCurrent" koanf:"darkCurrent"`

	// CIC is the clock induced charge in the image area (e-/pix/frame)
	CIC float64 `yaml:"cic" koanf:"cic"`

	// CICGainRegister is the mean CIC charge actualized inside the gain
	// register (e-/pix/frame); zero disables partial CIC modeling
	CICGainRegister float64 `yaml:"cicGainRegister" koanf:"cicGainRegister"`

	// NElements is the number of multiplying elements in the gain register
	NElements int `yaml:"nElements" koanf:"nElements"`

	// ReadNoise is the amplifier read noise (e-/pix/frame), before the
	// benefit of EM gain
	ReadNoise float64 `yaml:"readNoise" koanf:"readNoise"`

	// Bias is the bias offset added at readout (e-)
	Bias float64 `yaml:"bias" koanf:"bias"`

	// QE is the quantum efficiency, 0 to 1
	QE float64 `yaml:"qe" koanf:"qe"`

	// CRRate is the cosmic ray strike rate (hits/cm^2/s); 5 at L2
	CRRate float64 `yaml:"crRate" koanf:"crRate"`

	// PixelPitch is the pixel center spacing (m)
	PixelPitch float64 `yaml:"pixelPitch" koanf:"pixelPitch"`

	// ShotNoise applies photon shot noise when true
	ShotNoise bool `yaml:"shotNoise" koanf:"shotNoise"`
}

// DefaultConfig returns the parameters of the sensor this model was built
// around, except EMGain which has no sensible default and is left at 1.
func DefaultConfig() Config {
	return Config{
		EMGain:         1,
		FullWellImage:  60000,
		FullWellSerial: 100000,
		DarkCurrent:    0.00028,
		CIC:            0.01,
		NElements:      emgain.DefaultNElements,
		ReadNoise:      100,
		Bias:           0,
		QE:             0.9,
		CRRate:         0,
		PixelPitch:     13e-6,
		ShotNoise:      true,
	}
}

// Detector simulates an EMCCD.  Not safe for concurrent use; the random
// number generator is thread-confined.
type Detector struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Detector with the given parameters and a generator seeded
// with seed.  The same seed and inputs reproduce the same frames.
func New(cfg Config, seed uint64) *Detector {
	if cfg.NElements == 0 {
		cfg.NElements = emgain.DefaultNElements
	}
	return &Detector{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Config returns the detector's parameters.
func (d *Detector) Config() Config {
	return d.cfg
}

// SetConfig replaces the detector's parameters.
func (d *Detector) SetConfig(cfg Config) {
	if cfg.NElements == 0 {
		cfg.NElements = emgain.DefaultNElements
	}
	d.cfg = cfg
}

// SimFrame simulates one exposure of fluxmap (photons/pix/s) over frametime
// seconds and returns the detector output in electrons, same shape as the
// input.
func (d *Detector) SimFrame(fluxmap Frame, frametime float64) (Frame, error) {
	if len(fluxmap.Pix) != fluxmap.Width*fluxmap.Height {
		return Frame{}, fmt.Errorf("detector: fluxmap buffer is %d elements, want %dx%d=%d",
			len(fluxmap.Pix), fluxmap.Width, fluxmap.Height, fluxmap.Width*fluxmap.Height)
	}
	img := d.imageArea(fluxmap, frametime)
	return d.serialRegister(img)
}

// imageArea actualizes electrons at the pixels: photo-electrons over the
// frame time, dark current, image-area CIC, and cosmic strikes, capped at the
// image area full well.
func (d *Detector) imageArea(fluxmap Frame, frametime float64) Frame {
	cfg := d.cfg
	out := NewFrame(fluxmap.Width, fluxmap.Height)

	// mean actualized charge per pixel over the exposure
	meanNoise := cfg.DarkCurrent*frametime + cfg.CIC
	for i, flux := range fluxmap.Pix {
		meanPhe := flux * frametime * cfg.QE
		if cfg.ShotNoise {
			out.Pix[i] = d.poisson(meanPhe + meanNoise)
		} else {
			out.Pix[i] = meanPhe + d.poisson(meanNoise)
		}
	}

	cosmic.Hits(d.rng, out.Pix, out.Width, out.Height, cfg.CRRate, frametime,
		cfg.PixelPitch, cfg.FullWellImage)

	for i := range out.Pix {
		out.Pix[i] = util.Clamp(out.Pix[i], 0, cfg.FullWellImage)
	}
	return out
}

// serialRegister reads the image area out through the multiplying register:
// EM gain, serial full well, fixed pattern, read noise, and bias.
func (d *Detector) serialRegister(img Frame) (Frame, error) {
	cfg := d.cfg

	// the frame is already flat row-major, exactly the order pixels shift
	// into the serial register
	gained, err := emgain.ApplyCIC(d.rng, img.Pix, cfg.EMGain, cfg.FullWellSerial,
		cfg.CICGainRegister, cfg.NElements)
	if err != nil {
		return Frame{}, err
	}

	fp := d.makeFixedPattern(len(gained))
	noise := d.makeReadNoise(len(gained))
	for i := range gained {
		gained[i] = util.Clamp(gained[i], 0, cfg.FullWellSerial)
		gained[i] += fp[i] + noise[i] + cfg.Bias
	}
	return Frame{Pix: gained, Width: img.Width, Height: img.Height}, nil
}

// makeFixedPattern returns the sensor's fixed pattern offset.  All zeros
// until a pattern is measured for the sensor being modeled.
func (d *Detector) makeFixedPattern(n int) []float64 {
	return make([]float64, n)
}

// makeReadNoise returns n draws of Gaussian amplifier noise.
func (d *Detector) makeReadNoise(n int) []float64 {
	out := make([]float64, n)
	if d.cfg.ReadNoise <= 0 {
		return out
	}
	norm := distuv.Normal{Mu: 0, Sigma: d.cfg.ReadNoise, Src: d.rng}
	for i := range out {
		out[i] = norm.Rand()
	}
	return out
}

// poisson draws one Poisson variate with the given mean; non-positive means
// actualize nothing.
func (d *Detector) poisson(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: mean, Src: d.rng}.Rand()
}
