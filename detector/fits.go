package detector

import (
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"
)

// WriteFits streams a simulated frame to w as a 32-bit integer FITS image.
// Counts are rounded toward zero; the serial full well keeps them far inside
// the int32 range.
func WriteFits(w io.Writer, metadata []fitsio.Card, frame Frame) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(32, []int{frame.Width, frame.Height})
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int32, len(frame.Pix))
	for i, v := range frame.Pix {
		ints[i] = int32(v)
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// ReadFits reads the primary HDU of a FITS file into a Frame, converting any
// integer or floating point pixel type to float64.
func ReadFits(r io.Reader) (Frame, error) {
	fits, err := fitsio.Open(r)
	if err != nil {
		return Frame{}, err
	}
	defer fits.Close()

	hdu := fits.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return Frame{}, fmt.Errorf("detector: primary HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return Frame{}, fmt.Errorf("detector: expected a 2D image, got %d axes", len(axes))
	}
	width, height := axes[0], axes[1]
	nelem := width * height
	out := NewFrame(width, height)

	switch hdr.Bitpix() {
	case 8:
		buf := make([]uint8, nelem)
		if err := img.Read(&buf); err != nil {
			return Frame{}, err
		}
		for i, v := range buf {
			out.Pix[i] = float64(v)
		}
	case 16:
		buf := make([]int16, nelem)
		if err := img.Read(&buf); err != nil {
			return Frame{}, err
		}
		for i, v := range buf {
			out.Pix[i] = float64(v)
		}
	case 32:
		buf := make([]int32, nelem)
		if err := img.Read(&buf); err != nil {
			return Frame{}, err
		}
		for i, v := range buf {
			out.Pix[i] = float64(v)
		}
	case 64:
		buf := make([]int64, nelem)
		if err := img.Read(&buf); err != nil {
			return Frame{}, err
		}
		for i, v := range buf {
			out.Pix[i] = float64(v)
		}
	case -32:
		buf := make([]float32, nelem)
		if err := img.Read(&buf); err != nil {
			return Frame{}, err
		}
		for i, v := range buf {
			out.Pix[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out.Pix); err != nil {
			return Frame{}, err
		}
	default:
		return Frame{}, fmt.Errorf("detector: unsupported BITPIX %d", hdr.Bitpix())
	}
	return out, nil
}

// LoadFluxMap reads a flux map (photons/pix/s) from a FITS file on disk.
func LoadFluxMap(path string) (Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()
	return ReadFits(f)
}

// CollectHeaderMetadata produces FITS cards describing the simulation
// parameters, for embedding in output files.
func (d *Detector) CollectHeaderMetadata(frametime float64) []fitsio.Card {
	cfg := d.cfg
	return []fitsio.Card{
		{Name: "SIMULATD", Value: true, Comment: "synthetic EMCCD frame"},
		{Name: "EMGAIN", Value: cfg.EMGain, Comment: "EM gain, e-/photo-e-"},
		{Name: "FRAMET", Value: frametime, Comment: "frame time, s"},
		{Name: "FWIMG", Value: cfg.FullWellImage, Comment: "image area full well, e-"},
		{Name: "FWSER", Value: cfg.FullWellSerial, Comment: "serial register full well, e-"},
		{Name: "DARKCUR", Value: cfg.DarkCurrent, Comment: "dark current, e-/pix/s"},
		{Name: "CIC", Value: cfg.CIC, Comment: "clock induced charge, e-/pix/frame"},
		{Name: "CICGAIN", Value: cfg.CICGainRegister, Comment: "gain register CIC, e-/pix/frame"},
		{Name: "READNS", Value: cfg.ReadNoise, Comment: "read noise, e-/pix/frame"},
		{Name: "BIAS", Value: cfg.Bias, Comment: "bias offset, e-"},
		{Name: "QE", Value: cfg.QE, Comment: "quantum efficiency"},
		{Name: "CRRATE", Value: cfg.CRRate, Comment: "cosmic ray rate, hits/cm^2/s"},
	}
}
