// Package detector provides an HTTP interface to a simulated EMCCD, shaped
// like the interface a real camera server would expose.  Clients upload a
// flux map and pull simulated frames as FITS.
package detector

import (
	"io"
	"net/http"
	"strconv"

	"goji.io/pat"
	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/emccd/detector"
	"github.jpl.nasa.gov/bdube/emccd/generichttp"
	"github.jpl.nasa.gov/bdube/emccd/imgrec"
	"github.jpl.nasa.gov/bdube/emccd/server"
)

// HTTPDetector wraps a Detector in an HTTP route table
type HTTPDetector struct {
	d *detector.Detector

	// flux is the currently loaded flux map
	flux detector.Frame

	// frametime is the exposure length used when a request does not carry one
	frametime float64

	rec *imgrec.Recorder

	// full frame simulation is expensive; bound how fast clients can pull
	limiter *rate.Limiter

	rt server.RouteTable
}

// New returns an HTTPDetector around d.  rec may be nil to disable recording.
// frameRate bounds /frame requests per second.
func New(d *detector.Detector, rec *imgrec.Recorder, frameRate float64) *HTTPDetector {
	h := &HTTPDetector{
		d:         d,
		flux:      detector.NewFrame(1024, 1024),
		frametime: 1,
		rec:       rec,
		limiter:   rate.NewLimiter(rate.Limit(frameRate), 1),
		rt:        server.RouteTable{},
	}
	rt := h.rt
	rt[pat.Get("/frame")] = h.GetFrame
	rt[pat.Post("/fluxmap")] = h.SetFluxMap
	rt[pat.Get("/frame-time")] = generichttp.GetFloat(func() (float64, error) { return h.frametime, nil })
	rt[pat.Post("/frame-time")] = generichttp.SetFloat(func(f float64) error { h.frametime = f; return nil })

	cfgFloat := func(get func(detector.Config) float64, set func(*detector.Config, float64)) (http.HandlerFunc, http.HandlerFunc) {
		getter := generichttp.GetFloat(func() (float64, error) { return get(d.Config()), nil })
		setter := generichttp.SetFloat(func(f float64) error {
			cfg := d.Config()
			set(&cfg, f)
			d.SetConfig(cfg)
			return nil
		})
		return getter, setter
	}
	rt[pat.Get("/em-gain")], rt[pat.Post("/em-gain")] = cfgFloat(
		func(c detector.Config) float64 { return c.EMGain },
		func(c *detector.Config, f float64) { c.EMGain = f })
	rt[pat.Get("/read-noise")], rt[pat.Post("/read-noise")] = cfgFloat(
		func(c detector.Config) float64 { return c.ReadNoise },
		func(c *detector.Config, f float64) { c.ReadNoise = f })
	rt[pat.Get("/bias")], rt[pat.Post("/bias")] = cfgFloat(
		func(c detector.Config) float64 { return c.Bias },
		func(c *detector.Config, f float64) { c.Bias = f })
	rt[pat.Get("/dark-current")], rt[pat.Post("/dark-current")] = cfgFloat(
		func(c detector.Config) float64 { return c.DarkCurrent },
		func(c *detector.Config, f float64) { c.DarkCurrent = f })
	rt[pat.Get("/cic")], rt[pat.Post("/cic")] = cfgFloat(
		func(c detector.Config) float64 { return c.CIC },
		func(c *detector.Config, f float64) { c.CIC = f })
	rt[pat.Get("/cic-gain-register")], rt[pat.Post("/cic-gain-register")] = cfgFloat(
		func(c detector.Config) float64 { return c.CICGainRegister },
		func(c *detector.Config, f float64) { c.CICGainRegister = f })
	rt[pat.Get("/qe")], rt[pat.Post("/qe")] = cfgFloat(
		func(c detector.Config) float64 { return c.QE },
		func(c *detector.Config, f float64) { c.QE = f })
	rt[pat.Get("/cr-rate")], rt[pat.Post("/cr-rate")] = cfgFloat(
		func(c detector.Config) float64 { return c.CRRate },
		func(c *detector.Config, f float64) { c.CRRate = f })
	rt[pat.Get("/shot-noise")] = generichttp.GetBool(func() (bool, error) { return d.Config().ShotNoise, nil })
	rt[pat.Post("/shot-noise")] = generichttp.SetBool(func(b bool) error {
		cfg := d.Config()
		cfg.ShotNoise = b
		d.SetConfig(cfg)
		return nil
	})

	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT yields the route table, implementing server.HTTPer
func (h *HTTPDetector) RT() server.RouteTable {
	return h.rt
}

// SetFluxMap reads a FITS flux map (photons/pix/s) from the request body and
// makes it the input of subsequent frames
func (h *HTTPDetector) SetFluxMap(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	fr, err := detector.ReadFits(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.flux = fr
	w.WriteHeader(http.StatusOK)
}

// GetFrame simulates one exposure and streams it as FITS.  The frame time in
// seconds may be given in the frameTime query parameter; otherwise the
// stored value is used.
func (h *HTTPDetector) GetFrame(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		http.Error(w, "frame rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	frametime := h.frametime
	if s := r.URL.Query().Get("frameTime"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		frametime = f
	}

	frame, err := h.d.SimFrame(h.flux, frametime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var out io.Writer = w
	if h.rec != nil && h.rec.Enabled {
		h.rec.Advance()
		out = io.MultiWriter(w, h.rec)
	}
	w.Header().Set("Content-Type", "image/fits")
	err = detector.WriteFits(out, h.d.CollectHeaderMetadata(frametime), frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
