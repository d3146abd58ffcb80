package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/emccd/detector"
	"github.jpl.nasa.gov/bdube/emccd/imgrec"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "emccd-sim.yml"
	k              = koanf.New(".")
)

type config struct {
	// FluxMap is the path to a FITS flux map (photons/pix/s); empty means a
	// dark frame of Width x Height
	FluxMap string `yaml:"FluxMap" koanf:"FluxMap"`

	// Width and Height size the frame when no flux map is given
	Width  int `yaml:"Width" koanf:"Width"`
	Height int `yaml:"Height" koanf:"Height"`

	// FrameTime is the exposure length in seconds
	FrameTime float64 `yaml:"FrameTime" koanf:"FrameTime"`

	// Frames is the number of frames to simulate
	Frames int `yaml:"Frames" koanf:"Frames"`

	// Seed seeds the random number generator; fixed seeds reproduce runs
	Seed uint64 `yaml:"Seed" koanf:"Seed"`

	// OutDir and Prefix name the output files, Prefix000001.fits and so on
	// in dated subfolders of OutDir
	OutDir string `yaml:"OutDir" koanf:"OutDir"`
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// Detector holds the sensor parameters
	Detector detector.Config `yaml:"Detector" koanf:"Detector"`
}

func defaults() config {
	return config{
		Width:     1024,
		Height:    1024,
		FrameTime: 1,
		Frames:    1,
		Seed:      1,
		OutDir:    ".",
		Prefix:    "sim",
		Detector:  detector.DefaultConfig(),
	}
}

func setupconfig() {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `emccd-sim simulates frames from an electron multiplying CCD.
A flux map goes in, FITS frames with shot noise, dark current, clock induced
charge, stochastic EM gain, cosmic rays, and read noise come out.

Usage:
	emccd-sim <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `emccd-sim is configured via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used; mkconf writes them
to disk as a starting point.

FluxMap points to a FITS file of photon flux in photons/pix/s; when omitted
the simulation produces dark frames of Width x Height.  Frames are written to
dated subfolders of OutDir with incrementing filenames, so repeated runs never
clobber earlier output.

The random seed is part of the configuration.  Two runs with the same seed and
inputs produce identical frames; vary the seed to get independent realizations.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("emccd-sim version %v\n", Version)
}

func run() {
	cfg := defaults()
	err := k.Unmarshal("", &cfg)
	if err != nil {
		log.Fatal(err)
	}

	var flux detector.Frame
	if cfg.FluxMap != "" {
		flux, err = detector.LoadFluxMap(cfg.FluxMap)
		if err != nil {
			log.Fatalf("error loading flux map: %v", err)
		}
	} else {
		flux = detector.NewFrame(cfg.Width, cfg.Height)
	}

	d := detector.New(cfg.Detector, cfg.Seed)
	rec := &imgrec.Recorder{Root: cfg.OutDir, Prefix: cfg.Prefix, Enabled: true}

	spincfg := yacspin.Config{
		Frequency: 100 * time.Millisecond,
		CharSet:   yacspin.CharSets[59],
		Suffix:    " simulating",
	}
	spinner, err := yacspin.New(spincfg)
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	for i := 0; i < cfg.Frames; i++ {
		spinner.Message(fmt.Sprintf("frame %d/%d", i+1, cfg.Frames))
		frame, err := d.SimFrame(flux, cfg.FrameTime)
		if err != nil {
			spinner.Stop()
			log.Fatal(err)
		}
		rec.Advance()
		err = detector.WriteFits(rec, d.CollectHeaderMetadata(cfg.FrameTime), frame)
		if err != nil {
			spinner.Stop()
			log.Fatal(err)
		}
	}
	spinner.Stop()
	log.Printf("wrote %d frames to %s", cfg.Frames, cfg.OutDir)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
