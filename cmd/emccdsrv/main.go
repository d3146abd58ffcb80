package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"goji.io"
	"goji.io/pat"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/emccd/detector"
	"github.jpl.nasa.gov/bdube/emccd/generichttp"
	httpdet "github.jpl.nasa.gov/bdube/emccd/generichttp/detector"
	"github.jpl.nasa.gov/bdube/emccd/imgrec"
	"github.jpl.nasa.gov/bdube/emccd/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "emccd-http.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root" koanf:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix" koanf:"Prefix"`
}

type config struct {
	Addr string `yaml:"Addr" koanf:"Addr"`
	Root string `yaml:"Root" koanf:"Root"`

	// FrameRate bounds how many frames per second clients can pull
	FrameRate float64 `yaml:"FrameRate" koanf:"FrameRate"`

	// Seed seeds the simulator's random number generator
	Seed uint64 `yaml:"Seed" koanf:"Seed"`

	Recorder recorder        `yaml:"Recorder" koanf:"Recorder"`
	Detector detector.Config `yaml:"Detector" koanf:"Detector"`
}

func defaults() config {
	return config{
		Addr:      ":8000",
		Root:      "/emccd",
		FrameRate: 2,
		Seed:      1,
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
	str := `emccd-http exposes a simulated EMCCD over HTTP, with the same shape of
interface a real camera server has.  Clients POST a FITS flux map to /fluxmap,
adjust gain and noise parameters, and GET /frame for simulated FITS frames.

Usage:
	emccd-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `emccd-http is amenable to configuration via its .yaml file.  For a primer
on YAML, see https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf
generates the configuration file with the default values.

The server is single-threaded over the simulator; use the /lock routes to keep
interactive clients out while a long acquisition sequence runs.  Frame pulls
beyond FrameRate per second receive 429.

If the Recorder Root is set, frames served to clients are also written to
dated subfolders on the server's disk; toggle at runtime with
/autowrite/enabled.`
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
	fmt.Printf("emccd-http version %v\n", Version)
}

func run() {
	cfg := defaults()
	err := k.Unmarshal("", &cfg)
	if err != nil {
		log.Fatal(err)
	}

	d := detector.New(cfg.Detector, cfg.Seed)
	var rec *imgrec.Recorder
	if cfg.Recorder.Root != "" {
		rec = &imgrec.Recorder{Root: cfg.Recorder.Root, Prefix: cfg.Recorder.Prefix, Enabled: true}
	}
	w := httpdet.New(d, rec, cfg.FrameRate)

	lock := locker.New()
	locker.Inject(w, lock)

	mux := goji.SubMux()
	mux.Use(lock.Check)
	w.RT().Bind(mux)

	rootMux := goji.NewMux()
	rootMux.Use(middleware.Logger)
	rootMux.Handle(pat.New(generichttp.SubMuxSanitize(cfg.Root)), mux)

	log.Println("now listening for requests at", cfg.Addr+cfg.Root)
	log.Fatal(http.ListenAndServe(cfg.Addr, rootMux))
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
