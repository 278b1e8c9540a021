package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/imgrec"
	"github.com/nasa-jpl/saperacam/metrics"
	"github.com/nasa-jpl/saperacam/sapera"
	"github.com/nasa-jpl/saperacam/server"
	"github.com/nasa-jpl/saperacam/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "sapera-http.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`
}

type stream struct {
	// MaxFPS caps the frame rate a client may request
	MaxFPS float64 `yaml:"MaxFPS"`

	// Frames is the depth of the in-memory frame buffer
	Frames int `yaml:"Frames"`
}

type config struct {
	Addr        string                 `yaml:"Addr"`
	Root        string                 `yaml:"Root"`
	Server      string                 `yaml:"Server"`
	Mock        bool                   `yaml:"Mock"`
	SnapTimeout time.Duration          `yaml:"SnapTimeout"`
	Recorder    recorder               `yaml:"Recorder"`
	Stream      stream                 `yaml:"Stream"`
	BootupArgs  map[string]interface{} `yaml:"BootupArgs"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:        ":8000",
		Root:        "/",
		Server:      "auto",
		SnapTimeout: sapera.DefaultSnapTimeout,
		Recorder:    recorder{},
		Stream:      stream{MaxFPS: 30, Frames: 16},
		BootupArgs: map[string]interface{}{
			"PixelType": "Mono8",
			"Exposure":  10.,
		}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `sapera-http exposes control of Teledyne DALSA GigE cameras over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	sapera-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `sapera-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.

Server 'auto' binds the first Sapera server with an acquisition device.  Any other
value must be the name of a server, as listed by Sapera CamExpert.

Mock true serves a simulated Genie Nano instead of real hardware; use it to try
clients without a camera.

BootupArgs are property names and values applied after the camera is initialized,
in name order.  If there is an error during bootup it may be that a property is not
supported by the camera.  Remove the offending entry.

Recorder.Root, if set, makes every streamed frame and every FITS image served by
/image a file on disk.  Otherwise streamed frames are kept in a ring of
Stream.Frames frames, drained by GET /stream/frame.`
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
	fmt.Printf("sapera-http version %v\n", Version)
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)

	var sdk sapera.SDK
	if cfg.Mock {
		log.Println("serving a simulated camera")
		sdk = sapera.NewMockSDK()
	} else {
		var err error
		sdk, err = sapera.Native()
		if err != nil {
			log.Fatal(err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := sapera.New(sdk, nil)
	c.Logger = log.New(os.Stderr, "sapera: ", log.LstdFlags)
	if cfg.SnapTimeout > 0 {
		c.SnapTimeout = cfg.SnapTimeout
	}
	if cfg.Server != "auto" {
		if err := c.Properties().Set(sapera.PropServer, cfg.Server); err != nil {
			log.Fatal(err)
		}
	}
	m, err := metrics.NewCamera(reg, c.Server())
	if err != nil {
		log.Fatal(err)
	}
	c.Metrics = m

	err = c.Initialize()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Shutdown()
	log.Printf("connected to %s on %s, %dx%d", c.Name(), c.Server(), c.ImageWidth(), c.ImageHeight())

	err = c.Configure(cfg.BootupArgs)
	if err != nil {
		log.Fatal(err)
	}

	var (
		rec *imgrec.Recorder
		buf *camera.CircularBuffer
	)
	if args := cfg.Recorder; args.Root != "" {
		rec = &imgrec.Recorder{Root: args.Root, Prefix: args.Prefix, Enabled: true}
		c.Sink = rec
	} else {
		buf = camera.NewCircularBuffer(cfg.Stream.Frames)
		c.Sink = buf
	}
	w := sapera.NewHTTPWrapper(c, rec, buf)
	if cfg.Stream.MaxFPS > 0 {
		w.MinInterval = time.Duration(float64(time.Second) / cfg.Stream.MaxFPS)
	}
	lock := locker.New()
	locker.Inject(w, lock)

	// clean up the submux string
	hndlrS := server.SubMuxSanitize(cfg.Root)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	w.RT().Bind(mux)
	mux.Get("/endpoints", func(rw http.ResponseWriter, r *http.Request) {
		server.WriteJSON(rw, w.RT().Endpoints())
	})
	root.Mount(hndlrS, mux)
	addr := cfg.Addr + cfg.Root
	log.Println("now listening for requests at ", addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, root))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
