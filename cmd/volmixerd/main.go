package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"volmixer/alsa"
	"volmixer/mixer"
	"volmixer/simhw"
)

const version = "1.0.0"

// Environment variables read after the optional .env file is loaded.
const (
	envConfig   = "VOLMIXER_CONFIG"
	envLogLevel = "VOLMIXER_LOG_LEVEL"
)

func printVersion() {
	fmt.Printf("volmixerd v%s\n", version)
	fmt.Println("Sound card mixer daemon: per-channel volume and balance over IPC, HTTP and WebSocket")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  volmixerd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Discovers the playback volume controls of every sound card and exposes")
	fmt.Println("  them as channels with a 0..100 volume and a -100..100 stereo balance.")
	fmt.Println("  Volume keys and rotary encoders step a configured channel.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        YAML config file (default $%s)\n", envConfig)
	fmt.Println()
	fmt.Println("  -backend string")
	fmt.Println("        Mixer backend: alsa|sim (default \"alsa\")")
	fmt.Println()
	fmt.Println("  -sim-file string")
	fmt.Println("        YAML machine description for the sim backend")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Printf("        HTTP API and WebSocket port, 0 disables (default %d)\n", defaultHTTPPort)
	fmt.Println()
	fmt.Println("  -poll-hz int")
	fmt.Printf("        Channel monitor frequency in Hz, 0 disables (default %d)\n", defaultPollHz)
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for volume keys or an encoder")
	fmt.Println()
	fmt.Println("  -input-channel string")
	fmt.Printf("        Channel adjusted by input devices (default %q)\n", defaultChannel)
	fmt.Println()
	fmt.Println("  -step-percent int")
	fmt.Printf("        Volume change per key press or detent (default %d)\n", defaultStepPercent)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Printf("        Log level: error, warn, info, debug (default \"info\", or $%s)\n", envLogLevel)
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("ENVIRONMENT:")
	fmt.Println("  A .env file in the working directory is loaded first if present.")
	fmt.Printf("  %s        config file used when -config is not given\n", envConfig)
	fmt.Printf("  %s     log level used when -log-level is not given\n", envLogLevel)
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with ALSA and defaults")
	fmt.Println("  volmixerd")
	fmt.Println()
	fmt.Println("  # Simulated hardware, no HTTP")
	fmt.Println("  volmixerd -backend sim -sim-file ./machine.yaml -http-port 0")
	fmt.Println()
	fmt.Println("  # Knob on a USB encoder stepping the headphone amp by 1%")
	fmt.Println("  volmixerd -input-device /dev/input/event5 -input-channel Headphone -step-percent 1")
	fmt.Println()
}

func main() {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}

	var (
		configPath   = flag.String("config", os.Getenv(envConfig), "YAML config file")
		backendKind  = flag.String("backend", backendALSA, "Mixer backend: alsa|sim")
		simFile      = flag.String("sim-file", "", "YAML machine description for the sim backend")
		ipcSocket    = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		httpPort     = flag.Int("http-port", defaultHTTPPort, "HTTP API port (0 disables)")
		pollHz       = flag.Int("poll-hz", defaultPollHz, "Channel monitor frequency in Hz (0 disables)")
		inputDevice  = flag.String("input-device", "", "Linux input event device")
		inputChannel = flag.String("input-channel", defaultChannel, "Channel adjusted by input devices")
		stepPercent  = flag.Int("step-percent", defaultStepPercent, "Volume change per step (%)")
		logLevelStr  = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		showHelp     = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printUsage()
		return
	}

	// Only explicitly set flags override the config file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var ov FlagOverrides
	if set["backend"] {
		ov.BackendKind = backendKind
	}
	if set["sim-file"] {
		ov.SimFile = simFile
	}
	if set["ipc-socket"] {
		ov.IPCSocketPath = ipcSocket
	}
	if set["http-port"] {
		ov.HTTPPort = httpPort
	}
	if set["poll-hz"] {
		ov.PollHz = pollHz
	}
	if set["input-device"] {
		ov.InputDevice = inputDevice
	}
	if set["input-channel"] {
		ov.InputChannel = inputChannel
	}
	if set["step-percent"] {
		ov.StepPercent = stepPercent
	}
	if set["log-level"] {
		ov.LogLevel = logLevelStr
	} else if lvl := os.Getenv(envLogLevel); lvl != "" {
		ov.LogLevel = &lvl
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	ov.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level) // validated above
	logger := setupLogger(logLevel, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("volmixerd stopped", "error", err)
		os.Exit(1)
	}
}

// openHardware builds the configured backend.
func openHardware(cfg BackendConfig) (mixer.Hardware, error) {
	switch cfg.Kind {
	case backendSim:
		hw, err := simhw.LoadFile(ExpandPath(cfg.SimFile))
		if err != nil {
			return nil, fmt.Errorf("load sim backend: %w", err)
		}
		return hw, nil
	default:
		return alsa.New(), nil
	}
}

// run starts every component and blocks until SIGINT/SIGTERM or the first
// component failure.
func run(cfg Config, logger *slog.Logger) error {
	hw, err := openHardware(cfg.Backend)
	if err != nil {
		return err
	}

	reg := mixer.NewRegistry(hw, mixer.WithLogger(logger))
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("releasing sound cards failed", "error", err)
		}
	}()

	channels := reg.Channels()
	if len(channels) == 0 {
		logger.Warn("no playback channels found", "backend", cfg.Backend.Kind)
	}
	for _, ch := range channels {
		logger.Debug("channel", "card", ch.Card(), "name", ch.Name(), "stereo", ch.Stereo(), "scale", ch.Scale())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	events := make(chan Event, 64)
	broadcasts := make(chan StateBroadcast, 128)
	ws := NewServer(logger, events, ServerConfig{})

	logger.Info("starting volmixerd",
		"version", version,
		"backend", cfg.Backend.Kind,
		"channels", len(channels),
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"poll_hz", cfg.Monitor.PollHz,
		"input_devices", len(cfg.Input.Devices))

	g.Go(func() error {
		runDaemon(ctx, events, reg, daemonConfig{
			PollHz:      cfg.Monitor.PollHz,
			StepPercent: cfg.Input.StepPercent,
		}, broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		ws.Hub().Run(ctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(ctx, ws.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
	})
	g.Go(func() error {
		return runHTTPServer(ctx, cfg.HTTP.Port, newHTTPHandler(events, ws, logger), logger)
	})
	g.Go(func() error {
		return runInput(ctx, cfg.Input, events, logger)
	})

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
