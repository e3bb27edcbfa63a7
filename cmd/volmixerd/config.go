package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the volmixer daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. The file is the primary surface; flags only override.
type Config struct {
	// Sound hardware backend
	Backend BackendConfig `yaml:"backend"`

	// IPC configuration (volmixer-ctl, scripts)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP API and state WebSocket
	HTTP HTTPConfig `yaml:"http"`

	// Channel monitor
	Monitor MonitorConfig `yaml:"monitor"`

	// Volume keys and rotary encoders
	Input InputConfig `yaml:"input"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

const (
	backendALSA = "alsa"
	backendSim  = "sim"
)

type BackendConfig struct {
	Kind    string `yaml:"kind"`               // "alsa" or "sim"
	SimFile string `yaml:"sim_file,omitempty"` // YAML machine description for "sim"
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port int `yaml:"port"` // 0 disables the HTTP server
}

type MonitorConfig struct {
	PollHz int `yaml:"poll_hz"` // 0 disables polling
}

type InputConfig struct {
	Devices []string `yaml:"devices,omitempty"` // Empty disables input handling

	// Channel adjusted by volume keys and encoders, optionally pinned to a card.
	Channel string `yaml:"channel"`
	Card    *int   `yaml:"card,omitempty"`

	StepPercent     int     `yaml:"step_percent"`
	AccelWindowMS   int     `yaml:"accel_window_ms"`
	AccelThreshold  int     `yaml:"accel_threshold"`
	AccelMultiplier float64 `yaml:"accel_multiplier"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Kind: backendALSA,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Port: defaultHTTPPort,
		},
		Monitor: MonitorConfig{
			PollHz: defaultPollHz,
		},
		Input: InputConfig{
			Channel:         defaultChannel,
			StepPercent:     defaultStepPercent,
			AccelWindowMS:   defaultAccelWindowMS,
			AccelThreshold:  defaultAccelThreshold,
			AccelMultiplier: defaultAccelMultiplier,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from flags that were explicitly set. Nil
// pointers are ignored; main.go decides which flags exist.
type FlagOverrides struct {
	BackendKind *string
	SimFile     *string

	IPCSocketPath *string
	HTTPPort      *int
	PollHz        *int

	InputDevice  *string
	InputChannel *string
	StepPercent  *int

	LogLevel *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even if
// it holds a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.BackendKind != nil {
		cfg.Backend.Kind = *o.BackendKind
	}
	if o.SimFile != nil {
		cfg.Backend.SimFile = *o.SimFile
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.PollHz != nil {
		cfg.Monitor.PollHz = *o.PollHz
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.InputChannel != nil {
		cfg.Input.Channel = *o.InputChannel
	}
	if o.StepPercent != nil {
		cfg.Input.StepPercent = *o.StepPercent
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Backend
	switch c.Backend.Kind {
	case backendALSA:
	case backendSim:
		if c.Backend.SimFile == "" {
			return errors.New("backend.sim_file is required when backend.kind is \"sim\"")
		}
	default:
		return fmt.Errorf("backend.kind must be %q or %q", backendALSA, backendSim)
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535")
	}

	// Monitor
	if c.Monitor.PollHz < 0 || c.Monitor.PollHz > 100 {
		return errors.New("monitor.poll_hz must be between 0 and 100")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if len(c.Input.Devices) > 0 && c.Input.Channel == "" {
		return errors.New("input.channel must not be empty when input.devices is set")
	}
	if c.Input.Card != nil && *c.Input.Card < 0 {
		return errors.New("input.card must be >= 0")
	}
	if c.Input.StepPercent < 1 || c.Input.StepPercent > 100 {
		return errors.New("input.step_percent must be between 1 and 100")
	}
	if c.Input.AccelWindowMS < 0 {
		return errors.New("input.accel_window_ms must be >= 0")
	}
	if c.Input.AccelThreshold < 0 {
		return errors.New("input.accel_threshold must be >= 0")
	}
	if c.Input.AccelMultiplier < 1 {
		return errors.New("input.accel_multiplier must be >= 1")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToAccelConfig converts the input section into the step accelerator config.
func (c InputConfig) ToAccelConfig() AccelConfig {
	return AccelConfig{
		Window:     time.Duration(c.AccelWindowMS) * time.Millisecond,
		Threshold:  c.AccelThreshold,
		Multiplier: c.AccelMultiplier,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
