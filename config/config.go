// Package config holds the monitor settings. Values come from defaults, an
// optional YAML file and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Build information, injected at link time by the dev tool.
var (
	AppVersion = "dev"
	GitCommit  = "none"
	GitBranch  = "none"
	BuildTime  = "unknown"
	Arch       = "unknown"
)

// BuildVersion renders the injected build information.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit %s, branch %s, built %s, %s)", AppVersion, GitCommit, GitBranch, BuildTime, Arch)
}

const (
	AdapterGeneric = "generic"
	AdapterMCP2221 = "mcp2221"
	AdapterNanoPi  = "nanopi"
	AdapterSim     = "sim"
)

var adapters = []string{AdapterGeneric, AdapterMCP2221, AdapterNanoPi, AdapterSim}

type Config struct {
	// Adapter selects the bus implementation: generic|mcp2221|nanopi|sim.
	Adapter string `yaml:"adapter"`
	// Device is the periph bus name used by the generic adapter.
	Device string `yaml:"device"`
	// Bus is the bus number used by gobot adaptors.
	Bus int `yaml:"bus"`
	// DeviceIndex picks one MCP2221 when more than one is attached; -1 means exactly one is expected.
	DeviceIndex int `yaml:"device_index"`
	// Speed is the bus clock in Hz.
	Speed    int64         `yaml:"speed"`
	Interval time.Duration `yaml:"interval"`
	LogLevel string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Adapter:     AdapterGeneric,
		Device:      "/dev/i2c-1",
		Bus:         0,
		DeviceIndex: -1,
		Speed:       100000,
		Interval:    time.Second,
		LogLevel:    "info",
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Frequency returns the configured bus speed.
func (c Config) Frequency() physic.Frequency {
	return physic.Frequency(c.Speed) * physic.Hertz
}

func (c Config) Validate() error {
	var errs []error
	known := false
	for _, a := range adapters {
		if c.Adapter == a {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown adapter %q (expected one of %s)", c.Adapter, strings.Join(adapters, ", ")))
	}
	if c.Adapter == AdapterGeneric && c.Device == "" {
		errs = append(errs, errors.New("device must be set for the generic adapter"))
	}
	if c.Bus < 0 {
		errs = append(errs, errors.New("bus must be >= 0"))
	}
	if c.Speed <= 0 {
		errs = append(errs, errors.New("speed must be > 0"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be > 0"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Encode writes the configuration as YAML.
func (c Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(c)
	if err != nil {
		return err
	}
	return enc.Close()
}
