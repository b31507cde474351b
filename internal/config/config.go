package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

// Console kinds understood by the bench builder.
const (
	ConsoleSim  = "sim"
	ConsoleFile = "file"
)

// Console selects the transport shared by the board drivers.
type Console struct {
	Kind string `yaml:"kind" toml:"kind"`
	Path string `yaml:"path" toml:"path"`
	// ID overrides the resource identity (defaults to a random one).
	ID string `yaml:"id" toml:"id"`
}

// Config describes one board-automation host: the target, its console and
// which driver backs each capability.
type Config struct {
	Target     string  `yaml:"target" toml:"target"`
	DeviceType string  `yaml:"device_type" toml:"device_type"`
	Prompt     string  `yaml:"prompt" toml:"prompt"`
	Console    Console `yaml:"console" toml:"console"`

	// BootCodes lists boot-code table files or directories loaded on top of
	// the built-in table.
	BootCodes []string `yaml:"bootcodes" toml:"bootcodes"`

	// Drivers selects the implementation per capability: "tiva" or "fake".
	Drivers map[string]string `yaml:"drivers" toml:"drivers"`

	// MeasureGrace is added to samples*delay when waiting for the power table.
	MeasureGrace Duration `yaml:"measure_grace" toml:"measure_grace"`
}

// Duration decodes "2s"-style strings from YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Driver implementations.
const (
	DriverTiva = "tiva"
	DriverFake = "fake"
)

// DefaultConfig returns a Config that runs every capability on the
// simulated console.
func DefaultConfig() *Config {
	return &Config{
		Target:       "main",
		DeviceType:   "am62xx-sk",
		Prompt:       "=>",
		Console:      Console{Kind: ConsoleSim},
		Drivers:      map[string]string{},
		MeasureGrace: Duration{2 * time.Second},
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Target == "" {
		c.Target = "main"
	}
	if c.Prompt == "" {
		c.Prompt = "=>"
	}
	if c.MeasureGrace.Duration <= 0 {
		c.MeasureGrace.Duration = 2 * time.Second
	}
	if c.DeviceType == "" {
		return fmt.Errorf("config: device_type is required")
	}

	switch c.Console.Kind {
	case "", ConsoleSim:
		c.Console.Kind = ConsoleSim
	case ConsoleFile:
		if c.Console.Path == "" {
			return fmt.Errorf("config: console.path is required for a file console")
		}
	default:
		return fmt.Errorf("config: unknown console kind %q", c.Console.Kind)
	}

	if c.Drivers == nil {
		c.Drivers = map[string]string{}
	}
	names := make([]string, 0, len(c.Drivers))
	for name := range c.Drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[target.Capability]string, len(names))
	for _, name := range names {
		kind, err := target.ParseCapability(name)
		if err != nil {
			return fmt.Errorf("config: drivers: %w", err)
		}
		if kind == target.CapabilityAutomation {
			return fmt.Errorf("config: drivers.%s: the automation facade is not configurable", name)
		}
		if prev, dup := seen[kind]; dup {
			return fmt.Errorf("config: drivers.%s and drivers.%s both select %s", prev, name, kind)
		}
		seen[kind] = name
		switch impl := c.Drivers[name]; impl {
		case DriverTiva, DriverFake:
		default:
			return fmt.Errorf("config: drivers.%s: unknown implementation %q", name, impl)
		}
	}
	return nil
}

// DriverFor returns the implementation chosen for a capability, "tiva" when
// unset. Validate guarantees at most one key per capability.
func (c *Config) DriverFor(kind target.Capability) string {
	for name, impl := range c.Drivers {
		if k, err := target.ParseCapability(name); err == nil && k == kind {
			return impl
		}
	}
	return DriverTiva
}

// Load reads a YAML (.yaml/.yml) or TOML (.toml) config file over the
// defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported format %q", filepath.Ext(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
