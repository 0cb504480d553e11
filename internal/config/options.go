package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options are the process-wide toggles, read once at startup.
type Options struct {
	Debug DebugOptions `yaml:"debug"`

	// Instrumentation enables the instrumentation event bus.
	Instrumentation bool `yaml:"instrumentation"`

	// Profiles lists source files evaluated into the global environment of every new
	// context before user code.
	Profiles []string `yaml:"profiles,omitempty"`

	// Warnings is "deferred" (reported after the top-level call) or "immediate".
	Warnings string `yaml:"warnings,omitempty"`

	// LogLevel is a zerolog level name: debug, info, warn, error, disabled.
	LogLevel string `yaml:"log_level,omitempty"`

	// ChannelCapacity bounds each channel queue.
	ChannelCapacity int `yaml:"channel_capacity,omitempty"`

	// MaxDepth bounds nested closure calls.
	MaxDepth int `yaml:"max_depth,omitempty"`
}

type DebugOptions struct {
	// ValidateCompleteness checks the completeness flag of every constructed vector
	// and every operator result.
	ValidateCompleteness bool `yaml:"validate_completeness"`
}

// Default returns the options used when nothing is configured.
func Default() *Options {
	o := &Options{}
	o.setDefaults()
	return o
}

func (o *Options) setDefaults() {
	if o.Warnings == "" {
		o.Warnings = WarnDeferred
	}
	if o.LogLevel == "" {
		o.LogLevel = "warn"
	}
	if o.ChannelCapacity == 0 {
		o.ChannelCapacity = DefaultChannelCapacity
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
}

// LoadFile reads and parses a YAML options file.
func LoadFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses YAML options. The path argument is used only for error messages.
func Parse(data []byte, path string) (*Options, error) {
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	o.setDefaults()
	if err := o.validate(path); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i, p := range o.Profiles {
		if !filepath.IsAbs(p) {
			o.Profiles[i] = filepath.Join(dir, p)
		}
	}
	return &o, nil
}

// FromEnv builds the options from the environment: the YAML file named by
// RCORE_CONFIG (if any) overridden by the individual variables.
func FromEnv(getenv func(string) string) (*Options, error) {
	o := Default()
	if path := getenv(EnvConfig); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		o = loaded
	}

	if v := getenv(EnvDebugCompleteness); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvDebugCompleteness, err)
		}
		o.Debug.ValidateCompleteness = b
	}
	if v := getenv(EnvInstrument); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvInstrument, err)
		}
		o.Instrumentation = b
	}
	if v := getenv(EnvProfile); v != "" {
		o.Profiles = filepath.SplitList(v)
	}
	if v := getenv(EnvWarn); v != "" {
		o.Warnings = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		o.LogLevel = v
	}
	if err := o.validate("environment"); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Options) validate(source string) error {
	switch o.Warnings {
	case WarnDeferred, WarnImmediate:
	default:
		return fmt.Errorf("%s: warnings must be %q or %q, got %q", source, WarnDeferred, WarnImmediate, o.Warnings)
	}
	if o.ChannelCapacity < 0 {
		return fmt.Errorf("%s: channel_capacity must be positive, got %d", source, o.ChannelCapacity)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("%s: max_depth must be positive, got %d", source, o.MaxDepth)
	}
	if _, err := ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
