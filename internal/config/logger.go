package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ComponentField is the log field naming the subsystem that emitted an event.
const ComponentField = "component"

// ParseLevel maps a level name to a zerolog level. An empty name means warn.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return lvl, nil
}

// NewLogger builds the root logger of a context writing JSON lines to out.
func NewLogger(out io.Writer, o *Options) zerolog.Logger {
	lvl, err := ParseLevel(o.LogLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// ComponentLogger derives a child logger tagged with a component name.
func ComponentLogger(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str(ComponentField, component).Logger()
}
