package config

const SourceFileExt = ".R"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".R", ".r"}

// Version of the interpreter, reported by the CLI.
const Version = "0.1.0"

// Environment names.
const (
	GlobalEnvName = "R_GlobalEnv"
	BaseEnvName   = "base"
	EmptyEnvName  = "R_EmptyEnv"
)

const (
	// DefaultChannelCapacity bounds each inter-context channel queue.
	DefaultChannelCapacity = 64
	// DefaultMaxDepth bounds nested closure calls.
	DefaultMaxDepth = 5000
	// DefaultGRPCAddr is where "rcore serve" listens.
	DefaultGRPCAddr = "127.0.0.1:7391"
)

// Warning reporting modes.
const (
	WarnDeferred  = "deferred"
	WarnImmediate = "immediate"
)

// Environment variables read at startup.
const (
	EnvConfig            = "RCORE_CONFIG"
	EnvDebugCompleteness = "RCORE_DEBUG_COMPLETENESS"
	EnvInstrument        = "RCORE_INSTRUMENT"
	EnvProfile           = "RCORE_PROFILE"
	EnvWarn              = "RCORE_WARN"
	EnvLogLevel          = "RCORE_LOG_LEVEL"
)

// HasSourceExt reports whether path ends in a recognized source extension.
func HasSourceExt(path string) bool {
	return TrimSourceExt(path) != path
}

// TrimSourceExt removes a recognized source extension from name.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
