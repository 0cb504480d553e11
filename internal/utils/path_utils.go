package utils

import (
	"path/filepath"

	"github.com/funvibe/rcore/internal/config"
)

// ResolveSourcePath resolves a source() path relative to the directory of the file
// being evaluated. Absolute paths are returned unchanged.
func ResolveSourcePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" || baseDir == "." {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ScriptName derives a display name from a file path.
// It takes the base filename and removes any recognized source extension.
func ScriptName(path string) string {
	name := filepath.Base(path)
	return config.TrimSourceExt(name)
}
