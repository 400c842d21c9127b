package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/funvibe/stubinfer/internal/config"
)

// ExtractModuleName derives a module name from a file path.
// It takes the base filename and removes any recognized source extension.
func ExtractModuleName(path string) string {
	name := filepath.Base(path)
	return config.TrimSourceExt(name)
}

// DottedModuleName derives the dotted module name of a source file below
// root: pkg/sub/mod.py is pkg.sub.mod and pkg/__init__.pyi is pkg.
func DottedModuleName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	parts := strings.Split(config.TrimSourceExt(rel), "/")
	if n := len(parts); n > 1 && parts[n-1] == config.PackageInitName {
		parts = parts[:n-1]
	}
	return strings.Join(parts, "."), nil
}

// GetModuleDir returns the directory context for a module path.
// If the path points to a source file, returns the file's directory.
// If the path points to a directory (no extension), returns the path itself.
func GetModuleDir(path string) string {
	if config.HasSourceExt(path) {
		return filepath.Dir(path)
	}
	return path
}
