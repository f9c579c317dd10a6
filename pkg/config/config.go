// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Resolver is implemented by configurations holding relative paths that
// should be interpreted against the directory of the config file.
type Resolver interface {
	ResolvePaths(baseDir string)
}

// Load reads filename, expands ${VAR} references from the environment and
// decodes the result into target. Relative paths are resolved and the
// target validated when it implements Resolver or Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if resolver, ok := any(target).(Resolver); ok {
		abs, err := filepath.Abs(filename)
		if err != nil {
			return fmt.Errorf("failed to resolve config file %s: %w", filename, err)
		}
		resolver.ResolvePaths(filepath.Dir(abs))
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// ResolvePath returns p unchanged when it is empty or absolute, and joined
// onto baseDir otherwise.
func ResolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
