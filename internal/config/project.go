package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the project configuration file looked up by FindConfig.
const ProjectFileName = "stubinfer.yaml"

// Builtin stub sources
const (
	BuiltinsEmbedded = "embedded"
	BuiltinsNone     = "none"
)

// Project represents the top-level stubinfer.yaml configuration.
type Project struct {
	// StubPaths lists directories containing .pyi stub trees, searched in order.
	// Relative paths are resolved against the directory of the config file.
	StubPaths []string `yaml:"stub_paths,omitempty"`

	// Bundles lists SQLite stub bundles produced by `stubinfer bundle`.
	// They are consulted after StubPaths.
	Bundles []string `yaml:"bundles,omitempty"`

	// Builtins selects where the builtins/typing stubs come from:
	// "embedded" (default) or "none" when a stub path provides them.
	Builtins string `yaml:"builtins,omitempty"`

	// MaxDepth bounds the nesting depth of inferred expressions.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// StrictOverloads makes a call with keyword arguments on an overloaded
	// function an error instead of ignoring the keywords.
	StrictOverloads bool `yaml:"strict_overloads,omitempty"`

	// Verbose enables session logging to stderr.
	Verbose bool `yaml:"verbose,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// Default returns the configuration used when no stubinfer.yaml is found.
func Default() *Project {
	p := &Project{}
	p.setDefaults()
	return p
}

// LoadConfig reads and parses a stubinfer.yaml file.
func LoadConfig(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses stubinfer.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseConfig(data []byte, path string) (*Project, error) {
	var cfg Project
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for stubinfer.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file, or empty string if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		candidate = filepath.Join(dir, "stubinfer.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Project) validate(path string) error {
	switch c.Builtins {
	case "", BuiltinsEmbedded, BuiltinsNone:
	default:
		return fmt.Errorf("%s: builtins: unknown source %q (want %q or %q)", path, c.Builtins, BuiltinsEmbedded, BuiltinsNone)
	}

	if c.Builtins == BuiltinsNone && len(c.StubPaths) == 0 && len(c.Bundles) == 0 {
		return fmt.Errorf("%s: builtins is %q but no stub_paths or bundles are configured", path, BuiltinsNone)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("%s: max_depth must not be negative", path)
	}

	seen := make(map[string]int)
	for i, p := range c.StubPaths {
		if p == "" {
			return fmt.Errorf("%s: stub_paths[%d]: empty path", path, i)
		}
		if j, dup := seen[p]; dup {
			return fmt.Errorf("%s: stub_paths[%d]: duplicate of stub_paths[%d] (%s)", path, i, j, p)
		}
		seen[p] = i
	}

	for i, b := range c.Bundles {
		if b == "" {
			return fmt.Errorf("%s: bundles[%d]: empty path", path, i)
		}
	}

	return nil
}

// setDefaults fills in default values for optional fields.
func (c *Project) setDefaults() {
	if c.Builtins == "" {
		c.Builtins = BuiltinsEmbedded
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = MaxRecursionDepth
	}
}

// Dir returns the directory the configuration was loaded from ("" for defaults).
func (c *Project) Dir() string {
	return c.dir
}

// ResolvedStubPaths returns StubPaths made absolute relative to the config directory.
func (c *Project) ResolvedStubPaths() []string {
	return c.resolve(c.StubPaths)
}

// ResolvedBundles returns Bundles made absolute relative to the config directory.
func (c *Project) ResolvedBundles() []string {
	return c.resolve(c.Bundles)
}

func (c *Project) resolve(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) && c.dir != "" {
			p = filepath.Join(c.dir, p)
		}
		out = append(out, p)
	}
	return out
}
