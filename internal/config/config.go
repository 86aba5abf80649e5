// Package config loads boxpiler.yaml, the project configuration shared by
// the CLI commands and the transpile service.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/logging"
)

// Config represents the top-level boxpiler.yaml configuration.
type Config struct {
	Output  Output  `yaml:"output"`
	Compat  Compat  `yaml:"compat"`
	Cache   Cache   `yaml:"cache"`
	Batch   Batch   `yaml:"batch"`
	Log     Log     `yaml:"log"`
	Service Service `yaml:"service"`
}

// Output controls the shape of generated units.
type Output struct {
	// Package is the Java package of every unit. When empty the package is
	// derived from the source file's directory.
	Package string `yaml:"package,omitempty"`

	// BaseClass is the class generated units extend.
	BaseClass string `yaml:"base_class,omitempty"`

	// ReturnType of the unit entry point; "void" drops the result value.
	ReturnType string `yaml:"return_type,omitempty"`

	// SourceType is the BoxSourceType constant stamped on the unit.
	SourceType string `yaml:"source_type,omitempty"`

	// CompileVersion overrides the version stamped on units. It must be a
	// semantic version.
	CompileVersion string `yaml:"compile_version,omitempty"`

	// Dir is where batch writes <Class>.java files.
	Dir string `yaml:"dir,omitempty"`
}

// Compat holds switches that keep legacy output byte-compatible.
type Compat struct {
	// QuoteNegatedBooleans renders !true as Not.invoke("true"). Defaults to
	// true.
	QuoteNegatedBooleans *bool `yaml:"quote_negated_booleans,omitempty"`
}

// Cache configures the transpile cache.
type Cache struct {
	Enabled bool `yaml:"enabled"`
	// Path of the SQLite database, relative to the config file.
	Path string `yaml:"path,omitempty"`
}

// Batch configures directory transpilation.
type Batch struct {
	// Workers bounds concurrent units; 0 means one per CPU.
	Workers    int      `yaml:"workers,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type Service struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no boxpiler.yaml is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a boxpiler.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.InvalidConfig, diagnostics.Span{File: path}, err, "reading config")
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// ParseConfig parses boxpiler.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, diagnostics.Wrap(diagnostics.InvalidConfig, diagnostics.Span{File: path}, err, "parsing config")
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for boxpiler.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Discover loads the configuration nearest to dir, or the defaults when
// there is none. The returned path is empty in the latter case.
func Discover(dir string) (*Config, string, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.Output.BaseClass == "" {
		c.Output.BaseClass = DefaultBaseClass
	}
	if c.Output.ReturnType == "" {
		c.Output.ReturnType = DefaultReturnType
	}
	if c.Output.SourceType == "" {
		c.Output.SourceType = DefaultSourceType
	}
	c.Output.SourceType = strings.ToUpper(c.Output.SourceType)
	if c.Compat.QuoteNegatedBooleans == nil {
		quote := true
		c.Compat.QuoteNegatedBooleans = &quote
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
	if len(c.Batch.Extensions) == 0 {
		c.Batch.Extensions = slices.Clone(ASTFileExtensions)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Service.Addr == "" {
		c.Service.Addr = DefaultServiceAddr
	}
}

// resolvePaths anchors relative paths at the directory of the config file.
func (c *Config) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(configDir, c.Cache.Path)
	}
	if c.Output.Dir != "" && !filepath.IsAbs(c.Output.Dir) {
		c.Output.Dir = filepath.Join(configDir, c.Output.Dir)
	}
}

var (
	javaPackage = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
	javaType    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*(<[A-Za-z0-9_$.,<> ?]*>)?(\[\])*$`)
)

func invalid(path, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.InvalidConfig, diagnostics.Span{File: path}, format, args...)
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Output.Package != "" && !javaPackage.MatchString(c.Output.Package) {
		return invalid(path, "output.package %q is not a Java package name", c.Output.Package)
	}
	if !javaType.MatchString(c.Output.BaseClass) {
		return invalid(path, "output.base_class %q is not a Java type", c.Output.BaseClass)
	}
	if c.Output.ReturnType != "void" && !javaType.MatchString(c.Output.ReturnType) {
		return invalid(path, "output.return_type %q is not a Java type", c.Output.ReturnType)
	}
	if !slices.Contains(SourceTypes, c.Output.SourceType) {
		return invalid(path, "output.source_type %q must be one of %s", c.Output.SourceType, strings.Join(SourceTypes, ", "))
	}
	if c.Output.CompileVersion != "" {
		if _, err := semver.StrictNewVersion(strings.TrimPrefix(c.Output.CompileVersion, "v")); err != nil {
			return invalid(path, "output.compile_version %q: %v", c.Output.CompileVersion, err)
		}
	}

	if c.Batch.Workers < 0 {
		return invalid(path, "batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	for i, ext := range c.Batch.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return invalid(path, "batch.extensions[%d]: %q must start with a dot", i, ext)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid(path, "log.level: %v", err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		return invalid(path, "log.format %q must be auto, text or json", c.Log.Format)
	}

	if _, _, err := net.SplitHostPort(c.Service.Addr); err != nil {
		return invalid(path, "service.addr %q: %v", c.Service.Addr, err)
	}
	return nil
}

// QuoteNegatedBooleans reports the effective compat switch.
func (c *Config) QuoteNegatedBooleans() bool {
	return c.Compat.QuoteNegatedBooleans == nil || *c.Compat.QuoteNegatedBooleans
}

// HasExtension reports whether name is an AST document batch should pick
// up.
func (c *Config) HasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.Batch.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
