// Package config loads gabagool settings from JSON files, GABAGOOL_*
// environment variables and built-in defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/fpm-git/gabagool/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g. GABAGOOL_OUTPUT_DIR.
const EnvPrefix = "GABAGOOL"

// FileName is the project configuration file written by `gabagool init`.
const FileName = "gabagool.json"

// Config is the top-level configuration for gabagool
type Config struct {
	Output   OutputConfig   `mapstructure:"output" json:"output"`
	Sources  SourcesConfig  `mapstructure:"sources" json:"sources"`
	Hooks    HooksConfig    `mapstructure:"hooks" json:"hooks"`
	Analysis AnalysisConfig `mapstructure:"analysis" json:"analysis"`

	// Path is the file the configuration was read from, empty for defaults
	Path string `mapstructure:"-" json:"-"`
}

// OutputConfig controls where declarations are written
type OutputConfig struct {
	// Dir is the declaration tree, relative to the project root if not absolute
	Dir string `mapstructure:"dir" json:"dir"`

	// WriteJSConfig creates jsconfig.json in the project root when missing
	WriteJSConfig bool `mapstructure:"writeJsconfig" json:"writeJsconfig"`
}

// SourcesConfig selects the model and service files of a project or hook
type SourcesConfig struct {
	Models   string   `mapstructure:"models" json:"models"`
	Services string   `mapstructure:"services" json:"services"`
	Exclude  []string `mapstructure:"exclude" json:"exclude"`
}

// HooksConfig controls installed hook discovery
type HooksConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// SailsRange is the semver constraint the project's sails dependency should satisfy
	SailsRange string `mapstructure:"sailsRange" json:"sailsRange"`
}

// CacheConfig controls the flattened descriptor cache
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `mapstructure:"dir" json:"dir"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file flattening (0 = auto)
	MaxParallelFiles int `mapstructure:"maxParallelFiles" json:"maxParallelFiles"`

	Cache CacheConfig `mapstructure:"cache" json:"cache"`

	// Timing records per-stage and per-file durations as JSONL
	Timing bool `mapstructure:"timing" json:"timing"`
}

// SetDefaults registers the default value of every option on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", ".types")
	v.SetDefault("output.writeJsconfig", true)

	v.SetDefault("sources.models", "api/models/**/*.js")
	v.SetDefault("sources.services", "api/services/**/*.js")
	v.SetDefault("sources.exclude", []string{})

	v.SetDefault("hooks.enabled", true)
	v.SetDefault("hooks.sailsRange", ">= 1.0.0")

	v.SetDefault("analysis.maxParallelFiles", 0) // auto
	v.SetDefault("analysis.cache.enabled", true)
	v.SetDefault("analysis.cache.dir", ".gabagool_cache")
	v.SetDefault("analysis.timing", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// DefaultConfig returns the built-in configuration, without environment overrides
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Dir: ".types", WriteJSConfig: true},
		Sources: SourcesConfig{
			Models:   "api/models/**/*.js",
			Services: "api/services/**/*.js",
			Exclude:  []string{},
		},
		Hooks: HooksConfig{Enabled: true, SailsRange: ">= 1.0.0"},
		Analysis: AnalysisConfig{
			Cache: CacheConfig{Enabled: true, Dir: ".gabagool_cache"},
		},
	}
}

// SearchPaths lists the candidate configuration files for rootPath, in order:
//  1. ./gabagool.json (current working directory)
//  2. ./.gabagool.json (current working directory)
//  3. <rootPath>/gabagool.json (if different from cwd)
//  4. <rootPath>/.gabagool.json (if different from cwd)
//  5. ~/.config/gabagool/config.json
func SearchPaths(rootPath string) []string {
	cwd, _ := os.Getwd()

	paths := []string{
		filepath.Join(cwd, FileName),
		filepath.Join(cwd, "."+FileName),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			paths = append(paths,
				filepath.Join(absRoot, FileName),
				filepath.Join(absRoot, "."+FileName),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gabagool", "config.json"))
	}
	return paths
}

// Load reads the first configuration file found on SearchPaths. Defaults and
// environment overrides apply when no file exists.
func Load(rootPath string) (*Config, error) {
	for _, path := range SearchPaths(rootPath) {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return decode(newViper(), "")
}

// LoadFile loads configuration from a specific file. Missing fields keep
// their defaults and environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", path),
			"configuration files are JSON objects with output, sources, hooks and analysis sections")
	}
	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if cfg.Sources.Exclude == nil {
		cfg.Sources.Exclude = []string{}
	}
	cfg.Path = path
	return &cfg, nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "writing config file")
	}
	return nil
}

// OutputDir returns the absolute declaration tree path for rootPath.
func (c *Config) OutputDir(rootPath string) string {
	return resolve(rootPath, c.Output.Dir)
}

// CacheDir returns the absolute cache directory for rootPath.
func (c *Config) CacheDir(rootPath string) string {
	return resolve(rootPath, c.Analysis.Cache.Dir)
}

// Parallelism is the effective flatten concurrency.
func (c *Config) Parallelism() int {
	if c.Analysis.MaxParallelFiles > 0 {
		return c.Analysis.MaxParallelFiles
	}
	return runtime.NumCPU()
}

func resolve(rootPath, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(rootPath, dir)
}
