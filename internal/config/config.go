// Package config loads the nblink YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "nblink.yaml"

// Config represents the application configuration.
type Config struct {
	Docs    DocsConfig    `yaml:"docs"`
	Link    LinkConfig    `yaml:"link"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
}

// DocsConfig locates the documentation sources.
type DocsConfig struct {
	Root     string   `yaml:"root"`
	Suffixes []string `yaml:"suffixes,omitempty"`
}

// LinkConfig tunes descriptor resolution.
type LinkConfig struct {
	// TargetRoot anchors the cross-reference metadata; empty means Docs.Root.
	TargetRoot    string `yaml:"target_root"`
	CustomFormats bool   `yaml:"custom_formats"`
}

// BuildConfig controls the document builder.
type BuildConfig struct {
	OutputDir   string `yaml:"output_dir"`
	StateDB     string `yaml:"state_db"`
	Workers     int    `yaml:"workers"`
	Incremental bool   `yaml:"incremental"`
	FailFast    bool   `yaml:"fail_fast"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	RescanInterval time.Duration `yaml:"rescan_interval"`
}

// Load loads configuration from the specified file. Environment files are
// loaded first and ${VAR} references are expanded before parsing.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nberrors.ConfigError("configuration file not found").
			WithContext("path", configPath).
			UserAction().
			Build()
	}
	if err != nil {
		return nil, nberrors.WrapError(err, nberrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, nberrors.WrapError(err, nberrors.CategoryConfig, "failed to unmarshal config").Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Docs: DocsConfig{Root: "./docs", Suffixes: []string{".nblink"}},
		Link: LinkConfig{CustomFormats: true},
		Build: BuildConfig{
			OutputDir:   "./_build",
			Workers:     4,
			Incremental: true,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Watch: WatchConfig{
			Debounce:       500 * time.Millisecond,
			RescanInterval: 5 * time.Minute,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Docs.Root == "" {
		c.Docs.Root = def.Docs.Root
	}
	if len(c.Docs.Suffixes) == 0 {
		c.Docs.Suffixes = def.Docs.Suffixes
	}
	if c.Link.TargetRoot == "" {
		c.Link.TargetRoot = c.Docs.Root
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = def.Build.OutputDir
	}
	if c.Build.StateDB == "" {
		c.Build.StateDB = filepath.Join(c.Build.OutputDir, ".nblink-state.db")
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = 1
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return nberrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			UserAction().
			Build()
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const exampleConfig = `docs:
  root: ./docs
  suffixes: [".nblink"]
link:
  target_root: ""          # defaults to docs.root
  custom_formats: true
build:
  output_dir: ./_build
  state_db: ./_build/.nblink-state.db   # ":memory:" disables incremental state
  workers: 4
  incremental: true
  fail_fast: false
logging:
  level: info              # debug|info|warn|error
  format: text             # text|json
metrics:
  textfile: ""
watch:
  debounce: 500ms
  rescan_interval: 5m
`
