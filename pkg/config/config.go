// Package config provides configuration file support for vfsroot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jvs-project/vfsroot/pkg/fsutil"
	"github.com/jvs-project/vfsroot/pkg/logging"
)

// FileName is the configuration file looked up by the CLI.
const FileName = "vfsroot.yaml"

// Config represents the vfsroot configuration.
type Config struct {
	RootDir string        `yaml:"root_dir"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RootDir: ".",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":2112",
		},
	}
}

// Load reads configuration from path.
// Returns default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to path atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := fsutil.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks field values. The root directory itself is checked when
// the resolver is built.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("invalid config: root_dir must not be empty")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid config: logging.level: %w", err)
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("invalid config: logging.format must be json or text, got %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("invalid config: metrics.addr required when metrics are enabled")
	}
	return nil
}

// Logger builds a logger from the logging section.
func (c *Config) Logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	l := logging.NewLogger(level)
	l.SetFormat(logging.Format(c.Logging.Format))
	return l, nil
}
