// Package config holds the bridge settings shared by the CLI commands: the
// logging setup plus defaults for the session flags, optionally overlaid
// from a YAML file in the user's home directory.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/termbridge/internal/fault"
)

// FileName is the per-user settings file looked up in $HOME.
const FileName = ".termbridge.yaml"

// DebugEnvVar raises the log level without touching flags or the settings
// file, and is forwarded to nested invocations.
const DebugEnvVar = "TERMBRIDGE_DEBUG"

// Config holds application configuration.
type Config struct {
	// LogLevel is a logrus level name. The bridge shares the terminal with
	// the child, so logging stays off unless asked for.
	LogLevel string `yaml:"log_level" default:"panic"`

	// Mouse forwards terminal mouse input to the child by default.
	Mouse bool `yaml:"mouse"`

	// AllowNonTTY skips the requirement that stdio be a terminal.
	AllowNonTTY bool `yaml:"allow_non_tty"`

	Pump PumpConfig `yaml:"pump"`
}

// PumpConfig tunes the I/O copy workers.
type PumpConfig struct {
	BufferSize    int `yaml:"buffer_size" default:"4096"`
	PollTimeoutMs int `yaml:"poll_timeout_ms" default:"50"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads the settings file at path, overlaying it on the defaults. An
// empty path means the per-user file; a missing file is not an error. The
// debug environment variable wins over both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, FileName)
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults apply
		case err != nil:
			return nil, fault.Wrap(fault.KindEnvironment, err, "read settings file %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fault.Wrap(fault.KindUsage, err, "parse settings file %s", path)
			}
		}
	}

	if lvl := os.Getenv(DebugEnvVar); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

// NewLogger creates a configured logger instance. An unparseable level name
// falls back to panic so the bridge never scribbles over the child's output
// by accident.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.PanicLevel
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
