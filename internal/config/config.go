// Package config loads and validates logtail settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoDirectory  = errors.New("no directory given")
	ErrNotDirectory = errors.New("not a directory")
)

// Config is the complete runtime configuration. Every field can be set from
// the YAML file; most also have a flag.
type Config struct {
	Directory string `yaml:"directory"`
	Extension string `yaml:"extension"`
	Recursive bool   `yaml:"recursive"`

	// Cooldown is the pause after each notification, e.g. "100ms".
	Cooldown         time.Duration `yaml:"cooldown"`
	DetectTruncation bool          `yaml:"detectTruncation"`
	MaxReadFailures  int           `yaml:"maxReadFailures"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	Theme     string `yaml:"theme"`
	Plain     bool   `yaml:"plain"`
	StripANSI bool   `yaml:"stripAnsi"`
	TUI       bool   `yaml:"tui"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Extension:        ".log",
		Recursive:        true,
		Cooldown:         100 * time.Millisecond,
		DetectTruncation: true,
		MaxReadFailures:  3,
		LogLevel:         "info",
		LogFormat:        "text",
		Theme:            "dark",
	}
}

// Load reads a YAML file over the defaults. Environment variables in the
// file are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Normalize fills blank values and puts the extension in ".ext" form.
func (c *Config) Normalize() {
	c.Directory = strings.TrimSpace(c.Directory)
	c.Extension = strings.TrimSpace(c.Extension)
	if c.Extension == "" {
		c.Extension = ".log"
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.MaxReadFailures < 0 {
		c.MaxReadFailures = 0
	}
}

// Validate checks that the directory exists, is a directory and can be
// listed. On success Directory is made absolute.
func (c *Config) Validate(fs afero.Fs) error {
	if c.Directory == "" {
		return ErrNoDirectory
	}
	abs, err := filepath.Abs(c.Directory)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", c.Directory, err)
	}
	info, err := fs.Stat(abs)
	if err != nil {
		return fmt.Errorf("directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}
	if _, err := afero.ReadDir(fs, abs); err != nil {
		return fmt.Errorf("directory %s is not readable: %w", abs, err)
	}
	if strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("invalid extension %q", c.Extension)
	}
	c.Directory = abs
	return nil
}

// GetLogLevel maps LogLevel onto a logrus level, defaulting to info.
func (c *Config) GetLogLevel() logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "TRACE":
		return logrus.TraceLevel
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger builds the diagnostic logger writing to w.
func (c *Config) NewLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(c.GetLogLevel())
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors:   c.Plain,
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	return logger
}
