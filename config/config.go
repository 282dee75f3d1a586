package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/perfgo/tctestaide/cli/dotnet"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config represents tctestaide configuration options
type Config struct {
	// Dotnet is the dotnet CLI executable used for restore and test
	Dotnet string `yaml:"dotnet"`

	// Timeout is the maximum run time of a single restore or test (0 = none)
	Timeout time.Duration `yaml:"timeout"`

	// HistoryDir enables run history recording when set
	HistoryDir string `yaml:"history_dir"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Dotnet:   dotnet.DefaultExecutable,
		Timeout:  0, // Wait for ever, like the build agent does
		LogLevel: "info",
	}
}

// Load loads configuration from the specified file path, on top of the
// defaults. Unlike a missing optional file, a path that was asked for but
// cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Dotnet     string `yaml:"dotnet"`
		Timeout    string `yaml:"timeout"`
		HistoryDir string `yaml:"history_dir"`
		LogLevel   string `yaml:"log_level"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Dotnet != "" {
		cfg.Dotnet = yamlCfg.Dotnet
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		if timeout < 0 {
			return nil, fmt.Errorf("invalid timeout %q: must not be negative", yamlCfg.Timeout)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.HistoryDir != "" {
		cfg.HistoryDir = yamlCfg.HistoryDir
	}
	if yamlCfg.LogLevel != "" {
		if _, err := ParseLogLevel(yamlCfg.LogLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = yamlCfg.LogLevel
	}

	return cfg, nil
}

// ParseLogLevel converts a log level name into a zerolog level.
func ParseLogLevel(level string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return lvl, nil
}
