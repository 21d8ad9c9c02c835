package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Buffer  BufferConfig  `yaml:"buffer"`
	Filter  FilterConfig  `yaml:"filter"`
	Output  OutputConfig  `yaml:"output"`
	Input   InputConfig   `yaml:"input"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BufferConfig controls the boundary detector's pending buffer
type BufferConfig struct {
	MaxLines int `yaml:"max_lines"`
}

// FilterConfig controls record filtering
type FilterConfig struct {
	Pattern       string `yaml:"pattern,omitempty"`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty"`
	InvertMatch   bool   `yaml:"invert_match,omitempty"`
	JSONOnly      bool   `yaml:"json_only,omitempty"`
}

// OutputConfig controls how JSON records are rendered
type OutputConfig struct {
	Compact bool `yaml:"compact,omitempty"`
	NoColor bool `yaml:"no_color,omitempty"`
	Indent  int  `yaml:"indent,omitempty"`
}

// InputConfig selects where lines come from. An empty path means stdin.
type InputConfig struct {
	Path      string  `yaml:"path,omitempty"`
	Follow    bool    `yaml:"follow,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty"` // lines per second, 0 = unlimited
}

// LoggingConfig defines diagnostic logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// MetricsConfig enables the prometheus endpoint when an address is set
type MetricsConfig struct {
	Address string `yaml:"address,omitempty"`
}

// Default values
const (
	DefaultMaxLines  = 10
	DefaultIndent    = 2
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Load loads configuration from a YAML file with environment variable
// expansion
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unspecified configuration
func (c *Config) applyDefaults() {
	if c.Buffer.MaxLines == 0 {
		c.Buffer.MaxLines = DefaultMaxLines
	}
	if c.Output.Indent == 0 {
		c.Output.Indent = DefaultIndent
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate validates the configuration. The filter pattern is compiled (and
// therefore validated) by the filter package at startup.
func (c *Config) Validate() error {
	if c.Buffer.MaxLines < 1 {
		return fmt.Errorf("buffer max_lines must be at least 1, got %d", c.Buffer.MaxLines)
	}

	if c.Output.Indent < 0 {
		return fmt.Errorf("output indent must not be negative, got %d", c.Output.Indent)
	}

	if c.Input.RateLimit < 0 {
		return fmt.Errorf("input rate_limit must not be negative, got %v", c.Input.RateLimit)
	}
	if c.Input.Follow && c.Input.Path == "" {
		return fmt.Errorf("input follow requires a file path")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
