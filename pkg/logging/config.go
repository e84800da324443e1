package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogOutput represents the destination for logs
type LogOutput string

const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config represents the complete logging configuration
type Config struct {
	Level  LogLevel  `yaml:"level" json:"level"`
	Format LogFormat `yaml:"format" json:"format"`
	Output LogOutput `yaml:"output" json:"output"`

	// Only used when Output is "file"
	FilePath string `yaml:"filePath,omitempty" json:"filePath,omitempty"`

	// Component-specific log levels. A dotted component such as
	// "storage.json_file" falls back to "storage" when it has no entry.
	ComponentLevels map[string]LogLevel `yaml:"componentLevels,omitempty" json:"componentLevels,omitempty"`

	EnableCaller bool `yaml:"enableCaller" json:"enableCaller"`

	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// DefaultConfig returns a configuration suitable for an MCP server. Logs go
// to stderr because stdout carries the stdio transport.
func DefaultConfig() *Config {
	return &Config{
		Level:           LogLevelInfo,
		Format:          LogFormatJSON,
		Output:          LogOutputStderr,
		ComponentLevels: make(map[string]LogLevel),
		Metrics:         DefaultMetricsConfig(),
	}
}

// Validate normalizes and checks the configuration
func (c *Config) Validate() error {
	level, err := ParseLevel(string(c.Level))
	if err != nil {
		return err
	}
	c.Level = level

	switch LogFormat(strings.ToLower(string(c.Format))) {
	case LogFormatJSON, "":
		c.Format = LogFormatJSON
	case LogFormatText:
		c.Format = LogFormatText
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	switch LogOutput(strings.ToLower(string(c.Output))) {
	case LogOutputStderr, "":
		c.Output = LogOutputStderr
	case LogOutputStdout:
		c.Output = LogOutputStdout
	case LogOutputFile:
		c.Output = LogOutputFile
		if c.FilePath == "" {
			return fmt.Errorf("filePath is required when output is file")
		}
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	for component, lvl := range c.ComponentLevels {
		parsed, err := ParseLevel(string(lvl))
		if err != nil {
			return fmt.Errorf("component %s: %w", component, err)
		}
		c.ComponentLevels[component] = parsed
	}

	return nil
}

// GetLevelForComponent returns the configured level for a component
func (c *Config) GetLevelForComponent(component string) LogLevel {
	for name := component; name != ""; {
		if level, ok := c.ComponentLevels[name]; ok {
			return level
		}
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return c.Level
}

// ParseLevel normalizes a level string. Empty means info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

// SlogLevel converts a LogLevel to slog.Level
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
