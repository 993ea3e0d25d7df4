// Package config resolves server settings from defaults, an optional YAML
// file and SPDBG_* environment overrides, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load.
const (
	EnvConfig       = "SPDBG_CONFIG"
	EnvPort         = "SPDBG_PORT"
	EnvStartupDelay = "SPDBG_STARTUP_DELAY"
	EnvLogLevel     = "SPDBG_LOG_LEVEL"
	EnvTrafficLog   = "SPDBG_TRAFFIC_LOG"
)

// Config is the resolved server configuration.
type Config struct {
	// Port is the TCP listen port for debug clients.
	Port int `yaml:"port"`
	// StartupDelay postpones accepting connections, giving slow hosts time
	// to finish loading scripts.
	StartupDelay time.Duration `yaml:"startup_delay"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// TrafficLog, when set, receives JSON-lines message traffic.
	TrafficLog string `yaml:"traffic_log"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Port:     3000,
		LogLevel: "info",
	}
}

// Load resolves the configuration. An explicit path wins over SPDBG_CONFIG;
// with neither set, no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if raw := os.Getenv(EnvPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, raw, err)
		}
		c.Port = port
	}
	if raw := os.Getenv(EnvStartupDelay); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvStartupDelay, raw, err)
		}
		c.StartupDelay = delay
	}
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		c.LogLevel = raw
	}
	if raw := os.Getenv(EnvTrafficLog); raw != "" {
		c.TrafficLog = raw
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.StartupDelay < 0 {
		return fmt.Errorf("startup delay must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address for the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SlogLevel maps the configured log level name onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
