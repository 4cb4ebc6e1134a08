// Package config loads run configuration from YAML and the environment.
// Order: defaults -> config file -> environment variables -> flags (applied by the command).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/transmission"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything a run or batch needs besides the parameter table.
type Config struct {
	// Generations per run.
	Generations int `json:"generations" yaml:"generations"`

	// Seed for the batch; each row derives its own. 0 draws one from crypto/rand.
	Seed int64 `json:"seed" yaml:"seed"`

	// Workers bounds the number of runs executing at once.
	Workers int `json:"workers" yaml:"workers"`

	// Strategy is the transmission strategy name.
	Strategy string `json:"strategy" yaml:"strategy"`

	// WireParams threads the parameter-table priors, link and payoff bonus
	// into the agent model. When false they are only echoed into reports.
	WireParams bool `json:"wire_params" yaml:"wire_params"`

	// OutputDir receives plots and the results table.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// DBPath is the SQLite file for run history. Empty disables persistence.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `json:"log_level" yaml:"log_level"`

	Rates transmission.Rates `json:"rates" yaml:"rates"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Generations: engine.DefaultGenerations,
		Seed:        0,
		Workers:     4,
		Strategy:    transmission.IndirectBiasedTransmission,
		WireParams:  false,
		OutputDir:   "Output",
		LogLevel:    "info",
		Rates:       transmission.DefaultRates(),
	}
}

// Load reads defaults, then path (if non-empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Generations = envIntOrDefault("CULTURESIM_GENERATIONS", c.Generations)
	c.Workers = envIntOrDefault("CULTURESIM_WORKERS", c.Workers)
	c.Strategy = envOrDefault("CULTURESIM_STRATEGY", c.Strategy)
	c.OutputDir = envOrDefault("CULTURESIM_OUTPUT_DIR", c.OutputDir)
	c.DBPath = envOrDefault("CULTURESIM_DB", c.DBPath)
	c.LogLevel = envOrDefault("CULTURESIM_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("CULTURESIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
	if v := os.Getenv("CULTURESIM_WIRE_PARAMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.WireParams = b
		}
	}
}

// Validate checks the configuration once at startup.
func (c *Config) Validate() error {
	if c.Generations < 0 {
		return fmt.Errorf("%w: generations %d must not be negative", ErrInvalidConfig, c.Generations)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalidConfig, c.Workers)
	}
	if !transmission.Known(c.Strategy) {
		return fmt.Errorf("%w: unknown strategy %q (known: %s)",
			ErrInvalidConfig, c.Strategy, strings.Join(transmission.Names(), ", "))
	}
	if err := c.Rates.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
