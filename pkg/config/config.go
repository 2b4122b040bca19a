package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	envConfigPath   = "HANDOFF_CONFIG"
	envWorkspace    = "ASSISTANT_PROJECT_ROOT"
	envPollInterval = "HANDOFF_POLL_INTERVAL"
	envMetricsAddr  = "HANDOFF_METRICS_ADDR"

	// DefaultWorkspace is used when neither the config file nor the environment names a root.
	DefaultWorkspace = "~/jules-workspace"
	// DefaultPollInterval is the sleep between poll cycles, in seconds.
	DefaultPollInterval = 10
)

// Config is the root runtime configuration for the handoff poller.
type Config struct {
	Workspace           string        `json:"workspace"`
	PollIntervalSeconds int           `json:"poll_interval_seconds"`
	Logging             LoggingConfig `json:"logging,omitempty"`
	Metrics             MetricsConfig `json:"metrics,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// MetricsConfig configures the optional status and metrics listener.
type MetricsConfig struct {
	Address string `json:"address,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Workspace:           DefaultWorkspace,
		PollIntervalSeconds: DefaultPollInterval,
	}
}

// LoadConfig applies defaults, the optional HANDOFF_CONFIG file, and environment overrides.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%s does not point to a file: %s", envConfigPath, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := json.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if root := strings.TrimSpace(os.Getenv(envWorkspace)); root != "" {
		cfg.Workspace = root
	}

	if raw := strings.TrimSpace(os.Getenv(envPollInterval)); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envPollInterval, err)
		}
		cfg.PollIntervalSeconds = seconds
	}

	if addr := strings.TrimSpace(os.Getenv(envMetricsAddr)); addr != "" {
		cfg.Metrics.Address = addr
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Workspace) == "" {
		result = multierror.Append(result, fmt.Errorf("workspace must not be empty"))
	}

	if c.PollIntervalSeconds <= 0 {
		result = multierror.Append(result, fmt.Errorf("poll_interval_seconds must be greater than 0, got %d", c.PollIntervalSeconds))
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	return result.ErrorOrNil()
}
