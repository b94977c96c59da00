// Package config loads and validates the static configuration for a
// blockmesh cluster: node count, total capacity, allocation policy, and
// the ambient logging/metrics settings.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (BLOCKMESH_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Environment variables only override keys that appear in the
// configuration file; when no file is found, they are not read at all and
// every field comes from the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete static configuration for a blockmesh cluster.
type Config struct {
	// Nodes is the number of worker data-nodes to spawn.
	Nodes int `mapstructure:"nodes" validate:"required,gt=0" yaml:"nodes"`

	// CapacityBytes is the total address-space capacity across all workers.
	CapacityBytes int64 `mapstructure:"capacity_bytes" validate:"required,gt=0" yaml:"capacity_bytes"`

	// Policy is the name of the registered allocation policy to use.
	Policy string `mapstructure:"policy" validate:"required" yaml:"policy"`

	// FileAwareThreshold is a block-count cutoff between "small" and
	// "large" files for the fileaware policy. It is loaded and validated
	// only: nothing passes it to the coordinator, whose fileaware policy
	// always uses policy.DefaultFileAwareThreshold.
	FileAwareThreshold int64 `mapstructure:"file_aware_threshold" validate:"gte=0" yaml:"file_aware_threshold"`

	// BaseDir is the filesystem root under which each worker creates its
	// own durable directory.
	BaseDir string `mapstructure:"base_dir" validate:"required" yaml:"base_dir"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus metrics server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls the cluster's admin HTTP server: always-on
// /status, and /metrics when Enabled.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection and the /metrics
	// HTTP endpoint. /status is served regardless of this setting.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port the admin HTTP server listens on.
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lt=65536" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if found {
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BLOCKMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("blockmesh")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// Save writes cfg to path in YAML form, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	data, err := marshalYAML(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}
