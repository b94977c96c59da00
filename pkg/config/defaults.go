package config

import "strings"

// ApplyDefaults fills in any unspecified fields with sensible defaults.
// Zero values (0, "", false) are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Nodes == 0 {
		cfg.Nodes = 4
	}
	if cfg.CapacityBytes == 0 {
		cfg.CapacityBytes = 1 << 30 // 1 GiB
	}
	if cfg.Policy == "" {
		cfg.Policy = "roundrobin"
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "/tmp/blockmesh"
	}

	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	// The admin HTTP server (serving /status always, /metrics when
	// Enabled) needs a port regardless of whether metrics are on.
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// DefaultConfig returns a Config with every default applied, suitable for
// generating a sample configuration file or for tests.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
