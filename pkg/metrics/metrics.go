// Package metrics exposes a process-wide Prometheus registry, disabled by
// default. Callers construct metrics recorders through the constructors in
// this package; each returns a nil interface value when metrics are
// disabled, so every call site using the metrics package helpers
// (SetBlocksFree, IncAllocFailures, ...) is a no-op rather than a branch.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	enabled  bool
	registry *prometheus.Registry
)

// Init enables or disables metrics collection for the process. Called once
// at startup from the loaded configuration. Enabling creates a fresh
// registry; disabling drops any previously created one.
func Init(enable bool) *prometheus.Registry {
	enabled = enable
	if !enabled {
		registry = nil
		return nil
	}
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}
