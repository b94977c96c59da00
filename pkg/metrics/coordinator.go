package metrics

import "time"

// CoordinatorMetrics records coordinator-side allocation and operation
// activity. Implementations are obtained through NewCoordinatorMetrics,
// which returns nil when metrics are disabled; every package-level helper
// below tolerates a nil receiver so call sites never branch on whether
// metrics are enabled.
type CoordinatorMetrics interface {
	SetBlocksFree(nodeID int32, free int64)
	SetTotalBlocksFree(free int64)
	IncAllocFailures()
	IncDeallocs()
	ObserveOperation(op string, d time.Duration)
}

// newPrometheusCoordinatorMetrics is populated by
// pkg/metrics/prometheus/coordinator.go's init(), mirroring the
// registration indirection used elsewhere in this codebase to avoid an
// import cycle between metrics and its prometheus backend.
var newPrometheusCoordinatorMetrics func() CoordinatorMetrics

// RegisterCoordinatorMetricsConstructor registers the Prometheus-backed
// constructor. Called from pkg/metrics/prometheus's init().
func RegisterCoordinatorMetricsConstructor(ctor func() CoordinatorMetrics) {
	newPrometheusCoordinatorMetrics = ctor
}

// NewCoordinatorMetrics returns a metrics recorder, or nil if metrics are
// disabled or no backend has registered itself.
func NewCoordinatorMetrics() CoordinatorMetrics {
	if !IsEnabled() || newPrometheusCoordinatorMetrics == nil {
		return nil
	}
	return newPrometheusCoordinatorMetrics()
}

func SetBlocksFree(m CoordinatorMetrics, nodeID int32, free int64) {
	if m != nil {
		m.SetBlocksFree(nodeID, free)
	}
}

func SetTotalBlocksFree(m CoordinatorMetrics, free int64) {
	if m != nil {
		m.SetTotalBlocksFree(free)
	}
}

func IncAllocFailures(m CoordinatorMetrics) {
	if m != nil {
		m.IncAllocFailures()
	}
}

func IncDeallocs(m CoordinatorMetrics) {
	if m != nil {
		m.IncDeallocs()
	}
}

func ObserveOperation(m CoordinatorMetrics, op string, d time.Duration) {
	if m != nil {
		m.ObserveOperation(op, d)
	}
}
