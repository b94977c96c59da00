// Package prometheus provides the Prometheus-backed implementations of the
// metrics interfaces declared in pkg/metrics. It registers its
// constructors with pkg/metrics during init, so importing this package for
// its side effect (typically from cmd/blockmeshd) is what makes a
// Prometheus backend available. Collection itself happens only after
// metrics.Init(true); otherwise pkg/metrics hands out nil recorders.
package prometheus

import (
	"strconv"
	"time"

	"github.com/blockmesh/blockmesh/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterCoordinatorMetricsConstructor(newCoordinatorMetrics)
}

type coordinatorMetrics struct {
	blocksFree      *prometheus.GaugeVec
	totalBlocksFree prometheus.Gauge
	allocFailures   prometheus.Counter
	deallocs        prometheus.Counter
	opDuration      *prometheus.HistogramVec
}

func newCoordinatorMetrics() metrics.CoordinatorMetrics {
	reg := metrics.GetRegistry()

	return &coordinatorMetrics{
		blocksFree: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "blockmesh_node_blocks_free",
				Help: "Free blocks remaining on a single worker node",
			},
			[]string{"node_id"},
		),
		totalBlocksFree: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "blockmesh_blocks_free_total",
				Help: "Free blocks remaining across the whole cluster",
			},
		),
		allocFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "blockmesh_alloc_failures_total",
				Help: "Allocations rejected for lack of capacity",
			},
		),
		deallocs: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "blockmesh_deallocs_total",
				Help: "Blocks freed back to the pool",
			},
		),
		opDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blockmesh_operation_duration_milliseconds",
				Help:    "Duration of coordinator file operations",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
	}
}

func (m *coordinatorMetrics) SetBlocksFree(nodeID int32, free int64) {
	m.blocksFree.WithLabelValues(strconv.Itoa(int(nodeID))).Set(float64(free))
}

func (m *coordinatorMetrics) SetTotalBlocksFree(free int64) {
	m.totalBlocksFree.Set(float64(free))
}

func (m *coordinatorMetrics) IncAllocFailures() {
	m.allocFailures.Inc()
}

func (m *coordinatorMetrics) IncDeallocs() {
	m.deallocs.Inc()
}

func (m *coordinatorMetrics) ObserveOperation(op string, d time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(float64(d.Milliseconds()))
}
