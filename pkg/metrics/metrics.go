// Package metrics provides Prometheus instrumentation for gosteal
// components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gosteal components.
type Registry struct {
	// Work-stealing protocol metrics
	StealRequestsSent      *prometheus.GaugeVec
	StealRequestsReceived  *prometheus.GaugeVec
	StealRequestsDiscarded *prometheus.GaugeVec
	StolenFromPending      *prometheus.GaugeVec
	StolenToPending        *prometheus.GaugeVec

	// Queue metrics
	QueuePending    *prometheus.GaugeVec
	QueueStaged     *prometheus.GaugeVec
	PendingAccesses *prometheus.GaugeVec
	PendingMisses   *prometheus.GaugeVec

	// Worker pool metrics
	WorkerPoolSize    *prometheus.GaugeVec
	WorkerPoolRunning *prometheus.GaugeVec
	TasksExecuted     *prometheus.CounterVec
	TasksFailed       *prometheus.CounterVec
	TaskDuration      *prometheus.HistogramVec

	// Timed admission metrics
	TasksScheduled *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by gosteal
// components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus
// registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	workerLabels := []string{"scheduler_name", "worker"}

	return &Registry{
		StealRequestsSent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "scheduler",
				Name:      "steal_requests_sent",
				Help:      "Steal requests emitted or forwarded per worker",
			},
			workerLabels,
		),

		StealRequestsReceived: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "scheduler",
				Name:      "steal_requests_received",
				Help:      "Steal requests drained per worker",
			},
			workerLabels,
		),

		StealRequestsDiscarded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "scheduler",
				Name:      "steal_requests_discarded",
				Help:      "Own steal requests dropped after returning home",
			},
			workerLabels,
		),

		StolenFromPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "scheduler",
				Name:      "stolen_from_pending",
				Help:      "Threads extracted from this worker's pending queue by thieves",
			},
			workerLabels,
		),

		StolenToPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "scheduler",
				Name:      "stolen_to_pending",
				Help:      "Stolen threads admitted to this worker's pending queue",
			},
			workerLabels,
		),

		QueuePending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "queue",
				Name:      "pending_length",
				Help:      "Pending threads per worker queue",
			},
			workerLabels,
		),

		QueueStaged: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "queue",
				Name:      "staged_length",
				Help:      "Staged threads per worker queue",
			},
			workerLabels,
		),

		PendingAccesses: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "queue",
				Name:      "pending_accesses",
				Help:      "Pop attempts on the pending queue per worker",
			},
			workerLabels,
		),

		PendingMisses: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "queue",
				Name:      "pending_misses",
				Help:      "Failed pop attempts on the pending queue per worker",
			},
			workerLabels,
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Number of workers in the pool",
			},
			[]string{"pool_name"},
		),

		WorkerPoolRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gosteal",
				Subsystem: "workerpool",
				Name:      "running",
				Help:      "Pool running state (1=running, 0=stopped)",
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gosteal",
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of thread executions",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gosteal",
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of thread executions that panicked",
			},
			[]string{"pool_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gosteal",
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing threads",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gosteal",
				Subsystem: "timed",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of timed task admissions",
			},
			[]string{"scheduler_name"},
		),
	}
}
