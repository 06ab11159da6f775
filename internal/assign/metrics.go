package assign

import "github.com/prometheus/client_golang/prometheus"

// Metric names mirror the style of the teacher's task-scheduler gauges
// (TaskQueueCapacity, TaskQueueUtilization, TaskQueuePendingTotal, ...),
// renamed to this package's domain.
var (
	QueuePendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coordinator",
		Subsystem: "assign",
		Name:      "queue_pending",
		Help:      "Number of workflows currently waiting in the priority queue.",
	})

	AssignmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coordinator",
		Subsystem: "assign",
		Name:      "assignments_total",
		Help:      "Total number of workflows successfully assigned to a peer.",
	})

	NoPeersAvailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coordinator",
		Subsystem: "assign",
		Name:      "no_peers_available_total",
		Help:      "Total number of per-workflow assignment attempts that found an empty roster.",
	})

	AssignmentDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coordinator",
		Subsystem: "assign",
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of a single assign_workflows() call.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(QueuePendingGauge, AssignmentsTotal, NoPeersAvailableTotal, AssignmentDuration)
}
