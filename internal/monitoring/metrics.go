package monitoring

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gridstack"

// Registry collects every gridstack metric. Callers expose it with
// promhttp.HandlerFor or gather it directly.
var Registry = prometheus.NewRegistry()

var (
	// LockWaits counts lock obtains that had to block, by lock kind.
	LockWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lock",
		Name:      "waits_total",
		Help:      "Lock obtains that blocked on a contending holder.",
	}, []string{"kind"})

	// LockWaitWarnings counts waits that outlived the watchdog threshold.
	LockWaitWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lock",
		Name:      "wait_warnings_total",
		Help:      "Lock waits that exceeded the configured warning threshold.",
	}, []string{"kind"})

	// AttributeQueries counts temporal filter lookups by key and outcome
	// (local, forwarded).
	AttributeQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "temporal",
		Name:      "attribute_queries_total",
		Help:      "Attribute lookups answered locally or forwarded down the stack.",
	}, []string{"key", "outcome"})

	// DeserializeProblems counts recorded deserialization problems by
	// severity.
	DeserializeProblems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "temporal",
		Name:      "deserialize_problems_total",
		Help:      "Problems recorded while loading persisted filters.",
	}, []string{"severity"})

	// StoreOps times store operations.
	StoreOps = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "op_duration_seconds",
		Help:      "Latency of filter store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"op"})
)

func init() {
	Registry.MustRegister(LockWaits, LockWaitWarnings, AttributeQueries, DeserializeProblems, StoreOps)
}
