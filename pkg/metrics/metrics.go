package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch engine metrics
	DispatchOutcomes    *prometheus.CounterVec
	SendDuration        prometheus.Histogram
	QuotaDenials        *prometheus.CounterVec
	RecordWriteFailures prometheus.Counter

	// Retention worker metrics
	RecordsCleaned prometheus.Counter
	CleanupErrors  prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics registered against reg. Pass
// prometheus.DefaultRegisterer in binaries; tests use a fresh registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DispatchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_outcomes_total",
			Help:      "Total number of dispatch attempts by terminal outcome",
		}, []string{"outcome"}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent in the delivery transport per send",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QuotaDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denials_total",
			Help:      "Total number of quota-denied dispatches by window",
		}, []string{"window"}),
		RecordWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_record_write_failures_total",
			Help:      "Total number of dispatch records lost to a failed audit insert",
		}),
		RecordsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_records_cleaned_total",
			Help:      "Total number of dispatch records removed by retention cleanup",
		}),
		CleanupErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_errors_total",
			Help:      "Total number of failed retention cleanup runs",
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
