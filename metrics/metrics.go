// Package metrics exposes Prometheus instrumentation for the dispatch
// pipeline. Metrics are registered once on the default registry; components
// obtain the shared instance via Shared().
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for AgentHub.
type Metrics struct {
	// Queue metrics
	QueueDepth   prometheus.Gauge
	JobsEnqueued *prometheus.CounterVec

	// Router metrics
	JobsDispatched  *prometheus.CounterVec
	JobsDropped     *prometheus.CounterVec
	SlotsReconciled prometheus.Counter

	// Executor metrics
	ActiveExecutors  *prometheus.GaugeVec
	JobRetries       prometheus.Counter
	JobsSucceeded    prometheus.Counter
	JobsFailed       prometheus.Counter
	ExecutorDuration *prometheus.HistogramVec

	// Producer metrics
	CronFires        *prometheus.CounterVec
	MessagesIngested *prometheus.CounterVec
	MessagesDenied   *prometheus.CounterVec
	ReplyErrors      *prometheus.CounterVec

	// Supervision metrics
	WorkerRestarts *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// Shared returns the process-wide metrics instance, registering all
// collectors on first use.
func Shared() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "agenthub_queue_depth",
				Help: "Current number of jobs waiting in the shared queue",
			}),
			JobsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_jobs_enqueued_total",
				Help: "Jobs enqueued on the shared queue by producer",
			}, []string{"producer"}),
			JobsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_jobs_dispatched_total",
				Help: "Jobs handed to a session executor by agent",
			}, []string{"agent"}),
			JobsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_jobs_dropped_total",
				Help: "Jobs dropped by the router by reason",
			}, []string{"reason"}),
			SlotsReconciled: promauto.NewCounter(prometheus.CounterOpts{
				Name: "agenthub_admission_slots_reconciled_total",
				Help: "Reconcile passes that removed stale admission slots",
			}),
			ActiveExecutors: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "agenthub_active_executors",
				Help: "Session executors currently holding an admission permit",
			}, []string{"agent"}),
			JobRetries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "agenthub_job_retries_total",
				Help: "Jobs re-enqueued after a transient failure",
			}),
			JobsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
				Name: "agenthub_jobs_succeeded_total",
				Help: "Jobs whose result future resolved with a value",
			}),
			JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "agenthub_jobs_failed_total",
				Help: "Jobs whose result future resolved with a failure",
			}),
			ExecutorDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "agenthub_executor_duration_seconds",
				Help:    "Wall time of one session executor run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			}, []string{"agent"}),
			CronFires: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_cron_fires_total",
				Help: "Cron definitions fired by name",
			}, []string{"cron"}),
			MessagesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_messages_ingested_total",
				Help: "Inbound platform messages turned into jobs",
			}, []string{"platform"}),
			MessagesDenied: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_messages_denied_total",
				Help: "Inbound platform messages rejected by the allow predicate",
			}, []string{"platform"}),
			ReplyErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_reply_errors_total",
				Help: "Platform reply deliveries that failed and were swallowed",
			}, []string{"platform"}),
			WorkerRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "agenthub_worker_restarts_total",
				Help: "Background workers restarted by the supervision loop",
			}, []string{"worker"}),
		}
	})
	return sharedMetrics
}
