package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NotificationsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_received_total",
			Help: "Webhook notifications received, by disposition.",
		},
		[]string{"disposition"}, // validation, accepted, unauthorized, invalid, publish_failed
	)

	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Orchestrator runs by terminal status.",
		},
		[]string{"status"}, // completed, degraded, failed, skipped
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Per-stage failures inside the orchestrator.",
		},
		[]string{"stage"},
	)

	FanoutUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_uploads_total",
			Help: "Per-recipient drive uploads by outcome.",
		},
		[]string{"outcome"}, // ok, failed
	)

	SubscriptionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "Subscription reconciliation operations.",
		},
		[]string{"operation"}, // created, renewed, failed
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Wall time of one orchestration run.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
)

// Init registers the service metrics with the default registry
func Init() {
	prometheus.MustRegister(
		NotificationsReceived,
		PipelineRuns,
		StageFailures,
		FanoutUploads,
		SubscriptionOps,
		RunDuration,
	)
}

// Handler exposes the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one finished run
func ObserveRun(status string, started time.Time) {
	PipelineRuns.WithLabelValues(status).Inc()
	RunDuration.Observe(time.Since(started).Seconds())
}
