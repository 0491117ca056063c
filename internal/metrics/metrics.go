// Package metrics provides Prometheus metrics for the module outcome reporter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

var (
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreport_reports_total",
			Help: "Total number of module outcome reports by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modreport_store_query_duration_seconds",
			Help:    "Duration of grouped aggregations against the task-result store",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"variant"},
	)
	ModulesReported = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modreport_modules_reported",
			Help:    "Number of modules in a served report",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"variant"},
	)
	DigestsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreport_digests_enqueued_total",
			Help: "Total number of digest jobs enqueued",
		},
		[]string{"variant"},
	)
	DigestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modreport_digests_sent_total",
			Help: "Total number of digest emails sent",
		},
	)
	DigestsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modreport_digests_failed_total",
			Help: "Total number of digest jobs that failed",
		},
	)
	DigestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modreport_digest_queue_depth",
			Help: "Current number of digest jobs waiting in the queue",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreport_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modreport_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordReport(variant, outcome string) {
	ReportsTotal.WithLabelValues(variant, outcome).Inc()
}

func RecordStoreQuery(variant string, duration time.Duration) {
	StoreQueryDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

func RecordModulesReported(variant string, modules int) {
	ModulesReported.WithLabelValues(variant).Observe(float64(modules))
}

func RecordDigestEnqueued(variant string) {
	DigestsEnqueued.WithLabelValues(variant).Inc()
}

func RecordDigestSent() {
	DigestsSent.Inc()
}

func RecordDigestFailed() {
	DigestsFailed.Inc()
}

func UpdateDigestQueueDepth(depth int) {
	DigestQueueDepth.Set(float64(depth))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
