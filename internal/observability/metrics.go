package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// wsa-api metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsa_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsa_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsa_active_requests",
		Help: "Current in-flight requests",
	})

	BuildsQueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsa_builds_queued_total",
		Help: "Builds accepted by the API",
	}, []string{"transition"})

	// wsa-builder metrics
	BuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsa_build_total",
		Help: "Build completion count",
	}, []string{"transition", "status"})

	BuildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsa_build_duration_seconds",
		Help:    "Build job duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"transition"})

	BuildQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsa_build_queue_depth",
		Help: "Pending + canceling build jobs",
	})

	DequeueEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsa_dequeue_empty_total",
		Help: "Empty poll count",
	})

	BuilderActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsa_builder_active_jobs",
		Help: "Currently provisioning jobs",
	})

	// orchestrator metrics
	ActionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsa_action_total",
		Help: "Workspace actions by outcome",
	}, []string{"action", "outcome"})

	ActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsa_action_duration_seconds",
		Help:    "Workspace action round-trip time",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"action"})

	ActionsInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wsa_actions_in_flight",
		Help: "Workspace actions awaiting a response",
	}, []string{"action"})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests, BuildsQueuedTotal,
		BuildTotal, BuildDuration, BuildQueueDepth, DequeueEmptyTotal, BuilderActiveJobs,
		ActionTotal, ActionDuration, ActionsInFlight,
	)
}
