package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Gate metrics
	SignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slackbot_signature_failures_total",
			Help: "Requests rejected by signature verification",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackbot_events_received_total",
			Help: "Verified events by classified kind",
		},
		[]string{"kind"},
	)

	DuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slackbot_duplicate_deliveries_total",
			Help: "Retried deliveries suppressed by event id",
		},
	)

	// Dispatch metrics
	DispatchesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackbot_dispatches_started_total",
			Help: "Background work items started",
		},
		[]string{"kind"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackbot_dispatch_failures_total",
			Help: "Background work items that ended in error",
		},
		[]string{"kind"},
	)

	AgentTurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slackbot_agent_turn_duration_seconds",
			Help:    "End-to-end agent turn latency",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackbot_tool_calls_total",
			Help: "Agent tool invocations",
		},
		[]string{"tool", "status"},
	)

	// Persistence metrics
	CacheSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slackbot_cache_save_failures_total",
			Help: "Conversation cache persistence failures",
		},
	)
)
