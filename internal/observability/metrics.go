package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	WebSocketConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"namespace"},
	)

	WebSocketAuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_auth_failures_total",
			Help: "WebSocket handshakes rejected by the token verifier",
		},
		[]string{"namespace"},
	)

	LiveEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_events_total",
			Help: "Live events pushed to connections, by route",
		},
		[]string{"namespace", "route", "status"},
	)

	NotificationJobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_jobs_enqueued_total",
			Help: "Notification jobs handed to the queue",
		},
		[]string{"status"},
	)

	NotificationJobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_jobs_processed_total",
			Help: "Notification jobs processed by the dispatcher",
		},
		[]string{"result"},
	)

	NotificationChannelDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_deliveries_total",
			Help: "Per-channel delivery attempts",
		},
		[]string{"channel", "status"},
	)

	NotificationJobLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_job_latency_seconds",
			Help:    "Latency from enqueue to end of channel fan-out",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)
)
