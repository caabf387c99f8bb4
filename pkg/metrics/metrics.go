package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP请求指标
var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ahmp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ahmp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ahmp_websocket_connections",
			Help: "Current number of open WebSocket connections",
		},
	)

	MatchProxyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ahmp_match_proxy_errors_total",
			Help: "Total number of matching service call failures",
		},
	)
)
