package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_api_requests_total",
			Help: "Total number of REST API requests issued by the client.",
		},
		[]string{"method", "route", "status"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_client_api_request_duration_seconds",
			Help:    "REST API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	debugRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_debug_http_requests_total",
			Help: "Total number of requests served by the local debug server.",
		},
		[]string{"method", "route", "status"},
	)
	realtimeActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_client_realtime_active_connections",
			Help: "Number of open realtime connections.",
		},
		[]string{"driver"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_realtime_events_total",
			Help: "Total number of realtime channel events.",
		},
		[]string{"driver", "event"},
	)
	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_cache_events_total",
			Help: "Total number of query cache events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		debugRequestsTotal,
		realtimeActive,
		realtimeEventsTotal,
		cacheEventsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware counts requests served by the debug server.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		debugRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// ObserveAPIRequest records one REST call. status is 0 when no response arrived.
func ObserveAPIRequest(method, route string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	apiRequestsTotal.WithLabelValues(method, route, label).Inc()
	apiRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncRealtimeActive(driver string) {
	realtimeActive.WithLabelValues(driver).Inc()
}

func DecRealtimeActive(driver string) {
	realtimeActive.WithLabelValues(driver).Dec()
}

func IncRealtimeEvent(driver, event string) {
	realtimeEventsTotal.WithLabelValues(driver, event).Inc()
}

func IncCacheEvent(kind, event string) {
	cacheEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
