// Package metrics exposes the Prometheus collectors of the settlement
// service and the echo middleware that feeds the HTTP ones.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	initiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_initiations_total",
			Help: "Total number of payment initiations by provider and result",
		},
		[]string{"provider", "result"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_callbacks_total",
			Help: "Total number of payment callbacks by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	outboxPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_outbox_published_total",
			Help: "Total number of outbox events relayed by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(initiationsTotal)
	prometheus.MustRegister(callbacksTotal)
	prometheus.MustRegister(outboxPublishedTotal)
}

const unmatchedPath = "unmatched"

// Middleware records request count and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the status before it is read
				c.Error(err)
			}

			// raw URLs would give the path label unbounded cardinality
			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			status := strconv.Itoa(c.Response().Status)

			httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func RecordInitiation(provider, result string) {
	initiationsTotal.WithLabelValues(provider, result).Inc()
}

func RecordCallback(provider, outcome string) {
	callbacksTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordOutboxPublished(result string) {
	outboxPublishedTotal.WithLabelValues(result).Inc()
}
