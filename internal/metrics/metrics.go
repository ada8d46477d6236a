// Package metrics records prometheus metrics for calls made to the analytics API
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tukey"

// ClientMetrics tracks API calls by operation and outcome.
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewClientMetrics creates the metrics and registers them with reg
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_client",
			Name:      "requests_total",
			Help:      "Calls made to the analytics API.",
		}, []string{"operation", "outcome", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls made to the analytics API.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"operation"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Observe records one completed call. outcome is "success" or the error kind and status is 0 when no response was received.
func (m *ClientMetrics) Observe(operation, outcome string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// GatewayMetrics counts requests served by the local gateway.
// A nil *GatewayMetrics is valid and records nothing.
type GatewayMetrics struct {
	requests *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests served by the local gateway.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.requests)
	return m
}

// Observe records one served request. route is the matched route pattern, not the raw path.
func (m *GatewayMetrics) Observe(method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
