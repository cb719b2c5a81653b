package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics exposes counters/histograms for API calls and client-side rejections.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	rejectionsTotal *prometheus.CounterVec
	staleResponses  *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests by route and outcome",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "Latency of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "flows",
			Name:      "validation_rejections_total",
			Help:      "Submissions rejected before reaching the API",
		}, []string{"flow", "field"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "flows",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the selection changed while in flight",
		}, []string{"flow"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.rejectionsTotal, m.staleResponses)
	return m
}

// ObserveRequest records one API call. status is 0 when no response arrived.
func (m *ClientMetrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(method, route, label).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *ClientMetrics) ObserveRejection(flow, field string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(flow, field).Inc()
}

func (m *ClientMetrics) ObserveStale(flow string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(flow).Inc()
}
