package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gancio_sync"

// Metrics collects application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncAttempts   *prometheus.CounterVec
	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	outcomesStored *prometheus.CounterVec
	hookRequests   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with the Go
// and process collectors, on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Remote sync attempts by source, operation and status",
		}, []string{"source", "operation", "status"}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "HTTP requests sent to the Gancio instance",
		}, []string{"method", "code"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of HTTP requests sent to the Gancio instance",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		outcomesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_stored_total",
			Help:      "Outcome messages recorded for display",
		}, []string{"kind"}),
		hookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_requests_total",
			Help:      "Lifecycle hook requests by hook and result",
		}, []string{"hook", "result"}),
	}

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncAttempts,
		m.remoteRequests,
		m.remoteDuration,
		m.outcomesStored,
		m.hookRequests,
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}

	return m, nil
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSync counts one remote sync attempt
func (m *Metrics) RecordSync(source, operation, status string) {
	if m == nil {
		return
	}
	m.syncAttempts.WithLabelValues(source, operation, status).Inc()
}

// ObserveRemote records a completed or failed request to the remote instance.
// statusCode 0 means the request never completed.
func (m *Metrics) ObserveRemote(method string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.remoteRequests.WithLabelValues(method, code).Inc()
	m.remoteDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordOutcome counts a stored outcome message
func (m *Metrics) RecordOutcome(kind string) {
	if m == nil {
		return
	}
	m.outcomesStored.WithLabelValues(kind).Inc()
}

// RecordHook counts a lifecycle hook request
func (m *Metrics) RecordHook(hook, result string) {
	if m == nil {
		return
	}
	m.hookRequests.WithLabelValues(hook, result).Inc()
}
