package handler

// metrics.go has the prometheus metrics of the handler.  A nil *metrics (no registerer) records nothing.

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gqlview"

type metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests handled by method and status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to handle HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Number of GraphQL operations executed by type and result.",
		}, []string{"operation", "result"}),
	}
	m.requests = register(registerer, m.requests)
	m.duration = register(registerer, m.duration)
	m.operations = register(registerer, m.operations)
	return m
}

// register registers c, or returns the existing collector if one with the same description is already registered
// (eg when more than one handler shares a registry)
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic("gqlview.handler - registering metrics: " + err.Error())
	}
	return c
}

func (m *metrics) observeRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	if duration > 0 {
		m.duration.WithLabelValues(method).Observe(duration.Seconds())
	}
}

func (m *metrics) observeOperation(operation string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}
