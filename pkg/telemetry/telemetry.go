// Package telemetry records per-run counters for the metrics backend client.
//
// A run is a one-shot batch job, so nothing is served over HTTP; the
// registry is dumped in the node-exporter textfile format on request.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podopt"

// Series outcomes recorded by ObserveSeries
const (
	SeriesEmitted          = "emitted"
	SeriesSkippedNoValues  = "no_values"
	SeriesSkippedNamespace = "namespace"
	SeriesSkippedTags      = "tags"
)

// Selector attempt outcomes recorded by ObserveAttempt
const (
	AttemptSuccess = "success"
	AttemptEmpty   = "empty"
	AttemptError   = "error"
)

// Metrics holds the collectors of one run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	pages            prometheus.Counter
	series           *prometheus.CounterVec
	selectorAttempts *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Metrics API requests by HTTP status code and method.",
		}, []string{"code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Metrics API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Result pages fetched from the metrics API.",
		}),
		series: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_total",
			Help:      "Time series seen during normalization by outcome.",
		}, []string{"outcome"}),
		selectorAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selector_attempts_total",
			Help:      "Selector attempts by metric type and outcome.",
		}, []string{"metric_type", "outcome"}),
	}

	m.Registry.MustRegister(m.requests, m.requestDuration, m.pages, m.series, m.selectorAttempts)
	return m
}

// InstrumentRoundTripper wraps next with request counting and latency tracking
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if m == nil {
		return next
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.requests,
		promhttp.InstrumentRoundTripperDuration(m.requestDuration, next))
}

// ObservePage counts one fetched result page
func (m *Metrics) ObservePage() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

// ObserveSeries counts n series with the given outcome
func (m *Metrics) ObserveSeries(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.series.WithLabelValues(outcome).Add(float64(n))
}

// ObserveAttempt counts one selector attempt
func (m *Metrics) ObserveAttempt(metricType, outcome string) {
	if m == nil {
		return
	}
	m.selectorAttempts.WithLabelValues(metricType, outcome).Inc()
}

// WriteTextfile writes the registry in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
