package server

import (
	"net/http"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/farmacias"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) metrics {
	m := metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmacias_http_requests_total",
			Help: "HTTP requests served, by handler and status code.",
		}, []string{"handler", "code", "method"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmacias_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests, including the upstream acquisition.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"handler", "method"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmacias_upstream_results_total",
			Help: "Farmacias queries by outcome.",
		}, []string{"outcome"}),
	}
	registerer.MustRegister(m.requests, m.durations, m.results)
	return m
}

func (m metrics) instrument(handler string, next http.Handler) http.Handler {
	assert.NotEmptyStr(handler)

	labels := prometheus.Labels{"handler": handler}
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(
			m.durations.MustCurryWith(labels),
			next,
		),
	)
}

func (m metrics) observeEnvelope(envelope farmacias.Envelope) {
	outcome := "ok"
	if !envelope.OK {
		outcome = "failure"
	}
	m.results.WithLabelValues(outcome).Inc()
}
