package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/chrono"
	"farmacias-turno/internal/components/telemetry"
	"farmacias-turno/internal/farmacias"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	report_server_encode = "server.encode"
	report_server_panic  = "server.panic"
)

const (
	msgInternal = "Error interno del servidor"
	msgNotFound = "Ruta no encontrada"
)

// Mounts are the path prefixes every route is served under, the same handlers
// answer a standalone deployment and a serverless function.
var Mounts = []string{"/api", "/.netlify/functions/api", ""}

// Runner answers a farmacias query, farmacias.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, comuna string) farmacias.Envelope
}

type Options struct {
	Runner Runner
	Clock  chrono.API
	Tel    telemetry.API
	// Registry receives the http metrics and is served at /metrics, a new one
	// is created when nil.
	Registry *prometheus.Registry
	// AccessLog receives one line per request, defaults to io.Discard (requests
	// are still reported through Tel).
	AccessLog io.Writer
}

type Server struct {
	runner  Runner
	clock   chrono.API
	tel     telemetry.API
	metrics metrics
	handler http.Handler
}

func New(opts Options) Server {
	assert.NotNil(opts.Runner)
	assert.NotNil(opts.Clock)
	assert.NotNil(opts.Tel)

	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = io.Discard
	}

	s := Server{
		runner:  opts.Runner,
		clock:   opts.Clock,
		tel:     telemetry.NewScopedAPI("server", opts.Tel),
		metrics: newMetrics(opts.Registry),
	}

	router := mux.NewRouter()
	for _, mount := range Mounts {
		router.Handle(mount+"/farmacias", s.metrics.instrument("farmacias", http.HandlerFunc(s.farmacias))).
			Methods(http.MethodGet)
		router.Handle(mount+"/health", s.metrics.instrument("health", http.HandlerFunc(s.health))).
			Methods(http.MethodGet)
	}
	router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(s.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.notFound)

	// wrapped around the router instead of router.Use, which would skip the
	// not found and method not allowed responses
	var handler http.Handler = router
	handler = s.recoveryMiddleware(handler)
	handler = noCacheMiddleware(handler)
	handler = requestIDMiddleware(handler)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	s.handler = handlers.CustomLoggingHandler(opts.AccessLog, cors(handler), s.logRequest)

	return s
}

func (s Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s Server) writeJSON(w http.ResponseWriter, status int, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		s.tel.ReportBroken(report_server_encode, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func (s Server) farmacias(w http.ResponseWriter, r *http.Request) {
	comuna := r.URL.Query().Get("comuna")
	envelope := s.runner.Run(r.Context(), comuna)
	s.metrics.observeEnvelope(envelope)
	s.writeJSON(w, envelope.Status(), envelope)
}

type healthResponse struct {
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
}

func (s Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		OK:        true,
		Timestamp: chrono.ISOTimestamp(s.clock.Now()),
	})
}

func (s Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, farmacias.Envelope{Error: msgNotFound})
}
