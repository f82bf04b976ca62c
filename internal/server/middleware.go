package server

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"farmacias-turno/internal/farmacias"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

const RequestIDHeader = "X-Request-Id"

// requestIDMiddleware keeps the caller's request id or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// noCacheMiddleware makes sure neither browsers nor intermediaries keep stale
// pharmacy lists around, the list changes every day.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func (s Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}
			s.tel.ReportBroken(
				report_server_panic,
				fmt.Errorf("%v", recovered),
				r.URL.Path,
				string(debug.Stack()),
			)
			s.writeJSON(w, http.StatusInternalServerError, farmacias.Envelope{Error: msgInternal})
		}()
		next.ServeHTTP(w, r)
	})
}

func (s Server) logRequest(out io.Writer, params handlers.LogFormatterParams) {
	s.tel.ReportDebug(
		"request",
		params.Request.Method,
		params.URL.RequestURI(),
		params.StatusCode,
		params.Size,
		params.Request.Header.Get(RequestIDHeader),
	)
	fmt.Fprintf(
		out,
		"%s %s %s %d %d\n",
		params.TimeStamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		params.Request.Method,
		params.URL.RequestURI(),
		params.StatusCode,
		params.Size,
	)
}
