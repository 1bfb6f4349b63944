package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"sensorquest/internal/metrics"
)

// NewRouter wires all HTTP routes. Mission runs go through POST so callers
// cannot trigger sampling with a stray GET.
func NewRouter(logger *slog.Logger, session gameSession, m *metrics.Metrics, ready func() bool) *mux.Router {
	h := &Handlers{log: logger, session: session, ready: ready}

	r := mux.NewRouter()
	r.Handle("/missions", m.WrapHandler("missions", http.HandlerFunc(h.listMissions))).Methods(http.MethodGet)
	r.Handle("/missions/{id}", m.WrapHandler("mission", http.HandlerFunc(h.getMission))).Methods(http.MethodGet)
	r.Handle("/missions/{id}/run", m.WrapHandler("mission_run", http.HandlerFunc(h.runMission))).Methods(http.MethodPost)
	r.Handle("/score", m.WrapHandler("score", http.HandlerFunc(h.getScore))).Methods(http.MethodGet)
	r.HandleFunc("/health", h.healthLive).Methods(http.MethodGet)
	r.HandleFunc("/health/live", h.healthLive).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.healthReady).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return r
}

// Server bundles the configured http.Server with its logger.
type Server struct {
	HTTP *http.Server
	Log  *slog.Logger
}

// NewServer wraps the router with access logging and panic recovery and
// applies the configured timeouts.
func NewServer(addr string, logger *slog.Logger, accessLog io.Writer, router *mux.Router, readTimeout, writeTimeout time.Duration) *Server {
	wrapped := handlers.LoggingHandler(accessLog, handlers.RecoveryHandler()(router))
	hs := &http.Server{
		Addr:              addr,
		Handler:           wrapped,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       writeTimeout,
	}
	return &Server{HTTP: hs, Log: logger.With(slog.String("component", "http_server"))}
}

// Start blocks serving requests until Stop or a listener error.
func (s *Server) Start() error {
	s.Log.Info("http_server_listen", slog.String("address", s.HTTP.Addr))
	return s.HTTP.ListenAndServe()
}

// Stop drains in-flight requests within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.Log.Info("http_server_stopping")
	return s.HTTP.Shutdown(ctx)
}
