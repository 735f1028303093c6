// Package control implements the HTTP control plane: it translates requests
// into orchestrator operations and serves generated HLS output as static
// files, matching the route table the system exposes.
package control

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webcast/webcastd/internal/logging"
	"github.com/webcast/webcastd/internal/metrics"
	"github.com/webcast/webcastd/internal/orchestrator"
	"github.com/webcast/webcastd/internal/receiver"
)

var log = logging.L("control")

// Server wires an orchestrator, a receiver sender, and a metrics registry
// onto a chi router.
type Server struct {
	router *chi.Mux
	orch   *orchestrator.Orchestrator
	sender receiver.Sender
}

// New builds the control plane router. sessionsDir is served read-only under
// /cast/ so clients can fetch playlists and segments directly.
func New(orch *orchestrator.Orchestrator, sender receiver.Sender, sessionsDir string, m *metrics.Metrics) *Server {
	s := &Server{router: chi.NewRouter(), orch: orch, sender: sender}

	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Post("/sessions", s.handleCreateSession)
	s.router.Get("/sessions", s.handleListSessions)
	s.router.Get("/sessions/{id}/status", s.handleSessionStatus)
	s.router.Get("/sessions/{id}/events", s.handleSessionEvents)
	s.router.Delete("/sessions/{id}", s.handleDeleteSession)
	s.router.Get("/receivers", s.handleListReceivers)

	fileServer := http.StripPrefix("/cast/", http.FileServer(http.Dir(sessionsDir)))
	s.router.Get("/cast/*", fileServer.ServeHTTP)

	if m != nil {
		s.router.Handle("/metrics", m.Handler())
	}

	return s
}

// Handler returns the assembled router for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// requestLogger emits one structured log line per request, in the teacher's
// style of leaving request-scoped logging in the HTTP layer rather than the
// business logic it calls.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}
