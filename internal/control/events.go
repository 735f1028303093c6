package control

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// eventPollInterval mirrors the orchestrator's own watchdog tick so a
// connected client observes state at the same cadence the session record
// itself is refreshed at.
const eventPollInterval = 1 * time.Second

var upgrader = websocket.Upgrader{
	// Same-origin browser clients and local tooling both hit this socket;
	// there is no cookie-based session to protect against cross-origin reads.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionEvents streams a SessionStatus JSON frame on a fixed interval
// for as long as the session exists and the socket stays open. It never
// blocks GET /sessions/{id}/status, which remains the authoritative
// standalone polling surface.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.orch.Registry().Get(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("events: websocket upgrade failed", "sessionId", id, "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	for {
		session, ok := s.orch.Registry().Get(id)
		if !ok {
			return
		}

		if err := conn.WriteJSON(toSessionStatus(session.Status())); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
