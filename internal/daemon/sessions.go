package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Awhitter/spanish1/internal/api"
	"github.com/Awhitter/spanish1/internal/session"
)

// keepAliveInterval spaces SSE comments that keep proxies from closing idle streams
const keepAliveInterval = 25 * time.Second

type createSessionRequest struct {
	Module string `json:"module"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// handleCreateSession starts a session. A failed initial load still returns
// the session (in the error state) so the client can retry via /reload.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	_, snap, err := s.sessions.Create(r.Context(), strings.TrimSpace(req.Module))
	if err != nil {
		slog.Warn("session created in error state", "session_id", snap.ID, "error", err)
	}
	api.WriteJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Apply(r.Context(), r.PathValue("id"), func(e *session.Engine) (session.Snapshot, error) {
		return e.Snapshot(), nil
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(r.Context(), r.PathValue("id")); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	s.respond(w, r, func(e *session.Engine) (session.Snapshot, error) {
		return e.Answer(req.Answer)
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Apply(r.Context(), r.PathValue("id"), func(e *session.Engine) (session.Snapshot, error) {
		return e.Load(r.Context())
	})
	if err != nil && snap.ID == "" {
		api.WriteErr(w, r, err)
		return
	}
	// a failed reload is reported through the snapshot's error state
	api.WriteJSON(w, http.StatusOK, snap)
}

// sessionAction adapts an engine transition to a handler
func (s *Server) sessionAction(fn func(*session.Engine) (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, fn)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn func(*session.Engine) (session.Snapshot, error)) {
	snap, err := s.sessions.Apply(r.Context(), r.PathValue("id"), fn)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, snap)
}

// handleSessionEvents streams snapshots as Server-Sent Events. The current
// snapshot is sent first.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	e, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.InternalError(w, r, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates, cancel := e.Listen()
	defer cancel()

	if err := writeEvent(w, "snapshot", e.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := writeEvent(w, "snapshot", snap); err != nil {
				slog.Debug("event stream write failed", "session_id", e.ID(), "error", err)
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
