// Package daemon serves the quiz and admin API over HTTP.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Awhitter/spanish1/internal/api"
	"github.com/Awhitter/spanish1/internal/api/middleware"
	"github.com/Awhitter/spanish1/internal/auth"
	"github.com/Awhitter/spanish1/internal/config"
	"github.com/Awhitter/spanish1/internal/exercise"
	"github.com/Awhitter/spanish1/internal/session"
)

// Version is reported by /v1/status
var Version = "0.1.0"

// Stats reports broadcast bus counters for /v1/status
type Stats interface {
	Subscribers() int
	Dropped() uint64
}

// Server represents the quiz daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	exercises *exercise.Service
	sessions  *session.Manager
	auth      *auth.Service
	bus       Stats
	limiter   *middleware.RateLimiter
	started   time.Time
}

// ServerConfig holds the collaborators of a server
type ServerConfig struct {
	Config    *config.LocalConfig
	Exercises *exercise.Service
	Sessions  *session.Manager
	Auth      *auth.Service
	Bus       Stats // optional
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:       cfg.Config,
		router:    http.NewServeMux(),
		exercises: cfg.Exercises,
		sessions:  cfg.Sessions,
		auth:      cfg.Auth,
		bus:       cfg.Bus,
		started:   time.Now(),
	}

	s.setupRoutes()

	rateCfg := middleware.DefaultRateLimitConfig()
	if cfg.Config.Daemon.RequestsPerMinute > 0 {
		rateCfg.RequestsPerMinute = cfg.Config.Daemon.RequestsPerMinute
	}
	s.limiter = middleware.NewRateLimitMiddleware(rateCfg)

	handler := middleware.Chain(s.router,
		middleware.RequestID,
		middleware.Recovery,
		middleware.Logger,
		middleware.CORS(cfg.Config.Daemon.CORSOrigins),
		s.limiter.Middleware,
	)

	s.server = &http.Server{
		Addr:              cfg.Config.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
		// no WriteTimeout: session event streams stay open
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/ready", s.handleReady)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Auth
	s.router.HandleFunc("POST /v1/auth/login", s.handleLogin)

	// Exercises
	s.router.HandleFunc("GET /v1/exercises", s.handleListExercises)
	s.router.HandleFunc("GET /v1/exercises/{id}", s.handleGetExercise)
	s.router.Handle("POST /v1/exercises", s.requireAdmin(http.HandlerFunc(s.handleCreateExercise)))
	s.router.Handle("POST /v1/exercises/import", s.requireAdmin(http.HandlerFunc(s.handleImportExercises)))
	s.router.Handle("PUT /v1/exercises/{id}", s.requireAdmin(http.HandlerFunc(s.handleUpdateExercise)))
	s.router.Handle("DELETE /v1/exercises/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteExercise)))
	s.router.HandleFunc("GET /v1/modules", s.handleListModules)

	// Sessions
	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.router.HandleFunc("POST /v1/sessions/{id}/answer", s.handleAnswer)
	s.router.HandleFunc("POST /v1/sessions/{id}/hint", s.sessionAction((*session.Engine).RequestHint))
	s.router.HandleFunc("POST /v1/sessions/{id}/skip", s.sessionAction((*session.Engine).Skip))
	s.router.HandleFunc("POST /v1/sessions/{id}/next", s.sessionAction((*session.Engine).Next))
	s.router.HandleFunc("POST /v1/sessions/{id}/reset", s.sessionAction(func(e *session.Engine) (session.Snapshot, error) {
		return e.Reset(), nil
	}))
	s.router.HandleFunc("POST /v1/sessions/{id}/reload", s.handleReload)
	s.router.HandleFunc("GET /v1/sessions/{id}/events", s.handleSessionEvents)
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting spanish daemon",
		"addr", s.server.Addr,
		"storage", s.cfg.Storage.Driver,
		"broadcast", s.cfg.Broadcast.Driver,
		"admin", s.auth.Configured(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	// Close live sessions first so event streams end
	s.sessions.Close()

	if err := s.limiter.Close(); err != nil {
		slog.Warn("failed to close rate limiter", "error", err)
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.exercises.Ping(r.Context()); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":         "running",
		"version":        Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"storage":        s.cfg.Storage.Driver,
		"broadcast":      s.cfg.Broadcast.Driver,
		"sessions":       s.sessions.Len(),
		"admin":          s.auth.Configured(),
	}
	if s.bus != nil {
		status["subscribers"] = s.bus.Subscribers()
		status["dropped_events"] = s.bus.Dropped()
	}
	api.WriteJSON(w, http.StatusOK, status)
}

type loginRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	token, err := s.auth.Login(r.Context(), middleware.ClientIP(r), req.Secret)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	slog.Info("admin login", "ip", middleware.ClientIP(r))
	api.WriteJSON(w, http.StatusOK, token)
}
