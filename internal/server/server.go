// Package server exposes the current presence over HTTP and a websocket
// push stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/unklstewy/atc-presence/pkg/config"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

// Server holds the HTTP router and the hub it serves from.
type Server struct {
	router   *chi.Mux
	hub      *Hub
	cfg      config.ServerConfig
	started  time.Time
	database DatabaseStatus
}

// DatabaseStatus reports on the presence database for /healthz.
type DatabaseStatus interface {
	HealthCheck(ctx context.Context) bool
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// SessionResponse is the body of GET /api/v1/session.
type SessionResponse struct {
	SessionID uuid.UUID         `json:"session_id"`
	Identity  string            `json:"identity"`
	StartTime time.Time         `json:"start_time"`
	UpdatedAt time.Time         `json:"updated_at"`
	Counters  presence.Counters `json:"counters"`
}

// New creates a Server with all routes installed.
func New(cfg config.ServerConfig, hub *Hub) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		hub:     hub,
		cfg:     cfg,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// SetDatabase adds database health to /healthz. Call it before Run.
func (s *Server) SetDatabase(db DatabaseStatus) { s.database = db }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/presence", s.handleGetPresence)
		r.Get("/session", s.handleGetSession)
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("📡 Presence API listening on http://%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Truncate(time.Second).String(),
	}
	if a, ok := s.hub.Latest(); ok {
		resp["last_update"] = a.UpdatedAt
	}

	status := http.StatusOK
	if s.database != nil {
		healthy := s.database.HealthCheck(r.Context())
		dbStatus := map[string]interface{}{"healthy": healthy}
		if healthy {
			if stats, err := s.database.Stats(r.Context()); err == nil {
				dbStatus["stats"] = stats
			}
		} else {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		resp["database"] = dbStatus
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	a, ok := s.hub.Latest()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no presence published yet")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	a, ok := s.hub.Latest()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no presence published yet")
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		SessionID: a.SessionID,
		Identity:  a.Identity,
		StartTime: a.StartTime,
		UpdatedAt: a.UpdatedAt,
		Counters:  a.Counters,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
