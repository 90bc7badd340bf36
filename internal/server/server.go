// Package server provides the HTTP server for the sign-to-speech pipeline.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	// FilesDir is served under /files/ when uploads are stored locally.
	FilesDir string
}

// Server represents the HTTP server.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if a := s.config.App; a != nil {
		s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

		api.NewTranscriptHandler(a).Register(s.router)
		api.NewModelHandler(a).Register(s.router)
		api.NewCameraHandler(a).Register(s.router)
		api.NewSpeechHandler(a).Register(s.router)
		api.NewRecordingHandler(a).Register(s.router)
		api.NewVideoHandler(a).Register(s.router)

		s.router.Handle("/api/stream", NewStreamHandler(a)).Methods(http.MethodGet)
		s.router.Handle("/api/snapshot", NewSnapshotHandler(a)).Methods(http.MethodGet)
		s.router.Handle("/api/events", NewEventsHandler(a))
	}

	if s.config.FilesDir != "" {
		files := http.FileServer(http.Dir(s.config.FilesDir))
		s.router.PathPrefix("/files/").Handler(http.StripPrefix("/files/", files))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.PathPrefix("/").Handler(fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.App.Status())
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
