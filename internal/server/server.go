// Package server provides the HTTP server for dice roll sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/dicecount/internal/overlay"
	"github.com/ayusman/dicecount/internal/roll"
	"github.com/ayusman/dicecount/internal/server/api"
	"github.com/ayusman/dicecount/internal/session"
)

// shutdownTimeout bounds how long Serve waits for open requests on exit.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Record     roll.Record
	Controller api.Controller
	Hub        *Hub
	Histogram  overlay.HistogramOptions
}

// Server represents the HTTP server for a dice roll session.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register read endpoints if a Record is configured
	if s.config.Record != nil {
		rolls := api.NewRollsHandler(s.config.Record)
		s.mux.Handle("/api/summary", rolls)
		s.mux.Handle("/api/rolls", rolls)
		s.mux.Handle("/api/captures", rolls)
		s.mux.Handle("/api/histogram.png", NewHistogramHandler(s.config.Record, s.config.Histogram))
	}

	// Register trigger endpoints if a Controller is configured
	if s.config.Controller != nil {
		s.mux.Handle("/api/capture", api.NewTriggerHandler(s.config.Controller, session.Capture))
		s.mux.Handle("/api/stop", api.NewTriggerHandler(s.config.Controller, session.Stop))
	}

	// Register live feeds if a Hub is configured
	if s.config.Hub != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Hub))
		s.mux.Handle("/api/dice", NewDiceHandler(s.config.Hub))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Hub != nil {
		_, seq := s.config.Hub.Latest()
		response["frames"] = seq
		response["clients"] = s.config.Hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// Request contexts derive from ctx so open streams end with it.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
