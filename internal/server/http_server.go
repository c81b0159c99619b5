// Package server constructs and starts the relay HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub runs the hub's event loop in a separate goroutine.
// This should be called before starting the HTTP server.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns an error if the server fails to start.
func (s *Server) StartServer(server *http.Server) error {
	s.log.Info("Server listening", "addr", server.Addr, "auth", s.auth != nil)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the context is done.
func (s *Server) ShutdownServer(ctx context.Context, server *http.Server) error {
	s.log.Info("Shutting down HTTP server...")

	if err := server.Shutdown(ctx); err != nil {
		s.log.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.log.Info("HTTP server shutdown completed")
	return nil
}
