// Package server wires the hub, the handshake authenticator and the HTTP
// handlers together without package-level state.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat-relay/internal/auth"
)

// Authenticator verifies the credential presented on the WebSocket handshake.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

// Server serves the relay endpoints for one hub.
type Server struct {
	cfg      Config
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New creates a Server. A nil authenticator accepts unauthenticated handshakes
// and trusts the user id each client claims in join.
func New(cfg Config, hub *Hub, authenticator Authenticator, log *slog.Logger) *Server {
	origins := newOriginPolicy(cfg.Origins(), log)
	return &Server{
		cfg:  cfg,
		hub:  hub,
		auth: authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}
}

// Hub returns the hub the server relays through.
func (s *Server) Hub() *Hub {
	return s.hub
}
