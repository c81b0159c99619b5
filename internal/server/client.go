// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/gochat-relay/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ClientOptions are the per-connection limits taken from Config.
type ClientOptions struct {
	MaxMessageSize int64
	SendBufferSize int
	RateLimit      RateLimitConfig
}

// ClientOptions derives the per-connection limits from the configuration.
func (c Config) ClientOptions() ClientOptions {
	return ClientOptions{
		MaxMessageSize: int64(c.MaxMessageSize),
		SendBufferSize: c.SendBufferSize,
		RateLimit:      c.RateLimit(),
	}
}

// Client is one live transport session. userID is owned by the hub loop.
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	identity    *auth.Identity
	userID      int64
	rateLimiter *rate.Limiter
	opts        ClientOptions
	log         *slog.Logger
}

// NewClient creates a Client for conn. identity is nil when the handshake was
// not authenticated.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, identity *auth.Identity, opts ClientOptions, log *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = defaultSendBufferSize
	}

	id := uuid.New().String()
	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, opts.SendBufferSize),
		hub:         hub,
		addr:        addr,
		identity:    identity,
		rateLimiter: newRateLimiter(opts.RateLimit.Burst, opts.RateLimit.RefillInterval),
		opts:        opts,
		log:         log.With("client", id),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's outbound frames.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// authorizeJoin rejects joins to a room other than the verified user's own.
// Unauthenticated clients may join any room.
func (c *Client) authorizeJoin(userID int64) error {
	if c.identity == nil || c.identity.UserID == userID {
		return nil
	}
	return fmt.Errorf("%w: token user %d, requested %d", ErrIdentityMismatch, c.identity.UserID, userID)
}

// typingIdentity is the sender identity placed in user_typing events.
func (c *Client) typingIdentity(mode TypingSender) any {
	if mode == TypingSenderConnection {
		return c.id
	}
	switch {
	case c.identity != nil:
		return c.identity.UserID
	case c.userID > 0:
		return c.userID
	default:
		return c.id
	}
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError logs why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "limit", c.opts.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "reason", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConn()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.rateLimiter.Allow() {
			c.log.Warn("Rate limit exceeded; discarding event",
				"burst", c.opts.RateLimit.Burst, "interval", c.opts.RateLimit.RefillInterval)
			continue
		}

		frame, err := DecodeFrame(raw)
		if err != nil {
			c.log.Warn("Invalid frame", "error", err)
			continue
		}

		c.hub.Dispatch(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if !c.write(websocket.TextMessage, message) {
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// write sends one frame and reports whether the pump should keep going.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing message", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) writeClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error writing close message", "error", err)
	}
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection", "error", err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}
