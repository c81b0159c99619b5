// Package server coordinates connection registration, room membership, event
// relay, and connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/gochat-relay/internal/rooms"
)

// RoomTable is the room membership store the hub relays through. The
// in-memory rooms.Table satisfies it.
type RoomTable interface {
	Join(key string, c *Client) bool
	LeaveAll(c *Client) []string
	Members(key string) []*Client
	Len() int
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Clients int `json:"clients"`
	Rooms   int `json:"rooms"`
}

type inboundEvent struct {
	client *Client
	frame  Frame
}

// Hub owns every live connection and the room table. All state is mutated by
// the Run loop only, one event at a time.
type Hub struct {
	clients      map[*Client]struct{}
	rooms        RoomTable
	typingSender TypingSender
	register     chan *Client
	unregister   chan *Client
	events       chan inboundEvent
	stats        chan chan Stats
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	log          *slog.Logger
}

// NewHub creates a hub backed by an in-memory room table.
func NewHub(log *slog.Logger, typingSender TypingSender) *Hub {
	return NewHubWithRooms(log, typingSender, rooms.New[*Client]())
}

// NewHubWithRooms creates a hub backed by the given room table.
func NewHubWithRooms(log *slog.Logger, typingSender TypingSender, table RoomTable) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[*Client]struct{}),
		rooms:        table,
		typingSender: typingSender,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		events:       make(chan inboundEvent),
		stats:        make(chan chan Stats),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		log:          log,
	}
}

// Register hands a new connection to the hub. The hub starts its pumps.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// Unregister removes a connection from the hub and from every room it joined.
// It is safe to call more than once and after shutdown.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Dispatch queues an inbound frame from c for the event loop. Frames from one
// client are handled in the order they are dispatched.
func (h *Hub) Dispatch(c *Client, frame Frame) {
	select {
	case h.events <- inboundEvent{client: c, frame: frame}:
	case <-h.ctx.Done():
	}
}

// Stats returns the number of connections and non-empty rooms once every
// previously dispatched event has been handled.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
		return <-reply
	case <-h.ctx.Done():
		return Stats{}
	}
}

// Run starts the hub's event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.events:
			h.handleEvent(in)

		case reply := <-h.stats:
			reply <- Stats{Clients: len(h.clients), Rooms: h.rooms.Len()}
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("Received nil client registration; skipping")
		return
	}

	h.clients[client] = struct{}{}
	h.log.Info("Client registered", "client", client.id, "addr", client.addr, "clients", len(h.clients))

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeClient(client)
	h.log.Info("Client unregistered", "client", client.id, "addr", client.addr, "clients", len(h.clients))
}

// removeClient drops client from the tables and closes its send channel, which
// makes its write pump close the connection.
func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	left := h.rooms.LeaveAll(client)
	close(client.send)
	if len(left) > 0 {
		h.log.Debug("Client left rooms", "client", client.id, "rooms", left)
	}
}

func (h *Hub) handleEvent(in inboundEvent) {
	if _, ok := h.clients[in.client]; !ok {
		return
	}

	var err error
	switch in.frame.Event {
	case EventJoin:
		err = h.handleJoin(in.client, in.frame)
	case EventPrivateMessage:
		err = h.handlePrivateMessage(in.frame)
	case EventTyping:
		err = h.handleTyping(in.client, in.frame)
	default:
		err = ErrUnknownEvent
	}

	if err != nil {
		h.log.Warn("Dropping event", "client", in.client.id, "event", in.frame.Event, "error", err)
	}
}

func (h *Hub) handleJoin(client *Client, frame Frame) error {
	userID, err := decodeUserID(frame.Data)
	if err != nil {
		return err
	}
	if err := client.authorizeJoin(userID); err != nil {
		return err
	}

	key := rooms.UserKey(userID)
	client.userID = userID
	if h.rooms.Join(key, client) {
		h.log.Info("Client joined room", "client", client.id, "room", key)
	}
	return nil
}

// handlePrivateMessage relays the message object verbatim. Whether the sender
// may write to receiverId is decided by the persistence API, not here.
func (h *Hub) handlePrivateMessage(frame Frame) error {
	msg, err := decodePrivateMessage(frame.Data)
	if err != nil {
		return err
	}

	payload, err := EncodeFrame(EventNewMessage, msg.Message)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	h.broadcastToRoom(rooms.UserKey(msg.ReceiverID), payload)
	return nil
}

func (h *Hub) handleTyping(client *Client, frame Frame) error {
	typing, err := decodeTyping(frame.Data)
	if err != nil {
		return err
	}

	payload, err := EncodeFrame(EventUserTyping, TypingNotice{
		UserID:   client.typingIdentity(h.typingSender),
		IsTyping: *typing.IsTyping,
	})
	if err != nil {
		return err
	}

	h.broadcastToRoom(rooms.UserKey(typing.ReceiverID), payload)
	return nil
}

// broadcastToRoom sends payload to every member of key. An empty room is not
// an error. Members whose send buffer is full are disconnected.
func (h *Hub) broadcastToRoom(key string, payload []byte) {
	members := h.rooms.Members(key)
	if len(members) == 0 {
		h.log.Debug("Room is empty; dropping event", "room", key)
		return
	}

	var clientsToRemove []*Client
	for _, client := range members {
		select {
		case client.send <- payload:
		default:
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	for _, client := range clientsToRemove {
		h.removeClient(client)
		h.log.Warn("Client removed due to full send buffer", "client", client.id, "addr", client.addr)
	}
}

// shutdownClients closes every connection still registered.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	count := len(h.clients)
	for client := range h.clients {
		h.removeClient(client)
		client.closeConn()
	}

	h.log.Info("Closed client connections", "count", count)
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
