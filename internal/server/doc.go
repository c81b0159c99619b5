// Package server implements the presence and relay hub behind the chat
// client's live channel.
//
// Each WebSocket connection may join the room of a user id ("user_42") and
// emit private_message and typing events addressed to another user id. The
// hub forwards them to every connection in the receiver's room as
// new_message and user_typing. Delivery is best effort: nothing is persisted,
// queued or acknowledged, and malformed events are logged and dropped.
//
// The hub does not decide who may message whom. That check belongs to the
// API that persists messages. When a handshake authenticator is configured,
// a connection may only join its own verified user room.
package server
