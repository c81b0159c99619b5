// Package server defines the JSON frames exchanged with clients and the
// decoding rules applied to each inbound event.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Inbound events.
const (
	EventJoin           = "join"
	EventPrivateMessage = "private_message"
	EventTyping         = "typing"
)

// Outbound events.
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
)

// Frame is the envelope of every WebSocket text message.
type Frame struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrivateMessage is the data of a private_message event. Message is relayed
// untouched.
type PrivateMessage struct {
	ReceiverID int64           `json:"receiverId" validate:"gt=0"`
	Message    json.RawMessage `json:"message" validate:"required"`
}

// Typing is the data of a typing event.
type Typing struct {
	ReceiverID int64 `json:"receiverId" validate:"gt=0"`
	IsTyping   *bool `json:"isTyping" validate:"required"`
}

// TypingNotice is the data of a user_typing event. UserID is either a
// connection id (string) or a user id (number).
type TypingNotice struct {
	UserID   any  `json:"userId"`
	IsTyping bool `json:"isTyping"`
}

// DecodeFrame parses a raw WebSocket message into a Frame.
func DecodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if err := validate.Struct(frame); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return frame, nil
}

// EncodeFrame builds the wire form of an outbound event.
func EncodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
}

// decodeUserID accepts a positive JSON integer or a string holding one.
func decodeUserID(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidUserID, err)
	}

	var (
		id  int64
		err error
	)
	switch v := value.(type) {
	case json.Number:
		id, err = v.Int64()
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("%w: got %T", ErrInvalidUserID, value)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidUserID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidUserID, id)
	}
	return id, nil
}

func decodePrivateMessage(raw json.RawMessage) (PrivateMessage, error) {
	var msg PrivateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return PrivateMessage{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate.Struct(msg); err != nil {
		return PrivateMessage{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if bytes.Equal(bytes.TrimSpace(msg.Message), []byte("null")) {
		return PrivateMessage{}, fmt.Errorf("%w: message is null", ErrInvalidPayload)
	}
	return msg, nil
}

func decodeTyping(raw json.RawMessage) (Typing, error) {
	var typing Typing
	if err := json.Unmarshal(raw, &typing); err != nil {
		return Typing{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate.Struct(typing); err != nil {
		return Typing{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return typing, nil
}
