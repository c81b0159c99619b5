package server

import "errors"

var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrInvalidUserID    = errors.New("user id must be a positive integer")
	ErrInvalidPayload   = errors.New("invalid event payload")
	ErrIdentityMismatch = errors.New("join does not match handshake identity")
	ErrHubClosed        = errors.New("hub is shut down")
)
