package exception

import "errors"

var (
	ErrQueueFull          = errors.New("bus: queue full")
	ErrQueueClosed        = errors.New("bus: queue closed")
	ErrEndpointRegistered = errors.New("bus: endpoint already registered")
	ErrEndpointNotFound   = errors.New("bus: endpoint not found")
	ErrEndpointBadPayload = errors.New("bus: endpoint payload type mismatch")
)
