package hub

import "errors"

var (
	// ErrQueueClosed is returned when pushing to or popping from a closed queue.
	ErrQueueClosed = errors.New("hub: queue closed")
	// ErrQueueFull is returned by a bounded queue that cannot take another message.
	ErrQueueFull = errors.New("hub: queue full")
	// ErrDuplicateID is returned when a connection id is registered twice.
	ErrDuplicateID = errors.New("hub: connection id already registered")
	// ErrHubClosed is returned by Serve once Shutdown has been called.
	ErrHubClosed = errors.New("hub: closed")
)
