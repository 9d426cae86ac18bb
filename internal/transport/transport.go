// Package transport abstracts the message-oriented connection to the room
// server so the connection manager is independent of the WebSocket library
// in use.
package transport

import "context"

// Conn is one bidirectional text-frame connection to the room server.
// Reads and writes may be issued from different goroutines; writes are
// serialized by the implementation.
type Conn interface {
	// ReadMessage blocks until the next text frame arrives. It returns an
	// error once the connection is closed or broken.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame.
	WriteMessage(data []byte) error

	// Close performs a closing handshake with a normal-closure code (1000)
	// and the given reason, then releases the connection.
	Close(reason string) error

	// Abort releases the connection without a closing handshake. Pending
	// reads fail immediately.
	Abort() error
}

// Dialer opens a Conn to a room URL, sending the given Origin header during
// the handshake.
type Dialer interface {
	Dial(ctx context.Context, url, origin string) (Conn, error)
}
