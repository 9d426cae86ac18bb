// Package gws implements the room transport on top of gorilla/websocket.
package gws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziyoura/wemeet-client/internal/transport"
)

const defaultHandshakeTimeout = 15 * time.Second

// Dialer opens room connections with gorilla/websocket.
type Dialer struct {
	// HandshakeTimeout bounds the opening handshake. Zero means 15s.
	HandshakeTimeout time.Duration
}

// Dial implements transport.Dialer.
func (d Dialer) Dial(ctx context.Context, rawURL, origin string) (transport.Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	wd := websocket.Dialer{HandshakeTimeout: timeout}

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	c, resp, err := wd.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", rawURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return &Conn{conn: c}, nil
}

// Conn adapts *websocket.Conn to transport.Conn.
type Conn struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes, gorilla allows one writer at a time
}

// ReadMessage returns the next text frame, skipping any non-text frames.
func (c *Conn) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

// WriteMessage sends one text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal-closure frame with the given reason and releases the
// connection.
func (c *Conn) Close(reason string) error {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}

// Abort releases the connection immediately.
func (c *Conn) Abort() error {
	return c.conn.Close()
}
