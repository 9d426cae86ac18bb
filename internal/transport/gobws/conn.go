// Package gobws implements the room transport on top of gobwas/ws. It is
// interchangeable with the gorilla-based transport and exists for callers
// that want the lighter dependency.
package gobws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/ziyoura/wemeet-client/internal/transport"
)

// Dialer opens room connections with gobwas/ws.
type Dialer struct{}

// Dial implements transport.Dialer.
func (Dialer) Dial(ctx context.Context, rawURL, origin string) (transport.Conn, error) {
	d := ws.Dialer{}
	if origin != "" {
		d.Header = ws.HandshakeHeaderHTTP(http.Header{"Origin": []string{origin}})
	}

	c, _, _, err := d.Dial(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return &Conn{conn: c}, nil
}

// Conn adapts a raw gobwas/ws client connection to transport.Conn.
type Conn struct {
	conn net.Conn
	rmu  sync.Mutex
	wmu  sync.Mutex
}

// ReadMessage returns the next text frame. Control frames are handled by
// wsutil internally.
func (c *Conn) ReadMessage() ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	for {
		data, op, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			return nil, err
		}
		if op != ws.OpText {
			continue
		}
		return data, nil
	}
}

// WriteMessage sends one masked text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wsutil.WriteClientText(c.conn, data)
}

// Close sends a normal-closure frame with the given reason and releases the
// connection.
func (c *Conn) Close(reason string) error {
	c.wmu.Lock()
	frame := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, reason))
	frame = ws.MaskFrameInPlace(frame)
	_ = ws.WriteFrame(c.conn, frame)
	c.wmu.Unlock()
	return c.conn.Close()
}

// Abort releases the connection immediately.
func (c *Conn) Abort() error {
	return c.conn.Close()
}
