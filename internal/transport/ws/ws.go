// Package ws adapts a gorilla/websocket connection to the transport.Conn
// interface. Grounded on the teacher's internal/net/ws.Handler/session,
// which guarded writes with a per-connection mutex and used a write
// deadline to bound how long a stalled peer can hold up a send.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"netcode/internal/transport"
)

const writeWait = 10 * time.Second

// Conn wraps *websocket.Conn to satisfy transport.Conn.
type Conn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// New wraps an already-established websocket connection.
func New(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// Dial connects to a websocket server and wraps the resulting connection.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Send writes one message, guarded by a write deadline so a stalled peer
// cannot block the sender goroutine indefinitely.
func (c *Conn) Send(payload []byte) error {
	if c == nil || c.conn == nil {
		return errors.New("ws: nil connection")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Receive blocks for the next inbound message. The read itself cannot be
// canceled by ctx (gorilla/websocket has no context-aware read), so callers
// that need prompt shutdown should also Close the connection from the
// ctx.Done() path.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("ws: nil connection")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

var _ transport.Conn = (*Conn)(nil)
