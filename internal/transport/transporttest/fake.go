// Package transporttest provides an in-memory transport.Conn pair for
// tests, wired directly to the transport.Conn interface rather than
// masquerading as a real import path.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"netcode/internal/transport"
)

// ErrClosed is returned by Send/Receive once the connection has been
// closed.
var ErrClosed = errors.New("transporttest: connection closed")

// Pipe is one end of an in-memory, FIFO-ordered connection. Two Pipes
// constructed by NewPipePair feed each other: messages sent on one side
// arrive on the other's Receive. A full buffer silently drops the
// message, mirroring the best-effort transport the engine assumes.
type Pipe struct {
	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
	out      chan []byte
	in       chan []byte
}

// NewPipePair returns two connected Pipes, client and server.
func NewPipePair(buffer int) (client *Pipe, server *Pipe) {
	if buffer < 1 {
		buffer = 1
	}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	client = &Pipe{out: ab, in: ba, closedCh: make(chan struct{})}
	server = &Pipe{out: ba, in: ab, closedCh: make(chan struct{})}
	return client, server
}

// Send enqueues payload for the peer.
func (p *Pipe) Send(payload []byte) error {
	if p.isClosed() {
		return ErrClosed
	}
	select {
	case p.out <- append([]byte(nil), payload...):
	default:
	}
	return nil
}

// Receive blocks until a message arrives, ctx is canceled, or this end is
// closed.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-p.in:
		return payload, nil
	case <-p.closedCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks this end closed and unblocks any pending Receive on it.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closedCh)
	return nil
}

func (p *Pipe) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ transport.Conn = (*Pipe)(nil)
