// Package transport defines the narrow collaborator interface the client
// uses to exchange opaque messages with the server. The spec treats the
// underlying transport as an external collaborator: lossy, reorderable,
// with no ordering or delivery guarantees beyond per-message integrity.
package transport

import "context"

// Conn sends and receives opaque, whole messages. Implementations are
// expected to behave like a datagram socket: Send never blocks the caller
// for long, loss is silent, and Receive may return messages out of the
// order they were sent.
type Conn interface {
	// Send transmits payload best-effort. Implementations may drop it
	// silently on transient failure; the engine's recovery path is
	// heartbeats and periodic re-requests, not a Send error.
	Send(payload []byte) error
	// Receive blocks until a message arrives, ctx is canceled, or the
	// connection is closed.
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the connection's resources. Pending Receive calls
	// must return an error promptly.
	Close() error
}
