// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/transport"
)

// Application close codes signalled to the remote node when a Connection is
// closed.
const (
	closeCodeClean         uint64 = 0
	closeCodeProtocolError uint64 = 4
)

// Connection is one authenticated session to a specific remote node. It
// produces Streams but does not own them; closing the Connection invalidates
// all of its streams, while its sibling Connections on the same Endpoint are
// unaffected.
type Connection struct {
	session transport.Session

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(session transport.Session) *Connection {
	return &Connection{
		session: session,
		closed:  make(chan struct{}),
	}
}

// RemoteID is the verified identity of the remote node, fixed at
// establishment.
func (connection *Connection) RemoteID() identity.NodeID {
	return connection.session.RemoteID()
}

// RTT is the transport's best-effort estimate of the current round-trip
// latency. Zero means unknown, not an error.
func (connection *Connection) RTT() time.Duration {
	return connection.session.RTT()
}

// OpenStream opens a new bidirectional stream on this connection. It fails
// with transport.ErrConnectionClosed once the connection has ended, even for
// calls already in flight at that moment.
func (connection *Connection) OpenStream(ctx context.Context) (*Stream, error) {
	if connection.isClosed() {
		return nil, fmt.Errorf("%w: open stream", transport.ErrConnectionClosed)
	}

	raw, err := connection.session.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	// A Close may have raced the open; a stream on a dying connection must
	// not be handed out.
	if connection.isClosed() {
		raw.CancelRead(closeCodeClean)
		_ = raw.CloseSend()
		return nil, fmt.Errorf("%w: open stream", transport.ErrConnectionClosed)
	}

	return NewStream(raw), nil
}

// AcceptStream blocks until the remote node opens a stream on this
// connection, or fails with transport.ErrConnectionClosed when the connection
// ends while waiting.
func (connection *Connection) AcceptStream(ctx context.Context) (*Stream, error) {
	if connection.isClosed() {
		return nil, fmt.Errorf("%w: accept stream", transport.ErrConnectionClosed)
	}

	raw, err := connection.session.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("accepting stream: %w", err)
	}

	if connection.isClosed() {
		raw.CancelRead(closeCodeClean)
		_ = raw.CloseSend()
		return nil, fmt.Errorf("%w: accept stream", transport.ErrConnectionClosed)
	}

	return NewStream(raw), nil
}

// Close terminates the connection, signalling a clean close to the remote
// node. It is idempotent; every stream on this connection becomes unusable.
func (connection *Connection) Close() error {
	var err error
	connection.closeOnce.Do(func() {
		close(connection.closed)
		err = connection.session.CloseWithError(closeCodeClean, "close")
	})

	return err
}

func (connection *Connection) isClosed() bool {
	select {
	case <-connection.closed:
		return true
	default:
		return false
	}
}
