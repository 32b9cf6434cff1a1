// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transport defines the contract between the peer layer and the
// secure transport implementations that carry its sessions.
//
// A Provider binds a long-term identity to local resources and yields an
// Endpoint. The Endpoint produces authenticated Sessions, either by dialing a
// remote node described by a ticket or by accepting an inbound handshake.
// Each Session multiplexes any number of independent bidirectional Streams.
//
// Implementations are expected to do the heavy lifting themselves: handshake,
// encryption, congestion control and (where supported) relay-assisted
// rendezvous are entirely their business. The peer layer only consumes this
// interface and never inspects packets.
package transport

import (
	"context"
	"io"
	"time"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/ticket"
)

// Provider creates identity-bound endpoints.
type Provider interface {
	// Bind acquires local resources and returns a live Endpoint for the given
	// identity. A failure to acquire resources surfaces as ErrBindFailed.
	Bind(id identity.Identity) (Endpoint, error)
}

// Endpoint is a local, identity-bound network entry point.
//
// Endpoints are safe for concurrent use. Multiple Connect and Accept calls
// may be outstanding at the same time; the Endpoint does not serialize them.
type Endpoint interface {
	// Connect establishes an authenticated session to the node described by
	// the ticket. The remote identity is verified during the handshake; the
	// returned Session's RemoteID always equals the ticket's node id.
	// Reachability or handshake failures surface as ErrConnectFailed.
	Connect(ctx context.Context, tkt ticket.Ticket) (Session, error)

	// Accept blocks until a remote node dials in and completes its handshake.
	// It fails with ErrEndpointClosed once the Endpoint is closed, waking any
	// caller blocked at that moment.
	Accept(ctx context.Context) (Session, error)

	// Describe returns this endpoint's own reachability descriptor. It blocks
	// until at least one hint is known, or fails with ErrEndpointClosed.
	Describe(ctx context.Context) (ticket.Ticket, error)

	// Close shuts the Endpoint down. It is idempotent and does not terminate
	// sessions that were already established.
	Close() error
}

// Session is one authenticated, encrypted link to a specific remote node.
//
// Sessions are safe for unsynchronized concurrent use; stream multiplexing is
// the implementation's responsibility.
type Session interface {
	// OpenStream opens a new bidirectional stream on this session. It fails
	// with ErrConnectionClosed if the session has ended and with
	// ErrStreamOpenFailed for any other reason.
	OpenStream(ctx context.Context) (Stream, error)

	// AcceptStream blocks until the remote node opens a stream, or fails with
	// ErrConnectionClosed if the session ends while waiting.
	AcceptStream(ctx context.Context) (Stream, error)

	// RemoteID is the verified identity of the remote node, fixed at
	// session establishment.
	RemoteID() identity.NodeID

	// RTT is a best-effort estimate of the current round-trip latency.
	// Zero means unknown, not an error.
	RTT() time.Duration

	// CloseWithError terminates the session, signalling the given application
	// close code and reason to the remote node. It is idempotent.
	CloseWithError(code uint64, reason string) error
}

// Stream is one ordered bidirectional byte channel on a Session.
//
// The two directions close independently: CloseSend finishes the local send
// side while reads continue until the peer does the same, which surfaces as
// io.EOF on Read.
type Stream interface {
	io.Reader
	io.Writer

	// CloseSend finishes the send side, signalling that no more data will be
	// written on this direction.
	CloseSend() error

	// CancelRead abandons the receive side with the given application error
	// code, discarding data the peer may still send.
	CancelRead(code uint64)
}
