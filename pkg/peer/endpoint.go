// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peer

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/ticket"
	"github.com/robcohen/peervault/pkg/transport"
)

// Endpoint is a local network entry point bound to one identity. It dials
// remote nodes by ticket and accepts inbound connections.
//
// All methods are safe for concurrent use; multiple Connect and Accept calls
// may be outstanding at once.
type Endpoint struct {
	id       identity.Identity
	provider transport.Endpoint

	closeOnce sync.Once
	closed    chan struct{}
}

// Listen binds the given identity on the provider and returns a live
// Endpoint. Binding failures surface as transport.ErrBindFailed.
func Listen(provider transport.Provider, id identity.Identity) (*Endpoint, error) {
	bound, err := provider.Bind(id)
	if err != nil {
		return nil, err
	}

	log.WithField("node", id.NodeID()).Debug("Endpoint is live")

	return &Endpoint{
		id:       id,
		provider: bound,
		closed:   make(chan struct{}),
	}, nil
}

// NodeID is this endpoint's own public identifier.
func (endpoint *Endpoint) NodeID() identity.NodeID {
	return endpoint.id.NodeID()
}

// Ticket returns this endpoint's encoded reachability descriptor for
// out-of-band exchange. It blocks until the transport knows at least one
// reachability hint, or fails with transport.ErrEndpointClosed.
func (endpoint *Endpoint) Ticket(ctx context.Context) (string, error) {
	if endpoint.isClosed() {
		return "", fmt.Errorf("%w: ticket", transport.ErrEndpointClosed)
	}

	descriptor, err := endpoint.provider.Describe(ctx)
	if err != nil {
		return "", err
	}

	return descriptor.Encode()
}

// Connect decodes the ticket and establishes an authenticated connection to
// the node it describes. Decode failures surface as ticket.ErrInvalidTicket,
// handshake and reachability failures as transport.ErrConnectFailed.
func (endpoint *Endpoint) Connect(ctx context.Context, ticketText string) (*Connection, error) {
	if endpoint.isClosed() {
		return nil, fmt.Errorf("%w: connect", transport.ErrEndpointClosed)
	}

	tkt, err := ticket.Decode(ticketText)
	if err != nil {
		return nil, err
	}

	session, err := endpoint.provider.Connect(ctx, tkt)
	if err != nil {
		return nil, err
	}

	// The provider pins the identity during its handshake; this equality is
	// part of its contract and a mismatch means the provider is broken.
	if session.RemoteID() != tkt.NodeID {
		_ = session.CloseWithError(closeCodeProtocolError, "identity mismatch")
		return nil, fmt.Errorf("%w: session identity %v does not match ticket %v",
			transport.ErrConnectFailed, session.RemoteID(), tkt.NodeID)
	}

	log.WithFields(log.Fields{
		"node": endpoint.NodeID(),
		"peer": session.RemoteID(),
	}).Debug("Outbound connection established")

	return newConnection(session), nil
}

// Accept blocks until a remote node dials in and completes its handshake.
// Closing the Endpoint wakes pending Accept calls with
// transport.ErrEndpointClosed.
func (endpoint *Endpoint) Accept(ctx context.Context) (*Connection, error) {
	if endpoint.isClosed() {
		return nil, fmt.Errorf("%w: accept", transport.ErrEndpointClosed)
	}

	session, err := endpoint.provider.Accept(ctx)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"node": endpoint.NodeID(),
		"peer": session.RemoteID(),
	}).Debug("Inbound connection established")

	return newConnection(session), nil
}

// Close shuts the Endpoint down. It is idempotent and terminal: pending
// Accept calls wake with transport.ErrEndpointClosed, while connections that
// were already established stay usable and are closed by their own owners.
func (endpoint *Endpoint) Close() error {
	var err error
	endpoint.closeOnce.Do(func() {
		log.WithField("node", endpoint.NodeID()).Debug("Closing endpoint")

		close(endpoint.closed)
		err = endpoint.provider.Close()
	})

	return err
}

func (endpoint *Endpoint) isClosed() bool {
	select {
	case <-endpoint.closed:
		return true
	default:
		return false
	}
}
