// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/ticket"
	"github.com/robcohen/peervault/pkg/transport"
	"github.com/robcohen/peervault/pkg/transport/quict/internal"
)

// Endpoint implements transport.Endpoint over one bound QUIC listener.
type Endpoint struct {
	id       identity.Identity
	protocol string
	relay    string
	listener *quic.Listener

	closeOnce sync.Once
	closed    chan struct{}
}

func (endpoint *Endpoint) String() string {
	return fmt.Sprintf("QUICEndpoint{Node: %v, Address: %v}", endpoint.id.NodeID(), endpoint.listener.Addr())
}

func (endpoint *Endpoint) Connect(ctx context.Context, tkt ticket.Ticket) (transport.Session, error) {
	select {
	case <-endpoint.closed:
		return nil, fmt.Errorf("%w: connect", transport.ErrEndpointClosed)
	default:
	}

	if len(tkt.Addrs) == 0 {
		return nil, fmt.Errorf("%w: ticket for %v carries no dialable address", transport.ErrConnectFailed, tkt.NodeID)
	}

	tlsConf, err := internal.GenerateDialerTLSConfig(endpoint.id, tkt.NodeID, endpoint.protocol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transport.ErrConnectFailed, err)
	}

	var dialErr error
	for _, addr := range tkt.Addrs {
		start := time.Now()

		connection, err := quic.DialAddr(ctx, addr, tlsConf, internal.GenerateQUICConfig())
		if err != nil {
			log.WithFields(log.Fields{
				"peer":    tkt.NodeID,
				"address": addr,
				"error":   err,
			}).Debug("Dialing address failed, trying next hint")

			dialErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		log.WithFields(log.Fields{
			"peer":    tkt.NodeID,
			"address": addr,
		}).Debug("QUIC session established")

		return &Session{
			connection: connection,
			remote:     tkt.NodeID,
			rtt:        time.Since(start),
		}, nil
	}

	return nil, fmt.Errorf("%w: %v", transport.ErrConnectFailed, dialErr)
}

func (endpoint *Endpoint) Accept(ctx context.Context) (transport.Session, error) {
	for {
		connection, err := endpoint.listener.Accept(ctx)
		if err != nil {
			if errors.Is(err, quic.ErrServerClosed) {
				return nil, fmt.Errorf("%w: accept", transport.ErrEndpointClosed)
			}
			if ctx.Err() != nil {
				return nil, err
			}

			log.WithFields(log.Fields{
				"endpoint": endpoint,
				"error":    err,
			}).Error("Unknown error accepting QUIC session")
			continue
		}

		remote, err := internal.PeerID(connection.ConnectionState().TLS)
		if err != nil {
			// Cannot happen for a handshake that passed certificate
			// verification, but a misbehaving dialer is not worth failing
			// the caller's Accept over.
			log.WithFields(log.Fields{
				"endpoint": endpoint,
				"peer":     connection.RemoteAddr(),
				"error":    err,
			}).Warn("Rejecting inbound session without usable identity")

			_ = connection.CloseWithError(internal.PeerError, "unusable peer identity")
			continue
		}

		log.WithFields(log.Fields{
			"endpoint": endpoint,
			"peer":     remote,
			"address":  connection.RemoteAddr(),
		}).Debug("Accepted inbound QUIC session")

		return &Session{connection: connection, remote: remote}, nil
	}
}

func (endpoint *Endpoint) Describe(_ context.Context) (ticket.Ticket, error) {
	select {
	case <-endpoint.closed:
		return ticket.Ticket{}, fmt.Errorf("%w: describe", transport.ErrEndpointClosed)
	default:
	}

	return ticket.Ticket{
		NodeID: endpoint.id.NodeID(),
		Addrs:  internal.ListenAddresses(endpoint.listener.Addr()),
		Relay:  endpoint.relay,
	}, nil
}

// Close shuts down the listener. Accept calls blocked at this moment return
// with transport.ErrEndpointClosed; established sessions stay alive.
func (endpoint *Endpoint) Close() error {
	var err error
	endpoint.closeOnce.Do(func() {
		log.WithField("endpoint", endpoint).Info("Closing QUIC endpoint")

		close(endpoint.closed)
		err = endpoint.listener.Close()
	})

	return err
}
