// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package memt implements the transport contract in process memory.
//
// A Network is a registry of bound endpoints keyed by node id. Connecting
// looks the target up by the ticket's node id and hands it a paired session;
// streams are in-process pipes. There is no real handshake and no encryption,
// which makes memt useless on a wire but ideal for exercising the peer
// layer's lifecycle and framing logic in tests, or for loopback wiring
// inside a single host process.
package memt

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/ticket"
	"github.com/robcohen/peervault/pkg/transport"
)

// Network is an in-memory registry of endpoints. It implements
// transport.Provider; all endpoints bound to the same Network can reach each
// other.
type Network struct {
	mu        sync.Mutex
	endpoints map[identity.NodeID]*Endpoint
}

func NewNetwork() *Network {
	return &Network{endpoints: make(map[identity.NodeID]*Endpoint)}
}

func (network *Network) Bind(id identity.Identity) (transport.Endpoint, error) {
	network.mu.Lock()
	defer network.mu.Unlock()

	nid := id.NodeID()
	if _, ok := network.endpoints[nid]; ok {
		return nil, fmt.Errorf("%w: node %v already bound", transport.ErrBindFailed, nid)
	}

	endpoint := &Endpoint{
		network: network,
		node:    nid,
		inbound: make(chan *Session, 16),
		closed:  make(chan struct{}),
	}
	network.endpoints[nid] = endpoint

	return endpoint, nil
}

func (network *Network) lookup(nid identity.NodeID) (*Endpoint, bool) {
	network.mu.Lock()
	defer network.mu.Unlock()

	endpoint, ok := network.endpoints[nid]
	return endpoint, ok
}

func (network *Network) unbind(nid identity.NodeID) {
	network.mu.Lock()
	defer network.mu.Unlock()

	delete(network.endpoints, nid)
}

// Endpoint implements transport.Endpoint inside a Network.
type Endpoint struct {
	network *Network
	node    identity.NodeID

	inbound chan *Session

	closeOnce sync.Once
	closed    chan struct{}
}

func (endpoint *Endpoint) Connect(ctx context.Context, tkt ticket.Ticket) (transport.Session, error) {
	select {
	case <-endpoint.closed:
		return nil, fmt.Errorf("%w: connect", transport.ErrEndpointClosed)
	default:
	}

	target, ok := endpoint.network.lookup(tkt.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %v is not reachable", transport.ErrConnectFailed, tkt.NodeID)
	}

	local, remote := newSessionPair(tkt.NodeID, endpoint.node)

	select {
	case target.inbound <- remote:
		return local, nil
	case <-target.closed:
		return nil, fmt.Errorf("%w: node %v shut down", transport.ErrConnectFailed, tkt.NodeID)
	case <-endpoint.closed:
		return nil, fmt.Errorf("%w: connect", transport.ErrEndpointClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (endpoint *Endpoint) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case session := <-endpoint.inbound:
		return session, nil
	case <-endpoint.closed:
		return nil, fmt.Errorf("%w: accept", transport.ErrEndpointClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (endpoint *Endpoint) Describe(_ context.Context) (ticket.Ticket, error) {
	select {
	case <-endpoint.closed:
		return ticket.Ticket{}, fmt.Errorf("%w: describe", transport.ErrEndpointClosed)
	default:
	}

	return ticket.Ticket{
		NodeID: endpoint.node,
		Addrs:  []string{"mem://" + endpoint.node.String()},
	}, nil
}

func (endpoint *Endpoint) Close() error {
	endpoint.closeOnce.Do(func() {
		close(endpoint.closed)
		endpoint.network.unbind(endpoint.node)
	})

	return nil
}

// Session is one half of an in-memory session pair.
type Session struct {
	remote identity.NodeID
	peer   *Session

	inbound chan *Stream

	mu      sync.Mutex
	streams []*Stream

	termOnce sync.Once
	closed   chan struct{}
}

func newSessionPair(aRemote, bRemote identity.NodeID) (a, b *Session) {
	a = &Session{
		remote:  aRemote,
		inbound: make(chan *Stream, 16),
		closed:  make(chan struct{}),
	}
	b = &Session{
		remote:  bRemote,
		inbound: make(chan *Stream, 16),
		closed:  make(chan struct{}),
	}

	a.peer = b
	b.peer = a
	return a, b
}

func (session *Session) OpenStream(ctx context.Context) (transport.Stream, error) {
	select {
	case <-session.closed:
		return nil, fmt.Errorf("%w: open stream", transport.ErrConnectionClosed)
	default:
	}

	local, remote := newStreamPair()
	session.track(local)
	session.peer.track(remote)

	select {
	case session.peer.inbound <- remote:
		return local, nil
	case <-session.closed:
		return nil, fmt.Errorf("%w: open stream", transport.ErrConnectionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (session *Session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	select {
	case stream := <-session.inbound:
		return stream, nil
	case <-session.closed:
		return nil, fmt.Errorf("%w: accept stream", transport.ErrConnectionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (session *Session) RemoteID() identity.NodeID {
	return session.remote
}

// RTT is always unknown for in-memory sessions.
func (session *Session) RTT() time.Duration {
	return 0
}

func (session *Session) CloseWithError(code uint64, reason string) error {
	cause := fmt.Errorf("%w: code %d: %s", transport.ErrConnectionClosed, code, reason)

	session.terminate(cause)
	session.peer.terminate(cause)
	return nil
}

func (session *Session) track(stream *Stream) {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.streams = append(session.streams, stream)
}

// terminate ends this side of the session, waking pending stream operations
// and failing all established streams with the given cause.
func (session *Session) terminate(cause error) {
	session.termOnce.Do(func() {
		close(session.closed)

		session.mu.Lock()
		streams := session.streams
		session.streams = nil
		session.mu.Unlock()

		for _, stream := range streams {
			stream.fail(cause)
		}
	})
}

// Stream is one end of an in-memory stream pair, built from two pipes.
type Stream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newStreamPair() (a, b *Stream) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	return &Stream{r: ar, w: aw}, &Stream{r: br, w: bw}
}

func (stream *Stream) Read(p []byte) (int, error) {
	return stream.r.Read(p)
}

func (stream *Stream) Write(p []byte) (int, error) {
	return stream.w.Write(p)
}

// CloseSend finishes the send direction; the peer's reads observe io.EOF
// after draining.
func (stream *Stream) CloseSend() error {
	return stream.w.Close()
}

func (stream *Stream) CancelRead(code uint64) {
	_ = stream.r.CloseWithError(fmt.Errorf("read cancelled with code %d", code))
}

func (stream *Stream) fail(cause error) {
	_ = stream.w.CloseWithError(cause)
	_ = stream.r.CloseWithError(cause)
}
