// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quict

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/transport"
)

// Session implements transport.Session over one QUIC connection.
type Session struct {
	connection quic.Connection
	remote     identity.NodeID

	// rtt is the duration of the dial handshake, our best latency estimate.
	// Zero on the accepting side, where no comparable measurement exists.
	rtt time.Duration

	closeOnce sync.Once
}

func (session *Session) OpenStream(ctx context.Context) (transport.Stream, error) {
	stream, err := session.connection.OpenStreamSync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if session.connection.Context().Err() != nil {
			return nil, fmt.Errorf("%w: %v", transport.ErrConnectionClosed, err)
		}
		return nil, fmt.Errorf("%w: %v", transport.ErrStreamOpenFailed, err)
	}

	return &Stream{stream: stream}, nil
}

func (session *Session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	stream, err := session.connection.AcceptStream(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", transport.ErrConnectionClosed, err)
	}

	return &Stream{stream: stream}, nil
}

func (session *Session) RemoteID() identity.NodeID {
	return session.remote
}

func (session *Session) RTT() time.Duration {
	return session.rtt
}

func (session *Session) CloseWithError(code uint64, reason string) error {
	var err error
	session.closeOnce.Do(func() {
		err = session.connection.CloseWithError(quic.ApplicationErrorCode(code), reason)
	})

	return err
}

// Stream implements transport.Stream over one QUIC stream.
type Stream struct {
	stream quic.Stream
}

func (stream *Stream) Read(p []byte) (int, error) {
	return stream.stream.Read(p)
}

func (stream *Stream) Write(p []byte) (int, error) {
	return stream.stream.Write(p)
}

// CloseSend finishes the send direction. quic-go's Stream.Close only closes
// the write side, which is exactly the half-close needed here.
func (stream *Stream) CloseSend() error {
	return stream.stream.Close()
}

func (stream *Stream) CancelRead(code uint64) {
	stream.stream.CancelRead(quic.StreamErrorCode(code))
}
