// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/robcohen/peervault/pkg/transport"
)

// MaxMessageSize caps a single message's payload at 64 MiB. Frames declaring
// a larger payload are rejected before any payload byte is read.
const MaxMessageSize = 64 * 1024 * 1024

// lengthPrefixSize is the size of the big-endian length prefix preceding
// every payload on the wire.
const lengthPrefixSize = 4

// Stream exchanges discrete messages over one ordered byte channel using
// length-prefix framing.
//
// The send half and the receive half are independently serialized: at most
// one Send and one Receive are in flight at a time, concurrent callers queue
// per half, and the two halves never block each other.
type Stream struct {
	sendMu     sync.Mutex
	sendClosed bool

	recvMu sync.Mutex

	raw transport.Stream
}

// NewStream frames the given raw transport stream. Connections hand out
// framed Streams directly; NewStream exists for hosts that wire up raw
// provider streams themselves.
func NewStream(raw transport.Stream) *Stream {
	return &Stream{raw: raw}
}

// Send writes one message: the 4-byte length prefix followed by the payload.
// Frames of concurrent Send calls never interleave. A zero-length payload is
// valid.
//
// ErrWriteFailed is terminal for the send half: one of the two writes ended
// partway and the peer's framing is out of sync, so callers must close the
// stream rather than retry.
func (stream *Stream) Send(payload []byte) error {
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: payload of %d bytes", ErrMessageTooLarge, len(payload))
	}

	stream.sendMu.Lock()
	defer stream.sendMu.Unlock()

	if stream.sendClosed {
		return fmt.Errorf("%w: send half is finished", ErrWriteFailed)
	}

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := stream.raw.Write(prefix[:]); err != nil {
		return fmt.Errorf("%w: length prefix: %v", ErrWriteFailed, err)
	}
	if _, err := stream.raw.Write(payload); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrWriteFailed, err)
	}

	return nil
}

// Receive reads one message, blocking until a full frame is available or the
// stream errors. A peer finishing its send half surfaces as io.EOF on the
// frame boundary; a disconnect mid-frame surfaces as ErrReadFailed.
//
// A frame declaring more than MaxMessageSize payload bytes fails with
// ErrMessageTooLarge without reading any of the declared payload, so callers
// can tell a protocol violation from a network fault.
func (stream *Stream) Receive() ([]byte, error) {
	stream.recvMu.Lock()
	defer stream.recvMu.Unlock()

	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(stream.raw, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			// Clean end of the peer's send half, right on a frame boundary.
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: length prefix: %v", ErrReadFailed, err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxMessageSize {
		return nil, fmt.Errorf("%w: peer declared %d bytes", ErrMessageTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(stream.raw, payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrReadFailed, err)
	}

	return payload, nil
}

// CloseSend finishes the send half, signalling that no more messages follow
// in this direction. The receive half stays open so in-flight inbound data
// can still be drained.
func (stream *Stream) CloseSend() error {
	stream.sendMu.Lock()
	defer stream.sendMu.Unlock()

	if stream.sendClosed {
		return fmt.Errorf("%w: already finished", ErrFinishFailed)
	}
	stream.sendClosed = true

	if err := stream.raw.CloseSend(); err != nil {
		return fmt.Errorf("%w: %v", ErrFinishFailed, err)
	}

	return nil
}

// CancelRead abandons the receive half, discarding anything the peer may
// still send on this stream.
func (stream *Stream) CancelRead() {
	stream.raw.CancelRead(closeCodeClean)
}
