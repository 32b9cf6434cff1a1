// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peer

import "errors"

var (
	// ErrWriteFailed is returned when writing a frame fails. The stream's
	// send half is in an undefined state afterwards; callers must close the
	// stream instead of retrying.
	ErrWriteFailed = errors.New("peer: write failed")

	// ErrReadFailed is returned when reading a frame fails, including short
	// reads caused by the peer disconnecting mid-frame.
	ErrReadFailed = errors.New("peer: read failed")

	// ErrFinishFailed is returned when the send half cannot be finished,
	// e.g. because it already was.
	ErrFinishFailed = errors.New("peer: finishing send half failed")

	// ErrMessageTooLarge is returned for frames whose declared payload
	// length exceeds MaxMessageSize. Unlike ErrReadFailed it indicates a
	// protocol violation, not a network fault.
	ErrMessageTooLarge = errors.New("peer: message too large")
)
