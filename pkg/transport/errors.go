// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import "errors"

// Sentinel errors shared by all transport implementations. Implementations
// wrap them with operation context via fmt.Errorf and %w; callers
// discriminate with errors.Is.
var (
	// ErrBindFailed is returned when a Provider cannot acquire the local
	// resources needed for an Endpoint.
	ErrBindFailed = errors.New("transport: bind failed")

	// ErrConnectFailed is returned when dialing a remote node fails, be it
	// for reachability or handshake reasons.
	ErrConnectFailed = errors.New("transport: connect failed")

	// ErrEndpointClosed is returned for any operation on a closed Endpoint,
	// including Accept calls pending at the moment of closure.
	ErrEndpointClosed = errors.New("transport: endpoint closed")

	// ErrConnectionClosed is returned for operations on a Session that has
	// ended, locally or remotely.
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrStreamOpenFailed is returned when a new stream cannot be opened on
	// an otherwise live Session.
	ErrStreamOpenFailed = errors.New("transport: stream open failed")
)
