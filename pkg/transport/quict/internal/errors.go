// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package internal

import "github.com/quic-go/quic-go"

const (
	// CleanClose signals a regular, caller-initiated session close.
	CleanClose quic.ApplicationErrorCode = 0
	// UnknownError is the catchall code for unforeseen local failures.
	UnknownError quic.ApplicationErrorCode = 1
	// LocalError designates errors on this machine, like a malformed own certificate.
	LocalError quic.ApplicationErrorCode = 2
	// PeerError designates protocol violations by the remote node.
	PeerError quic.ApplicationErrorCode = 4
	// EndpointShutdown is sent when the local endpoint tears down its sessions.
	EndpointShutdown quic.ApplicationErrorCode = 5
)
