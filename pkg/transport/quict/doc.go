// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package quict implements the transport contract over QUIC.

Why QUIC?
The peer layer needs an authenticated, encrypted session that multiplexes any
number of independent bidirectional streams. QUIC provides exactly that, and
the quic-go library has already done the heavy lifting: handshake, encryption,
congestion control and stream (de-)multiplexing all come for free.

Authentication
Both sides present a self-signed X.509 certificate whose key is the node's
long-term ed25519 key. Certificate chains are deliberately not verified;
instead the peer's public key itself is checked during the TLS handshake.
The dialer pins it to the node id taken from the ticket, the listener merely
requires a well-formed ed25519 client certificate and reads the dialer's
identity from it. A connection therefore only ever completes against the
expected identity, and no application-level handshake is needed on top.

Unrelated protocols sharing a host are kept apart by the ALPN protocol tag:
a dialer with a different tag never completes the handshake.

Reachability
A bound endpoint describes itself with its concrete listen addresses. When
listening on an unspecified address, the port is combined with the unicast
addresses of all interfaces. A statically configured relay hint is carried
verbatim in the descriptor; relay traversal itself is not implemented here.
*/
package quict
