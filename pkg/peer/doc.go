// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package peer is the core of the PeerVault peer layer: it turns a long-term
identity and an out-of-band ticket into an authenticated session carrying
discrete messages.

Two nodes that know nothing about each other connect like this: node A binds
an Endpoint and hands its ticket to node B through any out-of-band channel.
Node B decodes the ticket and dials, node A accepts. Both sides now hold a
Connection to a verified remote identity and may open or accept any number of
independent Streams on it.

A Stream exchanges discrete messages over one ordered byte channel using
length-prefix framing. The wire format of a frame is

	4-byte big-endian unsigned payload length L,
	followed by exactly L payload bytes.

There is no padding, no checksum and no message-type tag. A declared length
above 64 MiB is rejected before any payload is read, so a malicious peer
cannot make a receiver allocate unbounded memory.

The send half and the receive half of a Stream are independently serialized:
at most one Send and one Receive are in flight per stream, concurrent callers
queue, and sending never blocks receiving. Closing works at three independent
levels. Closing an Endpoint stops accepting but leaves established
Connections alone, closing a Connection invalidates its Streams but not its
siblings, and finishing a Stream's send half leaves the receive half open for
a drain.

The actual transport is pluggable through the transport package; see
transport/quict for the QUIC implementation and transport/memt for the
in-memory one.
*/
package peer
