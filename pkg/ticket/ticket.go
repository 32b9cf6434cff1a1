// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ticket (de)serializes a node's reachability descriptor into a
// transportable text form.
//
// A ticket is exchanged out-of-band (chat, QR code, copy & paste) and tells a
// remote peer who to dial (the node id) and where to try (addresses, relay).
// This layer enforces no expiry; a ticket is good for as long as its hints
// still reach the node.
package ticket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robcohen/peervault/pkg/identity"
)

// ErrInvalidTicket is returned when a ticket's text does not parse into a
// descriptor with a usable node id.
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket describes how to reach one node: its public identifier plus a set of
// reachability hints.
type Ticket struct {
	NodeID identity.NodeID
	Addrs  []string
	Relay  string
}

// wireTicket is the JSON shape of a ticket. Decoding ignores unknown extra
// fields, so the format can grow without breaking older nodes.
type wireTicket struct {
	NodeID string   `json:"node_id"`
	Addrs  []string `json:"addrs,omitempty"`
	Relay  string   `json:"relay,omitempty"`
}

// Encode serializes the Ticket into its transportable text form.
func (t Ticket) Encode() (string, error) {
	w := wireTicket{
		NodeID: t.NodeID.String(),
		Addrs:  t.Addrs,
		Relay:  t.Relay,
	}

	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshalling ticket: %w", err)
	}

	return string(b), nil
}

// Decode parses a ticket's text form.
func Decode(text string) (Ticket, error) {
	var w wireTicket
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	if w.NodeID == "" {
		return Ticket{}, fmt.Errorf("%w: missing node_id", ErrInvalidTicket)
	}

	nid, err := identity.ParseNodeID(w.NodeID)
	if err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	return Ticket{NodeID: nid, Addrs: w.Addrs, Relay: w.Relay}, nil
}
