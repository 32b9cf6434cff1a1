// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ticket

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/robcohen/peervault/pkg/identity"
)

func testNodeID(t *testing.T) identity.NodeID {
	id, err := identity.New()
	if err != nil {
		t.Fatal(err)
	}
	return id.NodeID()
}

func TestTicketRoundTrip(t *testing.T) {
	tickets := []Ticket{
		{NodeID: testNodeID(t), Addrs: []string{"192.0.2.1:4433", "[2001:db8::1]:4433"}, Relay: "https://relay.example.com"},
		{NodeID: testNodeID(t), Addrs: []string{"192.0.2.1:4433"}},
		{NodeID: testNodeID(t), Relay: "https://relay.example.com"},
		{NodeID: testNodeID(t)},
	}

	for _, tkt := range tickets {
		text, err := tkt.Encode()
		if err != nil {
			t.Fatal(err)
		}

		decoded, err := Decode(text)
		if err != nil {
			t.Fatal(err)
		}

		if !reflect.DeepEqual(decoded, tkt) {
			t.Fatalf("round trip differs: %v != %v", decoded, tkt)
		}
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	nid := testNodeID(t)
	text := fmt.Sprintf(
		`{"node_id":%q,"addrs":["192.0.2.1:4433"],"future_field":{"nested":true},"version":7}`, nid)

	decoded, err := Decode(text)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.NodeID != nid {
		t.Fatalf("decoded NodeID %v, want %v", decoded.NodeID, nid)
	}
	if len(decoded.Addrs) != 1 || decoded.Addrs[0] != "192.0.2.1:4433" {
		t.Fatalf("decoded Addrs %v", decoded.Addrs)
	}
}

func TestDecodeInvalid(t *testing.T) {
	invalid := []string{
		"",
		"not json at all",
		"{}",
		`{"addrs":["192.0.2.1:4433"]}`,
		`{"node_id":""}`,
		`{"node_id":"deadbeef"}`,
		`{"node_id":"zz00000000000000000000000000000000000000000000000000000000000000"}`,
	}

	for _, text := range invalid {
		if _, err := Decode(text); !errors.Is(err, ErrInvalidTicket) {
			t.Fatalf("Decode(%q): got %v, want ErrInvalidTicket", text, err)
		}
	}
}
