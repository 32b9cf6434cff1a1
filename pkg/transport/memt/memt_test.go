// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memt

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/ticket"
	"github.com/robcohen/peervault/pkg/transport"
)

func mustIdentity(t *testing.T) identity.Identity {
	t.Helper()

	id, err := identity.New()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func testPair(t *testing.T) (dialSide, acceptSide transport.Session) {
	t.Helper()
	ctx := context.Background()

	network := NewNetwork()

	idA, idB := mustIdentity(t), mustIdentity(t)
	epA, err := network.Bind(idA)
	if err != nil {
		t.Fatal(err)
	}
	epB, err := network.Bind(idB)
	if err != nil {
		t.Fatal(err)
	}

	tktA, err := epA.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	type acceptResult struct {
		session transport.Session
		err     error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		session, err := epA.Accept(ctx)
		acceptCh <- acceptResult{session, err}
	}()

	dialSide, err = epB.Connect(ctx, tktA)
	if err != nil {
		t.Fatal(err)
	}

	res := <-acceptCh
	if res.err != nil {
		t.Fatal(res.err)
	}

	if dialSide.RemoteID() != idA.NodeID() {
		t.Fatalf("dialer sees remote %v, want %v", dialSide.RemoteID(), idA.NodeID())
	}
	if res.session.RemoteID() != idB.NodeID() {
		t.Fatalf("acceptor sees remote %v, want %v", res.session.RemoteID(), idB.NodeID())
	}

	return dialSide, res.session
}

func TestBindTwice(t *testing.T) {
	network := NewNetwork()
	id := mustIdentity(t)

	if _, err := network.Bind(id); err != nil {
		t.Fatal(err)
	}
	if _, err := network.Bind(id); !errors.Is(err, transport.ErrBindFailed) {
		t.Fatalf("second bind: got %v, want ErrBindFailed", err)
	}
}

func TestConnectUnknownNode(t *testing.T) {
	network := NewNetwork()

	ep, err := network.Bind(mustIdentity(t))
	if err != nil {
		t.Fatal(err)
	}

	tkt := ticket.Ticket{NodeID: mustIdentity(t).NodeID()}
	if _, err := ep.Connect(context.Background(), tkt); !errors.Is(err, transport.ErrConnectFailed) {
		t.Fatalf("connect to unknown node: got %v, want ErrConnectFailed", err)
	}
}

func TestCloseWakesAccept(t *testing.T) {
	network := NewNetwork()

	ep, err := network.Bind(mustIdentity(t))
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ep.Accept(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := ep.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrEndpointClosed) {
			t.Fatalf("accept after close: got %v, want ErrEndpointClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("accept did not wake after close")
	}
}

func TestStreamHalfClose(t *testing.T) {
	ctx := context.Background()
	dialSide, acceptSide := testPair(t)

	streamCh := make(chan transport.Stream, 1)
	go func() {
		stream, err := acceptSide.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		streamCh <- stream
	}()

	local, err := dialSide.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	remote := <-streamCh

	go func() {
		if _, err := local.Write([]byte("fin")); err != nil {
			t.Error(err)
		}
		if err := local.CloseSend(); err != nil {
			t.Error(err)
		}
	}()

	buf, err := io.ReadAll(remote)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "fin" {
		t.Fatalf("read %q, want %q", buf, "fin")
	}
}

func TestSessionCloseFailsStreams(t *testing.T) {
	ctx := context.Background()
	dialSide, acceptSide := testPair(t)

	streamCh := make(chan transport.Stream, 1)
	go func() {
		stream, err := acceptSide.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		streamCh <- stream
	}()

	if _, err := dialSide.OpenStream(ctx); err != nil {
		t.Fatal(err)
	}
	remote := <-streamCh

	readErr := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(remote)
		readErr <- err
	}()

	if err := dialSide.CloseWithError(0, "bye"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-readErr:
		if !errors.Is(err, transport.ErrConnectionClosed) {
			t.Fatalf("read on closed session: got %v, want ErrConnectionClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("read did not fail after session close")
	}

	if _, err := acceptSide.AcceptStream(ctx); !errors.Is(err, transport.ErrConnectionClosed) {
		t.Fatalf("accept stream on closed session: got %v, want ErrConnectionClosed", err)
	}
}
