// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quict

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/robcohen/peervault/pkg/identity"
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

func loopbackEndpoint(t *testing.T, id identity.Identity) transport.Endpoint {
	t.Helper()

	provider := NewProvider(Config{ListenAddress: "127.0.0.1:0"})
	endpoint, err := provider.Bind(id)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = endpoint.Close() })
	return endpoint
}

func TestLoopbackExchange(t *testing.T) {
	ctx := context.Background()

	idA, idB := mustIdentity(t), mustIdentity(t)
	epA := loopbackEndpoint(t, idA)
	epB := loopbackEndpoint(t, idB)

	tktA, err := epA.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tktA.Addrs) == 0 {
		t.Fatal("descriptor carries no address")
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

	dialSession, err := epB.Connect(ctx, tktA)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = dialSession.CloseWithError(0, "test done") }()

	res := <-acceptCh
	if res.err != nil {
		t.Fatal(res.err)
	}
	acceptSession := res.session

	if dialSession.RemoteID() != idA.NodeID() {
		t.Fatalf("dialer sees remote %v, want %v", dialSession.RemoteID(), idA.NodeID())
	}
	if acceptSession.RemoteID() != idB.NodeID() {
		t.Fatalf("acceptor sees remote %v, want %v", acceptSession.RemoteID(), idB.NodeID())
	}
	if dialSession.RTT() <= 0 {
		t.Fatalf("dialer RTT estimate is %v, want > 0", dialSession.RTT())
	}

	// One stream each way, a few bytes over each.
	streamCh := make(chan transport.Stream, 1)
	go func() {
		stream, err := acceptSession.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		streamCh <- stream
	}()

	out, err := dialSession.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.Write([]byte("over quic")); err != nil {
		t.Fatal(err)
	}
	if err := out.CloseSend(); err != nil {
		t.Fatal(err)
	}

	in := <-streamCh
	buf, err := io.ReadAll(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "over quic" {
		t.Fatalf("received %q", buf)
	}
}

func TestIdentityPinning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	idA, idB := mustIdentity(t), mustIdentity(t)
	epA := loopbackEndpoint(t, idA)
	epB := loopbackEndpoint(t, idB)

	go func() {
		// The handshake must fail before Accept ever sees the session, so
		// this Accept is expected to stay pending.
		_, _ = epA.Accept(context.Background())
	}()

	tktA, err := epA.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Right addresses, wrong identity: the dial must be rejected during the
	// handshake.
	tktA.NodeID = mustIdentity(t).NodeID()

	if _, err := epB.Connect(ctx, tktA); !errors.Is(err, transport.ErrConnectFailed) {
		t.Fatalf("got %v, want ErrConnectFailed", err)
	}
}

func TestCloseWakesAccept(t *testing.T) {
	provider := NewProvider(Config{ListenAddress: "127.0.0.1:0"})
	endpoint, err := provider.Bind(mustIdentity(t))
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := endpoint.Accept(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := endpoint.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrEndpointClosed) {
			t.Fatalf("pending accept: got %v, want ErrEndpointClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("accept did not wake after close")
	}
}

func TestSessionCloseWakesAcceptStream(t *testing.T) {
	ctx := context.Background()

	idA, idB := mustIdentity(t), mustIdentity(t)
	epA := loopbackEndpoint(t, idA)
	epB := loopbackEndpoint(t, idB)

	tktA, err := epA.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	sessionCh := make(chan transport.Session, 1)
	go func() {
		session, err := epA.Accept(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		sessionCh <- session
	}()

	dialSession, err := epB.Connect(ctx, tktA)
	if err != nil {
		t.Fatal(err)
	}
	acceptSession := <-sessionCh

	errCh := make(chan error, 1)
	go func() {
		_, err := acceptSession.AcceptStream(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := dialSession.CloseWithError(0, "bye"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrConnectionClosed) {
			t.Fatalf("pending accept stream: got %v, want ErrConnectionClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("accept stream did not wake after peer close")
	}
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	epB := loopbackEndpoint(t, mustIdentity(t))

	tkt, err := epB.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// A ticket pointing at a port nobody listens on.
	tkt.NodeID = mustIdentity(t).NodeID()
	tkt.Addrs = []string{"127.0.0.1:1"}

	if _, err := epB.Connect(ctx, tkt); !errors.Is(err, transport.ErrConnectFailed) {
		t.Fatalf("got %v, want ErrConnectFailed", err)
	}
}
