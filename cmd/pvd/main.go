// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// pvd is the PeerVault peer daemon. It binds an endpoint for the configured
// identity, prints the endpoint's ticket for out-of-band exchange, and
// answers every inbound stream by echoing received messages back.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/peer"
	"github.com/robcohen/peervault/pkg/transport"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func acceptLoop(endpoint *peer.Endpoint, connections *sync.Map) {
	ctx := context.Background()

	for {
		connection, err := endpoint.Accept(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrEndpointClosed) {
				return
			}

			log.WithError(err).Error("Accepting connection errored")
			continue
		}

		log.WithField("peer", connection.RemoteID()).Info("Peer connected")

		connections.Store(connection, struct{}{})
		go serveConnection(connection, connections)
	}
}

func serveConnection(connection *peer.Connection, connections *sync.Map) {
	defer connections.Delete(connection)

	ctx := context.Background()

	for {
		stream, err := connection.AcceptStream(ctx)
		if err != nil {
			log.WithFields(log.Fields{
				"peer":  connection.RemoteID(),
				"error": err,
			}).Debug("Connection finished")
			return
		}

		go echoStream(connection, stream)
	}
}

// echoStream sends every received message straight back until the peer
// finishes its send half.
func echoStream(connection *peer.Connection, stream *peer.Stream) {
	for {
		msg, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			_ = stream.CloseSend()
			return
		}
		if err != nil {
			log.WithFields(log.Fields{
				"peer":  connection.RemoteID(),
				"error": err,
			}).Debug("Receiving message errored")
			return
		}

		log.WithFields(log.Fields{
			"peer":  connection.RemoteID(),
			"bytes": len(msg),
		}).Debug("Echoing message")

		if err := stream.Send(msg); err != nil {
			log.WithFields(log.Fields{
				"peer":  connection.RemoteID(),
				"error": err,
			}).Warn("Echoing message errored")
			return
		}
	}
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	endpoint, err := parseEndpoint(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse config")
	}

	ticketText, err := endpoint.Ticket(context.Background())
	if err != nil {
		log.WithError(err).Fatal("Failed to produce ticket")
	}

	log.WithField("node", endpoint.NodeID()).Info("Endpoint is up")
	fmt.Println(ticketText)

	var connections sync.Map
	go acceptLoop(endpoint, &connections)

	waitSigint()
	log.Info("Shutting down..")

	var errs *multierror.Error
	errs = multierror.Append(errs, endpoint.Close())

	connections.Range(func(key, _ interface{}) bool {
		errs = multierror.Append(errs, key.(*peer.Connection).Close())
		return true
	})

	if err := errs.ErrorOrNil(); err != nil {
		log.WithError(err).Warn("Shutdown finished with errors")
	}
}
