// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/peer"
	"github.com/robcohen/peervault/pkg/transport/quict"
)

// startPing for the "ping" CLI option: send messages to an echoing node and
// measure how long the round trip takes.
func startPing(args []string) {
	if len(args) != 2 && len(args) != 3 {
		printUsage()
	}

	var (
		id         = readIdentity(args[0])
		ticketText = readTicket(args[1])
		count      = 4
	)

	if len(args) == 3 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil || parsed <= 0 {
			printUsage()
		}
		count = parsed
	}

	ctx := context.Background()

	endpoint, err := peer.Listen(quict.NewProvider(quict.Config{}), id)
	if err != nil {
		printFatal(err, "Binding endpoint errored")
	}
	defer func() { _ = endpoint.Close() }()

	connection, err := endpoint.Connect(ctx, ticketText)
	if err != nil {
		printFatal(err, "Connecting errored")
	}
	defer func() { _ = connection.Close() }()

	stream, err := connection.OpenStream(ctx)
	if err != nil {
		printFatal(err, "Opening stream errored")
	}

	for i := 0; i < count; i++ {
		payload := []byte(fmt.Sprintf("ping %d", i))

		start := time.Now()
		if err := stream.Send(payload); err != nil {
			printFatal(err, "Sending ping errored")
		}

		echo, err := stream.Receive()
		if err != nil {
			printFatal(err, "Receiving echo errored")
		}
		elapsed := time.Since(start)

		if !bytes.Equal(echo, payload) {
			log.WithFields(log.Fields{
				"sent":     string(payload),
				"received": string(echo),
			}).Warn("Echo differs from ping")
		}

		fmt.Printf("%d bytes from %v: seq=%d time=%v transport-rtt=%v\n",
			len(echo), connection.RemoteID(), i, elapsed, connection.RTT())
	}

	if err := stream.CloseSend(); err != nil {
		log.WithError(err).Warn("Finishing stream errored")
	}
}
