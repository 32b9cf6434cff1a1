// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// pv-tool is a little swiss army knife for the PeerVault peer layer.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/identity"
)

// printUsage of pv-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s genid|ping|exchange:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s genid identity-file\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Creates a new identity, stores its secret seed in identity-file and\n")
	_, _ = fmt.Fprintf(os.Stderr, "  prints the node id.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s ping identity-file ticket [count]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Connects to the node behind the ticket, sends count (default 4) messages\n")
	_, _ = fmt.Fprintf(os.Stderr, "  and waits for each echo, printing the measured round-trip time. The\n")
	_, _ = fmt.Fprintf(os.Stderr, "  ticket is given either directly or as the name of a file containing it.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s exchange identity-file directory [ticket]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Exchanges files with a remote node: new files dropped into the directory\n")
	_, _ = fmt.Fprintf(os.Stderr, "  are sent as messages, received messages are written into the directory.\n")
	_, _ = fmt.Fprintf(os.Stderr, "  With a ticket the remote node is dialed; without one %s listens,\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  prints its own ticket and waits for the peer to dial in.\n\n")

	os.Exit(1)
}

// printFatal logs the error and exits.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// readIdentity loads a previously generated identity from its seed file.
func readIdentity(path string) identity.Identity {
	seed, err := os.ReadFile(path)
	if err != nil {
		printFatal(err, "Reading identity file errored")
	}

	id, err := identity.FromSeed(seed)
	if err != nil {
		printFatal(err, "Restoring identity errored")
	}

	return id
}

// readTicket accepts a ticket either directly or as a file name.
func readTicket(arg string) string {
	if content, err := os.ReadFile(arg); err == nil {
		return string(content)
	}

	return arg
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
	}

	switch os.Args[1] {
	case "genid":
		generateIdentity(os.Args[2:])

	case "ping":
		startPing(os.Args[2:])

	case "exchange":
		startExchange(os.Args[2:])

	default:
		printUsage()
	}
}
