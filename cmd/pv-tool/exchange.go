// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/peer"
	"github.com/robcohen/peervault/pkg/transport/quict"
)

// exchange files between this node and a remote peer over one framed stream.
type exchange struct {
	directory  string
	knownFiles sync.Map
	endpoint   *peer.Endpoint
	connection *peer.Connection
	stream     *peer.Stream
	watcher    *fsnotify.Watcher

	closeChan       chan os.Signal
	messageReadChan chan []byte
}

// startExchange for the "exchange" CLI option.
func startExchange(args []string) {
	if len(args) != 2 && len(args) != 3 {
		printUsage()
	}

	var (
		id        = readIdentity(args[0])
		directory = args[1]

		err error
	)

	ex := &exchange{
		directory:       directory,
		closeChan:       make(chan os.Signal, 1),
		messageReadChan: make(chan []byte),
	}

	signal.Notify(ex.closeChan, os.Interrupt)

	ctx := context.Background()

	if ex.endpoint, err = peer.Listen(quict.NewProvider(quict.Config{}), id); err != nil {
		printFatal(err, "Binding endpoint errored")
	}

	if len(args) == 3 {
		if ex.connection, err = ex.endpoint.Connect(ctx, readTicket(args[2])); err != nil {
			printFatal(err, "Connecting errored")
		}
		if ex.stream, err = ex.connection.OpenStream(ctx); err != nil {
			printFatal(err, "Opening stream errored")
		}
	} else {
		ticketText, err := ex.endpoint.Ticket(ctx)
		if err != nil {
			printFatal(err, "Producing ticket errored")
		}
		fmt.Println(ticketText)

		log.Info("Waiting for the peer to dial in..")
		if ex.connection, err = ex.endpoint.Accept(ctx); err != nil {
			printFatal(err, "Accepting connection errored")
		}
		if ex.stream, err = ex.connection.AcceptStream(ctx); err != nil {
			printFatal(err, "Accepting stream errored")
		}
	}

	log.WithField("peer", ex.connection.RemoteID()).Info("Exchange established")

	if ex.watcher, err = fsnotify.NewWatcher(); err != nil {
		printFatal(err, "Starting file watcher errored")
	}
	if err = ex.watcher.Add(directory); err != nil {
		printFatal(err, "Adding directory to file watcher errored")
	}

	go ex.handleMessageRead()
	ex.handler()
}

// cleanFilepath creates a relative path from the initial path to a new file's path.
func (ex *exchange) cleanFilepath(f string) string {
	if rel, err := filepath.Rel(ex.directory, f); err != nil {
		log.WithField("path", f).WithError(err).Fatal("Failed to clean file path")
		return ""
	} else {
		return rel
	}
}

func (ex *exchange) handler() {
	defer func() {
		var errs *multierror.Error
		errs = multierror.Append(errs, ex.watcher.Close())
		errs = multierror.Append(errs, ex.connection.Close())
		errs = multierror.Append(errs, ex.endpoint.Close())

		if err := errs.ErrorOrNil(); err != nil {
			log.WithError(err).Warn("Exchange shutdown finished with errors")
		}
	}()

	for {
		select {
		case <-ex.closeChan:
			log.Info("Received interrupt signal")
			return

		case e, ok := <-ex.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if _, ok := ex.knownFiles.Load(ex.cleanFilepath(e.Name)); ok {
				log.WithField("file", e.Name).Debug("Skipping file; already known")
				continue
			}

			if e.Op&fsnotify.Create == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			ex.sendNewFile(e)

		case err, ok := <-ex.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Error("fsnotify errored")
			return

		case msg, ok := <-ex.messageReadChan:
			if !ok {
				log.Error("Message reader channel was closed")
				return
			}

			digest := sha256.Sum256(msg)
			filePath := path.Join(ex.directory, hex.EncodeToString(digest[:8]))
			logger := log.WithFields(log.Fields{
				"bytes": len(msg),
				"file":  filePath,
			})

			ex.knownFiles.Store(ex.cleanFilepath(filePath), struct{}{})

			if err := os.WriteFile(filePath, msg, 0644); err != nil {
				logger.WithError(err).Error("Writing received message errored")
				return
			}

			logger.Info("Saved received message")
		}
	}
}

// sendNewFile reads a freshly created file and sends its content as one
// message, retrying with backoff while the file is still being written.
func (ex *exchange) sendNewFile(e fsnotify.Event) {
	for i := 0; i < 5; i++ {
		if content, err := os.ReadFile(e.Name); err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Reading file errored, retrying..")
		} else if err := ex.stream.Send(content); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"file":  e.Name,
				"bytes": len(content),
			}).Error("Sending message errored")
			return
		} else {
			log.WithFields(log.Fields{
				"file":  e.Name,
				"bytes": len(content),
			}).Info("Sent message")
			return
		}

		time.Sleep(time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond)
	}

	log.WithField("file", e.Name).Error("Failed to process file, giving up.")
}

func (ex *exchange) handleMessageRead() {
	for {
		msg, err := ex.stream.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Error("Receiving message errored")
			}

			close(ex.messageReadChan)
			return
		}

		ex.messageReadChan <- msg
	}
}
