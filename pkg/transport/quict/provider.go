// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quict

import (
	"fmt"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/transport"
	"github.com/robcohen/peervault/pkg/transport/quict/internal"
)

// DefaultProtocol is the ALPN tag used when none is configured.
const DefaultProtocol = "peervault/sync/1"

// Config holds the static parameters of a Provider.
type Config struct {
	// ListenAddress is the local UDP address to bind, ":0" when empty.
	ListenAddress string
	// Protocol is the ALPN tag separating this system from unrelated
	// protocols on the same host, DefaultProtocol when empty.
	Protocol string
	// Relay is an optional static relay hint carried verbatim in the
	// endpoint's tickets.
	Relay string
}

// Provider implements transport.Provider over QUIC.
type Provider struct {
	conf Config
}

func NewProvider(conf Config) *Provider {
	if conf.ListenAddress == "" {
		conf.ListenAddress = ":0"
	}
	if conf.Protocol == "" {
		conf.Protocol = DefaultProtocol
	}

	return &Provider{conf: conf}
}

func (provider *Provider) Bind(id identity.Identity) (transport.Endpoint, error) {
	tlsConf, err := internal.GenerateListenerTLSConfig(id, provider.conf.Protocol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transport.ErrBindFailed, err)
	}

	listener, err := quic.ListenAddr(provider.conf.ListenAddress, tlsConf, internal.GenerateQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transport.ErrBindFailed, err)
	}

	log.WithFields(log.Fields{
		"address": listener.Addr(),
		"node":    id.NodeID(),
	}).Info("Bound QUIC endpoint")

	return &Endpoint{
		id:       id,
		protocol: provider.conf.Protocol,
		relay:    provider.conf.Relay,
		listener: listener,
		closed:   make(chan struct{}),
	}, nil
}
