// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/robcohen/peervault/pkg/identity"
	"github.com/robcohen/peervault/pkg/peer"
	"github.com/robcohen/peervault/pkg/transport/quict"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core    coreConf
	Logging logConf
	Listen  listenConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	IdentityFile string `toml:"identity-file"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// listenConf describes the Listen-configuration block.
type listenConf struct {
	Address  string
	Protocol string
	Relay    string
}

// loadIdentity reads the node's secret seed from the given file, generating
// and persisting a fresh one on first start.
func loadIdentity(path string) (identity.Identity, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		return identity.FromSeed(seed)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return identity.Identity{}, err
	}

	id, err := identity.New()
	if err != nil {
		return identity.Identity{}, err
	}

	if err := os.WriteFile(path, id.Seed(), 0600); err != nil {
		return identity.Identity{}, err
	}

	log.WithFields(log.Fields{
		"file": path,
		"node": id.NodeID(),
	}).Info("Generated new identity")

	return id, nil
}

// parseEndpoint creates the Endpoint based on the given TOML configuration.
func parseEndpoint(filename string) (endpoint *peer.Endpoint, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	// Logging
	if conf.Logging.Level != "" {
		if lvl, lvlErr := log.ParseLevel(conf.Logging.Level); lvlErr != nil {
			log.WithFields(log.Fields{
				"level":    conf.Logging.Level,
				"error":    lvlErr,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.Logging.ReportCaller)

	switch conf.Logging.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}

	// Identity
	if conf.Core.IdentityFile == "" {
		err = fmt.Errorf("core.identity-file is empty")
		return
	}

	id, err := loadIdentity(conf.Core.IdentityFile)
	if err != nil {
		return
	}

	provider := quict.NewProvider(quict.Config{
		ListenAddress: conf.Listen.Address,
		Protocol:      conf.Listen.Protocol,
		Relay:         conf.Listen.Relay,
	})

	return peer.Listen(provider, id)
}
