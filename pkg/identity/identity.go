// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package identity manages a node's long-term ed25519 key pair.
//
// A node is identified by its public key. The 32-byte secret seed is the only
// durable state of the whole peer layer; hosts persist it however they like
// and feed it back into FromSeed after a restart to keep a stable identity.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// SeedLength is the exact length of an exported secret seed in bytes.
const SeedLength = 32

// ErrInvalidKeyLength is returned when imported secret key material is not
// exactly SeedLength bytes long.
var ErrInvalidKeyLength = errors.New("secret key must be 32 bytes")

// NodeID is a node's public identifier, i.e. its ed25519 public key.
// Its textual form is the lowercase hex encoding.
type NodeID [ed25519.PublicKeySize]byte

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseNodeID parses the textual form produced by NodeID.String.
func ParseNodeID(s string) (id NodeID, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("node id is not hex: %v", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("node id must be %d bytes, got %d", len(id), len(b))
	}

	copy(id[:], b)
	return id, nil
}

// Identity is a long-term key pair. The zero value is unusable; create one
// with New or restore one with FromSeed.
type Identity struct {
	priv ed25519.PrivateKey
}

// New generates an Identity with fresh random key material.
func New() (Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("generating ed25519 key: %w", err)
	}

	return Identity{priv: priv}, nil
}

// FromSeed restores an Identity from a previously exported seed, yielding the
// same NodeID the exporting node had.
func FromSeed(seed []byte) (Identity, error) {
	if len(seed) != SeedLength {
		return Identity{}, fmt.Errorf("%w, got %d", ErrInvalidKeyLength, len(seed))
	}

	return Identity{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed exports the secret seed. FromSeed(id.Seed()) restores this Identity.
func (id Identity) Seed() []byte {
	return id.priv.Seed()
}

// NodeID derives the public identifier for this Identity.
func (id Identity) NodeID() (nid NodeID) {
	copy(nid[:], id.priv.Public().(ed25519.PublicKey))
	return nid
}

// Private exposes the ed25519 private key, e.g. for signing transport
// handshake certificates.
func (id Identity) Private() ed25519.PrivateKey {
	return id.priv
}
