// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package internal

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/robcohen/peervault/pkg/identity"
)

// GenerateListenerTLSConfig builds the listener-side TLS config: our identity
// certificate, plus a mandatory client certificate from which the dialer's
// identity is read.
func GenerateListenerTLSConfig(id identity.Identity, protocol string) (*tls.Config, error) {
	cert, err := identityCertificate(id)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verifyIdentityCertificate(nil),
		NextProtos:            []string{protocol},
		MinVersion:            tls.VersionTLS13,
	}, nil
}

// GenerateDialerTLSConfig builds the dialer-side TLS config. The usual chain
// verification is disabled; instead the listener's certificate key is pinned
// to the expected node id.
func GenerateDialerTLSConfig(id identity.Identity, expected identity.NodeID, protocol string) (*tls.Config, error) {
	cert, err := identityCertificate(id)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyIdentityCertificate(&expected),
		NextProtos:            []string{protocol},
		MinVersion:            tls.VersionTLS13,
	}, nil
}

// GenerateQUICConfig returns the quic-go configuration shared by dialers and
// listeners.
func GenerateQUICConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod:    10 * time.Second,
		MaxIdleTimeout:     30 * time.Second,
		EnableDatagrams:    false,
		MaxIncomingStreams: 2048,
	}
}

// identityCertificate wraps the node's ed25519 key into a self-signed
// certificate. The certificate itself carries no trust; its only job is to
// transport the public key through the TLS handshake.
func identityCertificate(id identity.Identity) (tls.Certificate, error) {
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: id.NodeID().String()},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, id.Private().Public(), id.Private())
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating identity certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  id.Private(),
	}, nil
}

// verifyIdentityCertificate checks during the handshake that the peer
// presented a well-formed ed25519 certificate. With a non-nil expected id the
// certificate's key additionally has to match it.
func verifyIdentityCertificate(expected *identity.NodeID) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("peer presented no certificate")
		}

		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("parsing peer certificate: %w", err)
		}

		pub, ok := cert.PublicKey.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("peer certificate key is %T, not ed25519", cert.PublicKey)
		}

		if expected != nil {
			var got identity.NodeID
			copy(got[:], pub)
			if got != *expected {
				return fmt.Errorf("peer identity %s does not match expected %s", got, *expected)
			}
		}

		return nil
	}
}

// PeerID extracts the remote node's identity from a completed handshake.
func PeerID(state tls.ConnectionState) (identity.NodeID, error) {
	var nid identity.NodeID

	if len(state.PeerCertificates) == 0 {
		return nid, fmt.Errorf("handshake carries no peer certificate")
	}

	pub, ok := state.PeerCertificates[0].PublicKey.(ed25519.PublicKey)
	if !ok {
		return nid, fmt.Errorf("peer certificate key is %T, not ed25519", state.PeerCertificates[0].PublicKey)
	}

	copy(nid[:], pub)
	return nid, nil
}

// ListenAddresses expands a bound listen address into dialable addresses.
// An unspecified IP is replaced by the unicast addresses of all interfaces.
func ListenAddresses(addr net.Addr) []string {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok || !udpAddr.IP.IsUnspecified() {
		return []string{addr.String()}
	}

	port := strconv.Itoa(udpAddr.Port)

	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return []string{addr.String()}
	}

	var addrs []string
	for _, ifaceAddr := range ifaceAddrs {
		ipNet, ok := ifaceAddr.(*net.IPNet)
		if !ok || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}

		addrs = append(addrs, net.JoinHostPort(ipNet.IP.String(), port))
	}

	if len(addrs) == 0 {
		return []string{addr.String()}
	}
	return addrs
}
