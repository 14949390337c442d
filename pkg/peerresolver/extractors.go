/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package peerresolver

import (
	"net"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/utils/netutils"
)

// ContactAddress is the untranslated address/port pair read from a row.
type ContactAddress struct {
	IP   net.IP
	Port int

	// BroadcastFallback is set when the row advertised the bind-all address
	// and the broadcast address was used in its place.
	BroadcastFallback bool
}

// ExtractEnv carries the configuration extractors may consult.
type ExtractEnv struct {
	Security SecurityConfig

	// DefaultPort is the native port configured for the cluster, used for
	// rows which do not advertise a port at all.
	DefaultPort int
}

// Extractor reads the contact address of one schema epoch of the node
// listing tables.  Applies decides whether the row belongs to the epoch and
// Extract reports false when the row does not describe a usable peer.
type Extractor interface {
	Name() string
	Applies(row peerrows.Row) bool
	Extract(row peerrows.Row, env ExtractEnv) (ContactAddress, bool)
}

// DefaultExtractors returns the schema epochs in the order they must be
// tried.  The first extractor which applies to a row is authoritative.
func DefaultExtractors() []Extractor {
	return []Extractor{
		NativeAddressExtractor{},
		NativeTransportExtractor{},
		LegacyPeerExtractor{},
	}
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

// NativeAddressExtractor handles rows carrying native_address/native_port.
// This epoch advertises a single port, there is no encrypted variant.
type NativeAddressExtractor struct{}

func (NativeAddressExtractor) Name() string { return "native_address" }

func (NativeAddressExtractor) Applies(row peerrows.Row) bool {
	return row.Has(peerrows.ColumnNativeAddress)
}

func (NativeAddressExtractor) Extract(row peerrows.Row, env ExtractEnv) (ContactAddress, bool) {
	ip, err := row.GetInet(peerrows.ColumnNativeAddress)
	if err != nil {
		return ContactAddress{}, false
	}

	port, err := row.GetInt(peerrows.ColumnNativePort)
	if err != nil || !isValidPort(port) {
		return ContactAddress{}, false
	}

	return ContactAddress{IP: ip, Port: port}, true
}

// NativeTransportExtractor handles rows carrying native_transport_address
// and native_transport_port, switching to native_transport_port_ssl when
// encryption is enabled and the row advertises one.
type NativeTransportExtractor struct{}

func (NativeTransportExtractor) Name() string { return "native_transport" }

func (NativeTransportExtractor) Applies(row peerrows.Row) bool {
	return row.Has(peerrows.ColumnNativeTransportAddress)
}

func (NativeTransportExtractor) Extract(row peerrows.Row, env ExtractEnv) (ContactAddress, bool) {
	ip, err := row.GetInet(peerrows.ColumnNativeTransportAddress)
	if err != nil {
		return ContactAddress{}, false
	}

	port, err := row.GetInt(peerrows.ColumnNativeTransportPort)
	if err != nil {
		return ContactAddress{}, false
	}

	if env.Security.IsEncryptionEnabled() && !row.IsNull(peerrows.ColumnNativeTransportPortSSL) {
		port, err = row.GetInt(peerrows.ColumnNativeTransportPortSSL)
		if err != nil {
			return ContactAddress{}, false
		}
	}

	if !isValidPort(port) {
		return ContactAddress{}, false
	}

	return ContactAddress{IP: ip, Port: port}, true
}

// LegacyPeerExtractor handles the oldest layout, peer/rpc_address, where the
// port is not advertised and the configured native port is used.  It applies
// to every row and is always the last extractor.
type LegacyPeerExtractor struct{}

func (LegacyPeerExtractor) Name() string { return "legacy_peer" }

func (LegacyPeerExtractor) Applies(row peerrows.Row) bool {
	return true
}

func (LegacyPeerExtractor) Extract(row peerrows.Row, env ExtractEnv) (ContactAddress, bool) {
	broadcastAddress, err := row.GetInet(peerrows.ColumnPeer)
	if err != nil {
		return ContactAddress{}, false
	}

	rpcAddress, err := row.GetInet(peerrows.ColumnRPCAddress)
	if err != nil {
		return ContactAddress{}, false
	}

	if netutils.IsBindAllAddress(rpcAddress) {
		return ContactAddress{
			IP:                broadcastAddress,
			Port:              env.DefaultPort,
			BroadcastFallback: true,
		}, true
	}

	return ContactAddress{IP: rpcAddress, Port: env.DefaultPort}, true
}
