/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package endpoint

import (
	"net"
	"net/netip"
)

// Endpoint is the translated address a cluster member is contacted on.  Two
// endpoints are equal when both their address and port are equal, which
// makes Endpoint directly usable as a map key.
type Endpoint struct {
	addrPort netip.AddrPort
}

// New builds an endpoint from an IP and a port.  It returns the zero Endpoint
// when the IP is not a valid address or the port does not fit in 16 bits.
func New(ip net.IP, port int) Endpoint {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok || port < 0 || port > 65535 {
		return Endpoint{}
	}

	return FromAddrPort(netip.AddrPortFrom(addr, uint16(port)))
}

// FromAddrPort builds an endpoint from an already parsed address/port.  IPv4
// addresses in their IPv4-mapped IPv6 form are normalized so that the same
// host always produces the same endpoint.
func FromAddrPort(ap netip.AddrPort) Endpoint {
	return Endpoint{
		addrPort: netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()),
	}
}

func (e Endpoint) IsValid() bool {
	return e.addrPort.IsValid()
}

func (e Endpoint) AddrPort() netip.AddrPort {
	return e.addrPort
}

func (e Endpoint) Addr() netip.Addr {
	return e.addrPort.Addr()
}

func (e Endpoint) IP() net.IP {
	if !e.addrPort.IsValid() {
		return nil
	}
	return net.IP(e.addrPort.Addr().AsSlice())
}

func (e Endpoint) Port() int {
	return int(e.addrPort.Port())
}

// TCPAddr returns the address to dial for this endpoint.
func (e Endpoint) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(e.addrPort)
}

// Compare orders endpoints by address and then port.
func (e Endpoint) Compare(other Endpoint) int {
	return e.addrPort.Compare(other.addrPort)
}

func (e Endpoint) String() string {
	if !e.addrPort.IsValid() {
		return "<invalid>"
	}
	return e.addrPort.String()
}

func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
