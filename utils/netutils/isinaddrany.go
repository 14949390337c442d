/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package netutils

import "net"

// IsInAddrAny reports whether a textual address means "all interfaces".  It
// is used when validating operator supplied addresses, where an empty string
// or any unspecified address (v4 or v6) is never a usable dial target.
func IsInAddrAny(addr string) bool {
	if addr == "" || addr == "::/0" || addr == "0.0.0.0/0" {
		return true
	}

	ip := net.ParseIP(addr)
	return ip != nil && ip.IsUnspecified()
}

// IsBindAllAddress reports whether ip is the IPv4 bind-all address 0.0.0.0,
// in either its 4-byte or its IPv4-mapped 16-byte form.  The IPv6 unspecified
// address is deliberately not matched, servers only advertise the v4 form.
func IsBindAllAddress(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}

	return ip4.Equal(net.IPv4zero)
}
