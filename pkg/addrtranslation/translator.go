/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package addrtranslation rewrites the addresses that cluster members
// advertise into the addresses this client can actually reach, for instance
// when the cluster sits behind a NAT or spans cloud regions.
package addrtranslation

import "net"

// Translator translates an advertised address and port into the address and
// port which should be dialed.  When no translation applies, the input must
// be returned unchanged.
type Translator interface {
	Translate(addr net.IP, port int) (net.IP, int)
}

// TranslatorFunc adapts a plain function to the Translator interface.
type TranslatorFunc func(addr net.IP, port int) (net.IP, int)

func (fn TranslatorFunc) Translate(addr net.IP, port int) (net.IP, int) {
	return fn(addr, port)
}

// IdentityTranslator returns a Translator which never changes its input.
func IdentityTranslator() Translator {
	return TranslatorFunc(func(addr net.IP, port int) (net.IP, int) {
		return addr, port
	})
}
