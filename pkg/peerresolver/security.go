/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package peerresolver

import "crypto/tls"

// SecurityConfig tells the resolver whether connections to the cluster are
// encrypted, which decides which advertised port is authoritative.
type SecurityConfig interface {
	IsEncryptionEnabled() bool
}

// StaticSecurity is a SecurityConfig with a fixed answer.
type StaticSecurity bool

func (s StaticSecurity) IsEncryptionEnabled() bool {
	return bool(s)
}

// TLSSecurity reports encryption as enabled whenever a TLS configuration is
// present.
type TLSSecurity struct {
	Config *tls.Config
}

func (s TLSSecurity) IsEncryptionEnabled() bool {
	return s.Config != nil
}
