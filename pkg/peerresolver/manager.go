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
	"sync/atomic"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/endpoint"
)

// Manager owns the resolver used by a session and allows it to be rebuilt
// when the translator or security configuration changes.  Resolutions in
// flight during a Reconfigure finish against the previous resolver.
type Manager struct {
	current atomic.Pointer[Resolver]
}

func NewManager(opts Options) (*Manager, error) {
	resolver, err := NewResolver(opts)
	if err != nil {
		return nil, err
	}

	m := &Manager{}
	m.current.Store(resolver)
	return m, nil
}

// Reconfigure replaces the resolver.  The previous resolver stays active if
// the new options are invalid.
func (m *Manager) Reconfigure(opts Options) error {
	resolver, err := NewResolver(opts)
	if err != nil {
		return err
	}

	m.current.Store(resolver)
	return nil
}

func (m *Manager) Resolver() *Resolver {
	return m.current.Load()
}

func (m *Manager) Resolve(row peerrows.Row) (endpoint.Endpoint, bool) {
	return m.current.Load().Resolve(row)
}
