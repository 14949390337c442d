/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package topology

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/mod/semver"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/endpoint"
)

// EndpointResolver is satisfied by peerresolver.Resolver and
// peerresolver.Manager.
type EndpointResolver interface {
	Resolve(row peerrows.Row) (endpoint.Endpoint, bool)
}

type Node struct {
	Endpoint       endpoint.Endpoint `json:"endpoint"`
	HostID         uuid.UUID         `json:"hostId"`
	DataCenter     string            `json:"dataCenter,omitempty"`
	Rack           string            `json:"rack,omitempty"`
	ReleaseVersion string            `json:"releaseVersion,omitempty"`
}

type Snapshot struct {
	Revision uint64  `json:"revision"`
	Nodes    []*Node `json:"nodes"`

	// Skipped counts the rows which did not describe a usable peer.
	Skipped int `json:"skipped"`
}

func (s *Snapshot) Endpoints() []endpoint.Endpoint {
	endpoints := make([]endpoint.Endpoint, len(s.Nodes))
	for i, node := range s.Nodes {
		endpoints[i] = node.Endpoint
	}
	return endpoints
}

// SameEndpoints reports whether both snapshots contain the same set of
// endpoints.  Node metadata is not compared.
func (s *Snapshot) SameEndpoints(other *Snapshot) bool {
	if other == nil {
		return false
	}

	return slices.Equal(s.Endpoints(), other.Endpoints())
}

// MinReleaseVersion returns the oldest server release in the snapshot, which
// bounds the features usable against the whole cluster.  Nodes with a
// missing or unparseable release_version are ignored.
func (s *Snapshot) MinReleaseVersion() string {
	minVersion := ""
	for _, node := range s.Nodes {
		version := "v" + strings.TrimPrefix(node.ReleaseVersion, "v")
		if !semver.IsValid(version) {
			continue
		}

		if minVersion == "" || semver.Compare(version, minVersion) < 0 {
			minVersion = version
		}
	}

	return strings.TrimPrefix(minVersion, "v")
}

// BuildSnapshot resolves every row into a node.  Rows which cannot be
// resolved are skipped, and when several rows resolve to the same endpoint
// only the first one is kept.  Nodes are ordered by endpoint.
func BuildSnapshot(logger *zap.Logger, resolver EndpointResolver, rows []peerrows.Row, revision uint64) *Snapshot {
	snapshot := &Snapshot{
		Revision: revision,
	}

	seen := make(map[endpoint.Endpoint]struct{}, len(rows))
	for _, row := range rows {
		ep, ok := resolver.Resolve(row)
		if !ok {
			snapshot.Skipped++
			continue
		}

		if _, ok := seen[ep]; ok {
			logger.Debug("ignoring duplicate peer row", zap.Stringer("endpoint", ep))
			continue
		}
		seen[ep] = struct{}{}

		node := &Node{
			Endpoint: ep,
		}
		if hostID, err := row.GetUUID(peerrows.ColumnHostID); err == nil {
			node.HostID = hostID
		}
		if dc, err := row.GetString(peerrows.ColumnDataCenter); err == nil {
			node.DataCenter = dc
		}
		if rack, err := row.GetString(peerrows.ColumnRack); err == nil {
			node.Rack = rack
		}
		if version, err := row.GetString(peerrows.ColumnReleaseVersion); err == nil {
			node.ReleaseVersion = version
		}

		snapshot.Nodes = append(snapshot.Nodes, node)
	}

	slices.SortFunc(snapshot.Nodes, func(a, b *Node) int {
		return a.Endpoint.Compare(b.Endpoint)
	})

	return snapshot
}
