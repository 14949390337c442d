/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package peerrows describes rows read from a cluster's node listing tables
// (system.local / system.peers / system.peers_v2) and provides an in-memory
// implementation of them.
package peerrows

import (
	"errors"
	"net"

	"github.com/google/uuid"
)

// Column names understood by the resolver and the topology tracker.
const (
	ColumnNativeAddress          = "native_address"
	ColumnNativePort             = "native_port"
	ColumnNativeTransportAddress = "native_transport_address"
	ColumnNativeTransportPort    = "native_transport_port"
	ColumnNativeTransportPortSSL = "native_transport_port_ssl"
	ColumnPeer                   = "peer"
	ColumnRPCAddress             = "rpc_address"

	ColumnHostID         = "host_id"
	ColumnDataCenter     = "data_center"
	ColumnRack           = "rack"
	ColumnReleaseVersion = "release_version"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNullValue      = errors.New("column value is null")
	ErrWrongType      = errors.New("column value has the wrong type")
)

// Row is a single record of a node listing query.  Columns may legitimately
// be missing depending on the server version that produced the row.
type Row interface {
	// Has reports whether the column is defined in the row, regardless of
	// whether its value is null.
	Has(column string) bool

	// IsNull reports whether the column is undefined or holds a null value.
	IsNull(column string) bool

	GetInet(column string) (net.IP, error)
	GetInt(column string) (int, error)
	GetString(column string) (string, error)
	GetUUID(column string) (uuid.UUID, error)
}
