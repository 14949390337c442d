/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package peerrows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInet
	kindInt
	kindUUID
)

var columnKinds = map[string]columnKind{
	ColumnNativeAddress:          kindInet,
	ColumnNativeTransportAddress: kindInet,
	ColumnPeer:                   kindInet,
	ColumnRPCAddress:             kindInet,
	"broadcast_address":          kindInet,
	"listen_address":             kindInet,
	"preferred_ip":               kindInet,

	ColumnNativePort:             kindInt,
	ColumnNativeTransportPort:    kindInt,
	ColumnNativeTransportPortSSL: kindInt,

	ColumnHostID:     kindUUID,
	"schema_version": kindUUID,
}

// DecodeJSONRows reads a JSON array of row objects.  Address columns are
// encoded as strings, port columns as numbers, uuid columns as strings and a
// JSON null marks a defined column with a null value.
func DecodeJSONRows(r io.Reader) ([]MapRow, error) {
	var rawRows []map[string]json.RawMessage

	dec := json.NewDecoder(r)
	err := dec.Decode(&rawRows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode rows")
	}

	rows := make([]MapRow, 0, len(rawRows))
	for rowIdx, rawRow := range rawRows {
		row := make(MapRow, len(rawRow))
		for column, rawValue := range rawRow {
			value, err := decodeColumn(column, rawValue)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowIdx, err)
			}

			row[column] = value
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func decodeColumn(column string, rawValue json.RawMessage) (interface{}, error) {
	if string(rawValue) == "null" {
		return nil, nil
	}

	switch columnKinds[column] {
	case kindInet:
		var str string
		if err := json.Unmarshal(rawValue, &str); err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("%s: invalid inet value %q: %w", column, str, ErrWrongType)
		}
		return ip, nil
	case kindInt:
		var num int
		if err := json.Unmarshal(rawValue, &num); err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}
		return num, nil
	case kindUUID:
		var str string
		if err := json.Unmarshal(rawValue, &str); err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}

		id, err := uuid.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}
		return id, nil
	}

	// unknown columns are kept in whatever shape JSON gives us, we never
	// read them but they must still count as defined.
	var value interface{}
	if err := json.Unmarshal(rawValue, &value); err != nil {
		return nil, fmt.Errorf("%s: %w", column, err)
	}
	return value, nil
}

// FileSource reads rows from a JSON file every time they are fetched.  It is
// used to replay captured node listings through the resolver.
type FileSource struct {
	Path string
}

func (s *FileSource) FetchPeers(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rows file")
	}
	defer f.Close()

	mapRows, err := DecodeJSONRows(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rows from %s", s.Path)
	}

	rows := make([]Row, len(mapRows))
	for i, row := range mapRows {
		rows[i] = row
	}

	return rows, nil
}
