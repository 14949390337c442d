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
	"fmt"
	"net"

	"github.com/google/uuid"
)

// MapRow is a Row backed by a map of column name to value.  A column which is
// present in the map with a nil value is defined but null.
//
// Supported value types are net.IP, int, string and uuid.UUID.
type MapRow map[string]interface{}

var _ Row = MapRow(nil)

func (r MapRow) Has(column string) bool {
	_, ok := r[column]
	return ok
}

func (r MapRow) IsNull(column string) bool {
	switch v := r[column].(type) {
	case nil:
		return true
	case net.IP:
		return v == nil
	}

	return false
}

func (r MapRow) value(column string) (interface{}, error) {
	val, ok := r[column]
	if !ok {
		return nil, fmt.Errorf("%s: %w", column, ErrColumnNotFound)
	}
	if val == nil {
		return nil, fmt.Errorf("%s: %w", column, ErrNullValue)
	}

	return val, nil
}

func (r MapRow) GetInet(column string) (net.IP, error) {
	val, err := r.value(column)
	if err != nil {
		return nil, err
	}

	ip, ok := val.(net.IP)
	if !ok {
		return nil, fmt.Errorf("%s: expected inet, got %T: %w", column, val, ErrWrongType)
	}
	if ip == nil {
		return nil, fmt.Errorf("%s: %w", column, ErrNullValue)
	}

	return ip, nil
}

func (r MapRow) GetInt(column string) (int, error) {
	val, err := r.value(column)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	}

	return 0, fmt.Errorf("%s: expected int, got %T: %w", column, val, ErrWrongType)
}

func (r MapRow) GetString(column string) (string, error) {
	val, err := r.value(column)
	if err != nil {
		return "", err
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected text, got %T: %w", column, val, ErrWrongType)
	}

	return str, nil
}

func (r MapRow) GetUUID(column string) (uuid.UUID, error) {
	val, err := r.value(column)
	if err != nil {
		return uuid.Nil, err
	}

	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s: expected uuid, got %T: %w", column, val, ErrWrongType)
	}

	return id, nil
}
