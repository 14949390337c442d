/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package addrtranslation

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/couchbase/peer-endpoints/utils/netutils"
)

var (
	ErrInvalidTranslation = errors.New("invalid address translation")
)

type translationTarget struct {
	addr netip.Addr
	// port is 0 when the source port should be kept
	port uint16
}

func (t translationTarget) apply(port int) (net.IP, int) {
	outPort := port
	if t.port != 0 {
		outPort = int(t.port)
	}

	return net.IP(t.addr.AsSlice()), outPort
}

// translationTable is immutable once built, it is swapped as a whole when
// the translations change.
type translationTable struct {
	exact  map[netip.AddrPort]translationTarget
	byAddr map[netip.Addr]translationTarget
}

func newTranslationTable() *translationTable {
	return &translationTable{
		exact:  make(map[netip.AddrPort]translationTarget),
		byAddr: make(map[netip.Addr]translationTarget),
	}
}

func (t *translationTable) Len() int {
	return len(t.exact) + len(t.byAddr)
}

// add parses a single "source -> target" entry.  A source is either "ip" or
// "ip:port", a target is "ip" (keep the source port) or "ip:port".
func (t *translationTable) add(source, target string) error {
	var dst translationTarget
	if ap, err := netip.ParseAddrPort(target); err == nil {
		dst = translationTarget{addr: ap.Addr().Unmap(), port: ap.Port()}
	} else if addr, err := netip.ParseAddr(target); err == nil {
		dst = translationTarget{addr: addr.Unmap()}
	} else {
		return fmt.Errorf("%w: target %q is not an address", ErrInvalidTranslation, target)
	}

	if netutils.IsInAddrAny(dst.addr.String()) {
		return fmt.Errorf("%w: target %q is a bind-all address", ErrInvalidTranslation, target)
	}

	if ap, err := netip.ParseAddrPort(source); err == nil {
		t.exact[netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())] = dst
		return nil
	}
	if addr, err := netip.ParseAddr(source); err == nil {
		t.byAddr[addr.Unmap()] = dst
		return nil
	}

	return fmt.Errorf("%w: source %q is not an address", ErrInvalidTranslation, source)
}

func (t *translationTable) translate(addr net.IP, port int) (net.IP, int) {
	srcAddr, ok := netip.AddrFromSlice(addr)
	if !ok {
		return addr, port
	}
	srcAddr = srcAddr.Unmap()

	if port >= 0 && port <= 65535 {
		if dst, ok := t.exact[netip.AddrPortFrom(srcAddr, uint16(port))]; ok {
			return dst.apply(port)
		}
	}
	if dst, ok := t.byAddr[srcAddr]; ok {
		return dst.apply(port)
	}

	return addr, port
}

// StaticTranslator translates addresses using a fixed table, typically taken
// from the client configuration.  An "ip:port" entry takes precedence over a
// plain "ip" entry for the same address.
type StaticTranslator struct {
	table *translationTable
}

var _ Translator = (*StaticTranslator)(nil)

func NewStaticTranslator(mappings map[string]string) (*StaticTranslator, error) {
	table := newTranslationTable()
	for source, target := range mappings {
		err := table.add(source, target)
		if err != nil {
			return nil, err
		}
	}

	return &StaticTranslator{
		table: table,
	}, nil
}

func (t *StaticTranslator) Len() int {
	return t.table.Len()
}

func (t *StaticTranslator) Translate(addr net.IP, port int) (net.IP, int) {
	return t.table.translate(addr, port)
}
