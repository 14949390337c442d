/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package latestonlychannel provides a channel adapter for publishers which
// must never block on slow consumers, such as the topology watcher.
package latestonlychannel

// Wrap returns an output channel which always yields the most recent value
// received on inputCh.  Older values which were not yet consumed are dropped,
// so a producer writing to inputCh is only ever blocked for as long as it
// takes the internal goroutine to pick the value up.
//
// The output channel is closed once inputCh is closed, any value pending at
// that point is discarded.
func Wrap[T any](inputCh <-chan T) <-chan T {
	outputCh := make(chan T)

	go func() {
		defer close(outputCh)

		for {
			pending, ok := <-inputCh
			if !ok {
				return
			}

			// hold on to pending until the consumer takes it, replacing it with
			// anything newer which arrives in the meantime.
			delivered := false
			for !delivered {
				select {
				case outputCh <- pending:
					delivered = true
				case newer, ok := <-inputCh:
					if !ok {
						return
					}
					pending = newer
				}
			}
		}
	}()

	return outputCh
}
