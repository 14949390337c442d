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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/metrics"
	"github.com/couchbase/peer-endpoints/utils/latestonlychannel"
)

const tracerName = "com.couchbase.peer-endpoints/topology"

// RowSource fetches the current rows of the node listing tables.
type RowSource interface {
	FetchPeers(ctx context.Context) ([]peerrows.Row, error)
}

type WatcherOptions struct {
	Source   RowSource
	Resolver EndpointResolver
	Interval time.Duration
	Logger   *zap.Logger
	Metrics  *metrics.ResolverMetrics
}

// Watcher periodically refreshes the topology from a RowSource.
type Watcher struct {
	source   RowSource
	resolver EndpointResolver
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.ResolverMetrics

	lock   sync.Mutex
	latest *Snapshot
}

func NewWatcher(opts WatcherOptions) *Watcher {
	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	watcherMetrics := opts.Metrics
	if watcherMetrics == nil {
		watcherMetrics = metrics.GetResolverMetrics()
	}

	return &Watcher{
		source:   opts.Source,
		resolver: opts.Resolver,
		interval: interval,
		logger:   logger,
		metrics:  watcherMetrics,
	}
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (w *Watcher) Latest() *Snapshot {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.latest
}

// Refresh fetches and resolves the rows once.  The revision is only bumped,
// and changed only reported, when the set of endpoints differs from the
// previous snapshot.
func (w *Watcher) Refresh(ctx context.Context) (*Snapshot, bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "topology.refresh")
	defer span.End()

	rows, err := w.source.FetchPeers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch peers")
		return nil, false, err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	var revision uint64
	if w.latest != nil {
		revision = w.latest.Revision
	}

	snapshot := BuildSnapshot(w.logger, w.resolver, rows, revision)

	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("nodes", len(snapshot.Nodes)),
		attribute.Int("skipped", snapshot.Skipped))
	w.metrics.RecordTopologySize(ctx, len(snapshot.Nodes))

	if snapshot.SameEndpoints(w.latest) {
		return w.latest, false, nil
	}

	snapshot.Revision = revision + 1
	w.latest = snapshot

	span.AddEvent("topology changed", trace.WithAttributes(
		attribute.Int64("revision", int64(snapshot.Revision))))
	w.logger.Info("topology changed",
		zap.Uint64("revision", snapshot.Revision),
		zap.Int("numNodes", len(snapshot.Nodes)),
		zap.Int("numSkipped", snapshot.Skipped))

	return snapshot, true, nil
}

// Watch performs an initial refresh, returning its error if any, and then
// keeps refreshing every interval until ctx is cancelled.  Only snapshots
// with a changed endpoint set are emitted and slow consumers only observe
// the latest one.  The channel is closed once ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan *Snapshot, error) {
	snapshot, _, err := w.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	inputCh := make(chan *Snapshot)
	outputCh := latestonlychannel.Wrap(inputCh)

	go func() {
		defer close(inputCh)

		// the wrapper goroutine is always receiving, so this never blocks
		// for long...
		inputCh <- snapshot

	WatchLoop:
		for {
			select {
			case <-time.After(w.interval):
			case <-ctx.Done():
				break WatchLoop
			}

			snapshot, changed, err := w.Refresh(ctx)
			if err != nil {
				w.logger.Warn("failed to refresh topology", zap.Error(err))
				continue
			}

			if changed {
				inputCh <- snapshot
			}
		}
	}()

	return outputCh, nil
}
