/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/couchbase/peer-endpoints/pkg/version"
)

const meterName = "com.couchbase.peer-endpoints"

type ResolverMetrics struct {
	EndpointsResolved    metric.Int64Counter
	RowsUndeterminable   metric.Int64Counter
	BindAllSubstitutions metric.Int64Counter
	TopologyNodes        metric.Int64Gauge
}

var (
	resolverMetrics     *ResolverMetrics
	resolverMetricsLock sync.Mutex
)

// GetResolverMetrics returns the process wide instruments, created against
// the global meter provider on first use.
func GetResolverMetrics() *ResolverMetrics {
	resolverMetricsLock.Lock()

	if resolverMetrics != nil {
		resolverMetricsLock.Unlock()
		return resolverMetrics
	}

	resolverMetrics = NewResolverMetrics(otel.GetMeterProvider())

	resolverMetricsLock.Unlock()
	return resolverMetrics
}

func NewResolverMetrics(provider metric.MeterProvider) *ResolverMetrics {
	meter := provider.Meter(
		meterName,
		metric.WithInstrumentationVersion(version.Version()))

	endpointsResolved, _ := meter.Int64Counter("peer_endpoints_resolved_total",
		metric.WithDescription("Number of topology rows resolved to an endpoint, by schema epoch"))
	rowsUndeterminable, _ := meter.Int64Counter("peer_rows_undeterminable_total",
		metric.WithDescription("Number of topology rows which did not describe a usable peer"))
	bindAllSubstitutions, _ := meter.Int64Counter("peer_bind_all_substitutions_total",
		metric.WithDescription("Number of peers advertising 0.0.0.0 as rpc_address"))
	topologyNodes, _ := meter.Int64Gauge("peer_topology_nodes",
		metric.WithDescription("Number of nodes in the latest topology snapshot"))

	return &ResolverMetrics{
		EndpointsResolved:    endpointsResolved,
		RowsUndeterminable:   rowsUndeterminable,
		BindAllSubstitutions: bindAllSubstitutions,
		TopologyNodes:        topologyNodes,
	}
}

func (m *ResolverMetrics) RecordResolved(epoch string) {
	m.EndpointsResolved.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("epoch", epoch)))
}

func (m *ResolverMetrics) RecordUndeterminable(epoch string) {
	m.RowsUndeterminable.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("epoch", epoch)))
}

func (m *ResolverMetrics) RecordBindAllSubstitution() {
	m.BindAllSubstitutions.Add(context.Background(), 1)
}

func (m *ResolverMetrics) RecordTopologySize(ctx context.Context, numNodes int) {
	m.TopologyNodes.Record(ctx, int64(numNodes))
}
