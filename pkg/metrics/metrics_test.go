package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		require.Equal(t, meterName, sm.Scope.Name)
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestResolverMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m := NewResolverMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m.RecordResolved("native_transport")
	m.RecordResolved("native_transport")
	m.RecordResolved("legacy_peer")
	m.RecordUndeterminable("native_address")
	m.RecordBindAllSubstitution()
	m.RecordTopologySize(context.Background(), 4)
	m.RecordTopologySize(context.Background(), 3)

	collected := collect(t, reader)

	resolved, ok := collected["peer_endpoints_resolved_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byEpoch := make(map[string]int64)
	for _, dp := range resolved.DataPoints {
		epoch, found := dp.Attributes.Value(attribute.Key("epoch"))
		require.True(t, found)
		byEpoch[epoch.AsString()] = dp.Value
	}
	require.Equal(t, map[string]int64{"native_transport": 2, "legacy_peer": 1}, byEpoch)

	undeterminable, ok := collected["peer_rows_undeterminable_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, undeterminable.DataPoints, 1)
	require.EqualValues(t, 1, undeterminable.DataPoints[0].Value)

	bindAll, ok := collected["peer_bind_all_substitutions_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, bindAll.DataPoints, 1)
	require.EqualValues(t, 1, bindAll.DataPoints[0].Value)

	nodes, ok := collected["peer_topology_nodes"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, nodes.DataPoints, 1)
	require.EqualValues(t, 3, nodes.DataPoints[0].Value)
}

func TestGetResolverMetricsIsShared(t *testing.T) {
	require.Same(t, GetResolverMetrics(), GetResolverMetrics())
}
