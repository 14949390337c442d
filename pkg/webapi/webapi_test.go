package webapi

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/pkg/endpoint"
	"github.com/couchbase/peer-endpoints/pkg/topology"
)

type staticTopology struct {
	snapshot atomic.Pointer[topology.Snapshot]
}

func (s *staticTopology) Latest() *topology.Snapshot {
	return s.snapshot.Load()
}

func TestWebServerTopology(t *testing.T) {
	topo := &staticTopology{}
	logLevel := zap.NewAtomicLevel()
	srv := httptest.NewServer(NewWebServer(WebServerOptions{
		Logger:   zap.NewNop(),
		LogLevel: &logLevel,
		Topology: topo,
	}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/topology")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	topo.snapshot.Store(&topology.Snapshot{
		Revision: 3,
		Nodes: []*topology.Node{
			{Endpoint: endpoint.New(net.ParseIP("10.0.0.5"), 9142), DataCenter: "dc1"},
		},
		Skipped: 1,
	})

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/topology")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Revision uint64 `json:"revision"`
		Skipped  int    `json:"skipped"`
		Nodes    []struct {
			Endpoint   string `json:"endpoint"`
			DataCenter string `json:"dataCenter"`
		} `json:"nodes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, uint64(3), body.Revision)
	require.Equal(t, 1, body.Skipped)
	require.Len(t, body.Nodes, 1)
	require.Equal(t, "10.0.0.5:9142", body.Nodes[0].Endpoint)
	require.Equal(t, "dc1", body.Nodes[0].DataCenter)
}

func TestWebServerLogLevel(t *testing.T) {
	logLevel := zap.NewAtomicLevel()
	srv := httptest.NewServer(NewWebServer(WebServerOptions{
		Logger:   zap.NewNop(),
		LogLevel: &logLevel,
	}).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/loglevel", strings.NewReader(`{"level":"debug"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, zap.DebugLevel, logLevel.Level())
}

func TestWebServerMetrics(t *testing.T) {
	srv := httptest.NewServer(NewWebServer(WebServerOptions{
		Logger: zap.NewNop(),
	}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
