package peerrows

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testRowsJSON = `[
	{
		"native_transport_address": "10.0.0.5",
		"native_transport_port": 9042,
		"native_transport_port_ssl": 9142,
		"host_id": "0c6b2a3e-6a3c-4a55-9d43-3f0a1c4f3c11",
		"data_center": "dc1"
	},
	{
		"peer": "192.168.1.10",
		"rpc_address": null,
		"tokens": ["1", "2"]
	}
]`

func TestDecodeJSONRows(t *testing.T) {
	rows, err := DecodeJSONRows(strings.NewReader(testRowsJSON))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ip, err := rows[0].GetInet(ColumnNativeTransportAddress)
	require.NoError(t, err)
	require.True(t, ip.Equal(net.ParseIP("10.0.0.5")))

	sslPort, err := rows[0].GetInt(ColumnNativeTransportPortSSL)
	require.NoError(t, err)
	require.Equal(t, 9142, sslPort)

	hostID, err := rows[0].GetUUID(ColumnHostID)
	require.NoError(t, err)
	require.Equal(t, uuid.MustParse("0c6b2a3e-6a3c-4a55-9d43-3f0a1c4f3c11"), hostID)

	require.True(t, rows[1].Has(ColumnRPCAddress))
	require.True(t, rows[1].IsNull(ColumnRPCAddress))
	require.True(t, rows[1].Has("tokens"))
	require.False(t, rows[1].Has(ColumnNativeAddress))
}

func TestDecodeJSONRowsInvalid(t *testing.T) {
	t.Run("BadInet", func(t *testing.T) {
		_, err := DecodeJSONRows(strings.NewReader(`[{"peer": "not-an-ip"}]`))
		require.ErrorIs(t, err, ErrWrongType)
	})

	t.Run("BadPort", func(t *testing.T) {
		_, err := DecodeJSONRows(strings.NewReader(`[{"native_port": "9042"}]`))
		require.Error(t, err)
	})

	t.Run("NotAnArray", func(t *testing.T) {
		_, err := DecodeJSONRows(strings.NewReader(`{"peer": "10.0.0.1"}`))
		require.Error(t, err)
	})
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.json")
	require.NoError(t, os.WriteFile(path, []byte(testRowsJSON), 0600))

	src := &FileSource{Path: path}
	rows, err := src.FetchPeers(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[1].Has(ColumnPeer))

	missing := &FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}
	_, err = missing.FetchPeers(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}
