package netutils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsInAddrAny(t *testing.T) {
	require.True(t, IsInAddrAny(""))
	require.True(t, IsInAddrAny("0.0.0.0"))
	require.True(t, IsInAddrAny("::"))
	require.True(t, IsInAddrAny("::/0"))
	require.False(t, IsInAddrAny("10.0.0.1"))
	require.False(t, IsInAddrAny("fe80::1"))
	require.False(t, IsInAddrAny("node1.example.com"))
}

func TestIsBindAllAddress(t *testing.T) {
	require.True(t, IsBindAllAddress(net.IPv4zero))
	require.True(t, IsBindAllAddress(net.IP{0, 0, 0, 0}))
	require.True(t, IsBindAllAddress(net.ParseIP("0.0.0.0")))
	require.True(t, IsBindAllAddress(net.ParseIP("::ffff:0.0.0.0")))

	require.False(t, IsBindAllAddress(net.IPv6unspecified))
	require.False(t, IsBindAllAddress(net.ParseIP("192.168.1.10")))
	require.False(t, IsBindAllAddress(nil))
}
