package addrtranslation

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityTranslator(t *testing.T) {
	ip, port := IdentityTranslator().Translate(net.ParseIP("10.0.0.1"), 9042)
	require.True(t, ip.Equal(net.ParseIP("10.0.0.1")))
	require.Equal(t, 9042, port)
}

func TestStaticTranslator(t *testing.T) {
	tr, err := NewStaticTranslator(map[string]string{
		"10.0.0.1":      "203.0.113.1",
		"10.0.0.1:9142": "203.0.113.1:19142",
		"10.0.0.2:9042": "203.0.113.2:19042",
		"fd00::3":       "2001:db8::3",
	})
	require.NoError(t, err)
	require.Equal(t, 4, tr.Len())

	checkOne := func(inIP string, inPort int, expIP string, expPort int) {
		t.Helper()

		ip, port := tr.Translate(net.ParseIP(inIP), inPort)
		require.Truef(t, ip.Equal(net.ParseIP(expIP)), "expected %s, got %s", expIP, ip)
		require.Equal(t, expPort, port)
	}

	// address-only entries keep the port
	checkOne("10.0.0.1", 9042, "203.0.113.1", 9042)
	// exact entries win over address-only entries
	checkOne("10.0.0.1", 9142, "203.0.113.1", 19142)
	checkOne("10.0.0.2", 9042, "203.0.113.2", 19042)
	// no entry for this port
	checkOne("10.0.0.2", 9142, "10.0.0.2", 9142)
	checkOne("fd00::3", 9042, "2001:db8::3", 9042)
	// unknown addresses pass through
	checkOne("10.9.9.9", 9042, "10.9.9.9", 9042)

	// the 4-byte form must match the same entries
	ip, port := tr.Translate(net.IP{10, 0, 0, 1}, 9042)
	require.True(t, ip.Equal(net.ParseIP("203.0.113.1")))
	require.Equal(t, 9042, port)
}

func TestStaticTranslatorInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		mappings map[string]string
	}{
		{"BadSource", map[string]string{"node1": "10.0.0.1"}},
		{"BadTarget", map[string]string{"10.0.0.1": "node1"}},
		{"BindAllTarget", map[string]string{"10.0.0.1": "0.0.0.0"}},
		{"BindAllTargetWithPort", map[string]string{"10.0.0.1": "0.0.0.0:9042"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStaticTranslator(tc.mappings)
			require.ErrorIs(t, err, ErrInvalidTranslation)
		})
	}
}
