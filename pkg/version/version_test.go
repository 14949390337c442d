package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalOrDev(t *testing.T) {
	require.Equal(t, "v1.2.3", canonicalOrDev("v1.2.3"))
	require.Equal(t, "v1.2.3-0.20260101000000-abcdef123456", canonicalOrDev("v1.2.3-0.20260101000000-abcdef123456"))
	require.Equal(t, devVersion, canonicalOrDev("(devel)"))
	require.Equal(t, devVersion, canonicalOrDev(""))
}

func TestVersionIsStable(t *testing.T) {
	require.Equal(t, Version(), Version())
	require.NotEmpty(t, Version())
}
