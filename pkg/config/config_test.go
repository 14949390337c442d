package config

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/endpoint"
	"github.com/couchbase/peer-endpoints/pkg/peerresolver"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	v := viper.New()
	configFlags := Flags()
	require.NoError(t, configFlags.Parse(args))
	require.NoError(t, BindViper(v, configFlags))
	return v
}

func TestReadDefaults(t *testing.T) {
	cfg := Read(newTestViper(t))

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, peerresolver.DefaultNativePort, cfg.NativePort)
	require.False(t, cfg.EncryptionEnabled)
	require.Equal(t, 30*time.Second, cfg.RefreshInterval)
	require.Empty(t, cfg.Translations)
	require.NoError(t, cfg.Validate())
}

func TestReadFlagsAndEnv(t *testing.T) {
	t.Setenv("PEP_NATIVE_PORT", "19042")

	v := newTestViper(t,
		"--encryption-enabled",
		"--translations", "10.0.0.1=203.0.113.1,10.0.0.2:9042=203.0.113.2:19042")
	cfg := Read(v)

	require.True(t, cfg.EncryptionEnabled)
	require.Equal(t, 19042, cfg.NativePort)
	require.Equal(t, []string{"10.0.0.1=203.0.113.1", "10.0.0.2:9042=203.0.113.2:19042"}, cfg.Translations)
	require.NoError(t, cfg.Validate())
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
log-level: debug
native-port: 9142
encryption-enabled: true
refresh-interval: 5s
translations:
  - 10.0.0.1=203.0.113.1
`), 0600)
	require.NoError(t, err)

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := Read(v)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 9142, cfg.NativePort)
	require.True(t, cfg.EncryptionEnabled)
	require.Equal(t, 5*time.Second, cfg.RefreshInterval)
	require.Equal(t, []string{"10.0.0.1=203.0.113.1"}, cfg.Translations)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return Read(newTestViper(t))
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"BadLogLevel", func(c *Config) { c.LogLevel = "chatty" }},
		{"BadPort", func(c *Config) { c.NativePort = 0 }},
		{"BadInterval", func(c *Config) { c.RefreshInterval = 0 }},
		{"WebPortZero", func(c *Config) { c.WebPort = 0 }},
		{"WebPortNegative", func(c *Config) { c.WebPort = -2 }},
		{"WebPortTooLarge", func(c *Config) { c.WebPort = 65536 }},
		{"BadTranslationForm", func(c *Config) { c.Translations = []string{"10.0.0.1"} }},
		{"BadTranslationTarget", func(c *Config) { c.Translations = []string{"10.0.0.1=0.0.0.0"} }},
		{"TranslationsAndEtcd", func(c *Config) {
			c.Translations = []string{"10.0.0.1=203.0.113.1"}
			c.EtcdEndpoints = []string{"localhost:2379"}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestWebPortDisabled(t *testing.T) {
	cfg := Read(newTestViper(t, "--web-port=-1"))
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.WebEnabled())

	cfg = Read(newTestViper(t))
	require.True(t, cfg.WebEnabled())
	require.Equal(t, "0.0.0.0:9091", cfg.WebListenAddress())

	cfg = Read(newTestViper(t, "--bind-address", "::1", "--web-port", "8080"))
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.WebEnabled())
	require.Equal(t, "[::1]:8080", cfg.WebListenAddress())
}

func TestCanSwapTranslator(t *testing.T) {
	static := Read(newTestViper(t, "--translations", "10.0.0.1=203.0.113.1"))
	etcdBacked := Read(newTestViper(t, "--etcd-endpoints", "localhost:2379"))
	identity := Read(newTestViper(t))

	require.True(t, static.CanSwapTranslator(identity))
	require.True(t, identity.CanSwapTranslator(static))

	// an etcd translator is never swapped, even when etcd was removed
	require.False(t, etcdBacked.CanSwapTranslator(static))
	require.False(t, etcdBacked.CanSwapTranslator(identity))
	require.False(t, static.CanSwapTranslator(etcdBacked))
	require.Equal(t, []string{"etcd"}, etcdBacked.RestartRequired(identity))
}

func TestRestartRequired(t *testing.T) {
	base := Read(newTestViper(t))

	changed := *base
	changed.LogLevel = "debug"
	changed.EncryptionEnabled = true
	changed.Translations = []string{"10.0.0.1=203.0.113.1"}
	require.Empty(t, base.RestartRequired(&changed))

	changed.WebPort = 9999
	changed.RefreshInterval = time.Minute
	require.Equal(t, []string{"refresh-interval", "web"}, base.RestartRequired(&changed))
}

func TestBuildTranslatorAndResolver(t *testing.T) {
	cfg := Read(newTestViper(t,
		"--encryption-enabled",
		"--translations", "10.0.0.5=203.0.113.5"))
	require.NoError(t, cfg.Validate())

	translator, closeFn, err := cfg.BuildTranslator(context.Background(), zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	resolver, err := peerresolver.NewResolver(cfg.ResolverOptions(translator, zap.NewNop()))
	require.NoError(t, err)

	resolved, ok := resolver.Resolve(peerrows.MapRow{
		peerrows.ColumnNativeTransportAddress: net.ParseIP("10.0.0.5"),
		peerrows.ColumnNativeTransportPort:    9042,
		peerrows.ColumnNativeTransportPortSSL: 9142,
	})
	require.True(t, ok)
	require.Equal(t, endpoint.New(net.ParseIP("203.0.113.5"), 9142), resolved)
}

func TestBuildTranslatorIdentity(t *testing.T) {
	cfg := Read(newTestViper(t))

	translator, closeFn, err := cfg.BuildTranslator(context.Background(), zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	ip, port := translator.Translate(net.ParseIP("10.0.0.1"), 9042)
	require.True(t, ip.Equal(net.ParseIP("10.0.0.1")))
	require.Equal(t, 9042, port)
}
