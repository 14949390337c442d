/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/couchbase/peer-endpoints/pkg/addrtranslation"
	"github.com/couchbase/peer-endpoints/pkg/metrics"
	"github.com/couchbase/peer-endpoints/pkg/peerresolver"
)

const EnvPrefix = "pep"

// WebPortDisabled is the web-port value which turns the web api off.
const WebPortDisabled = -1

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Flags returns the flags which can also be set through the config file or
// the environment (PEP_ prefix, dashes replaced by underscores).
func Flags() *pflag.FlagSet {
	configFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	configFlags.String("log-level", "info", "the log level to run at")
	configFlags.String("rows-file", "", "path to a JSON file of node listing rows")
	configFlags.Bool("encryption-enabled", false, "whether connections to the cluster use TLS")
	configFlags.Int("native-port", peerresolver.DefaultNativePort, "the native protocol port of the cluster")
	configFlags.StringSlice("translations", nil, "address translations in source=target form")
	configFlags.StringSlice("etcd-endpoints", nil, "etcd endpoints holding address translations")
	configFlags.String("etcd-prefix", "/peer-endpoints/translations/", "etcd key prefix of address translations")
	configFlags.Duration("refresh-interval", 30*time.Second, "how often the topology is refreshed")
	configFlags.String("bind-address", "0.0.0.0", "the local address to bind to")
	configFlags.Int("web-port", 9091, "the web metrics/health port, -1 to disable")
	configFlags.String("otlp-endpoint", "", "opentelemetry endpoint to send telemetry to")
	configFlags.Bool("disable-otlp-traces", false, "disable sending traces to otlp")
	configFlags.Bool("disable-otlp-metrics", false, "disable sending metrics to otlp")
	return configFlags
}

// BindViper wires the environment and the given flags into v.
func BindViper(v *viper.Viper, configFlags *pflag.FlagSet) error {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return v.BindPFlags(configFlags)
}

type Config struct {
	LogLevel           string
	RowsFile           string
	EncryptionEnabled  bool
	NativePort         int
	Translations       []string
	EtcdEndpoints      []string
	EtcdPrefix         string
	RefreshInterval    time.Duration
	BindAddress        string
	WebPort            int
	OtlpEndpoint       string
	DisableOtlpTraces  bool
	DisableOtlpMetrics bool
}

func Read(v *viper.Viper) *Config {
	return &Config{
		LogLevel:           v.GetString("log-level"),
		RowsFile:           v.GetString("rows-file"),
		EncryptionEnabled:  v.GetBool("encryption-enabled"),
		NativePort:         v.GetInt("native-port"),
		Translations:       v.GetStringSlice("translations"),
		EtcdEndpoints:      v.GetStringSlice("etcd-endpoints"),
		EtcdPrefix:         v.GetString("etcd-prefix"),
		RefreshInterval:    v.GetDuration("refresh-interval"),
		BindAddress:        v.GetString("bind-address"),
		WebPort:            v.GetInt("web-port"),
		OtlpEndpoint:       v.GetString("otlp-endpoint"),
		DisableOtlpTraces:  v.GetBool("disable-otlp-traces"),
		DisableOtlpMetrics: v.GetBool("disable-otlp-metrics"),
	}
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %s", ErrInvalidConfig, err)
	}
	if c.NativePort <= 0 || c.NativePort > 65535 {
		return fmt.Errorf("%w: native-port %d is out of range", ErrInvalidConfig, c.NativePort)
	}
	if c.WebPort != WebPortDisabled && (c.WebPort <= 0 || c.WebPort > 65535) {
		return fmt.Errorf("%w: web-port %d is out of range, use %d to disable", ErrInvalidConfig, c.WebPort, WebPortDisabled)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh-interval must be positive", ErrInvalidConfig)
	}
	if len(c.EtcdEndpoints) > 0 && len(c.Translations) > 0 {
		return fmt.Errorf("%w: translations and etcd-endpoints are mutually exclusive", ErrInvalidConfig)
	}
	if _, err := c.translationMappings(); err != nil {
		return err
	}

	return nil
}

func (c *Config) WebEnabled() bool {
	return c.WebPort != WebPortDisabled
}

// WebListenAddress is the address the web api listens on.
func (c *Config) WebListenAddress() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.WebPort))
}

// LogFields describes the configuration for the startup log line.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("logLevel", c.LogLevel),
		zap.String("rowsFile", c.RowsFile),
		zap.Bool("encryptionEnabled", c.EncryptionEnabled),
		zap.Int("nativePort", c.NativePort),
		zap.Strings("translations", c.Translations),
		zap.Strings("etcdEndpoints", c.EtcdEndpoints),
		zap.String("etcdPrefix", c.EtcdPrefix),
		zap.Duration("refreshInterval", c.RefreshInterval),
		zap.String("bindAddress", c.BindAddress),
		zap.Int("webPort", c.WebPort),
		zap.String("otlpEndpoint", c.OtlpEndpoint),
		zap.Bool("disableOtlpTraces", c.DisableOtlpTraces),
		zap.Bool("disableOtlpMetrics", c.DisableOtlpMetrics),
	}
}

// RestartRequired lists the settings which differ between c and newConfig
// but cannot be applied without a restart.
func (c *Config) RestartRequired(newConfig *Config) []string {
	var changed []string
	if newConfig.RowsFile != c.RowsFile {
		changed = append(changed, "rows-file")
	}
	if strings.Join(newConfig.EtcdEndpoints, ",") != strings.Join(c.EtcdEndpoints, ",") ||
		newConfig.EtcdPrefix != c.EtcdPrefix {
		changed = append(changed, "etcd")
	}
	if newConfig.RefreshInterval != c.RefreshInterval {
		changed = append(changed, "refresh-interval")
	}
	if newConfig.BindAddress != c.BindAddress || newConfig.WebPort != c.WebPort {
		changed = append(changed, "web")
	}
	if newConfig.OtlpEndpoint != c.OtlpEndpoint ||
		newConfig.DisableOtlpTraces != c.DisableOtlpTraces ||
		newConfig.DisableOtlpMetrics != c.DisableOtlpMetrics {
		changed = append(changed, "otlp")
	}

	return changed
}

// CanSwapTranslator reports whether the translator built from c can be
// replaced by one built from newConfig without a restart.  Only static
// translations can be swapped, an etcd translator keeps running.
func (c *Config) CanSwapTranslator(newConfig *Config) bool {
	return len(c.EtcdEndpoints) == 0 && len(newConfig.EtcdEndpoints) == 0
}

func (c *Config) translationMappings() (map[string]string, error) {
	mappings := make(map[string]string, len(c.Translations))
	for _, entry := range c.Translations {
		source, target, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: translation %q is not in source=target form", ErrInvalidConfig, entry)
		}

		mappings[strings.TrimSpace(source)] = strings.TrimSpace(target)
	}

	if _, err := addrtranslation.NewStaticTranslator(mappings); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	return mappings, nil
}

// BuildTranslator creates the translator described by the configuration.
// An etcd backed translator keeps running until ctx is cancelled, the
// returned close function releases its client.
func (c *Config) BuildTranslator(ctx context.Context, logger *zap.Logger) (addrtranslation.Translator, func(), error) {
	if len(c.EtcdEndpoints) > 0 {
		client, err := addrtranslation.NewEtcdClient(c.EtcdEndpoints, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}

		translator := addrtranslation.NewEtcdTranslator(addrtranslation.EtcdTranslatorOptions{
			KV:      client,
			Watcher: client,
			Prefix:  c.EtcdPrefix,
			Logger:  logger.Named("etcd-translator"),
		})
		err = translator.Start(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}

		return translator, func() { _ = client.Close() }, nil
	}

	if len(c.Translations) == 0 {
		return addrtranslation.IdentityTranslator(), func() {}, nil
	}

	mappings, err := c.translationMappings()
	if err != nil {
		return nil, nil, err
	}

	translator, err := addrtranslation.NewStaticTranslator(mappings)
	if err != nil {
		return nil, nil, err
	}

	return translator, func() {}, nil
}

// ResolverOptions builds the options for a resolver using translator.
func (c *Config) ResolverOptions(translator addrtranslation.Translator, logger *zap.Logger) peerresolver.Options {
	return peerresolver.Options{
		Translator:  translator,
		Security:    peerresolver.StaticSecurity(c.EncryptionEnabled),
		Logger:      logger,
		Metrics:     metrics.GetResolverMetrics(),
		DefaultPort: c.NativePort,
	}
}
