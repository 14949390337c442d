/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/config"
	"github.com/couchbase/peer-endpoints/pkg/metrics"
	"github.com/couchbase/peer-endpoints/pkg/peerresolver"
	"github.com/couchbase/peer-endpoints/pkg/topology"
	"github.com/couchbase/peer-endpoints/pkg/webapi"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Polls the rows file and serves the resolved topology",
	Run: func(cmd *cobra.Command, args []string) {
		runWatch()
	},
}

func runWatch() {
	logLevel, logger := getLogger()
	cfg := loadConfig(logLevel, logger)

	if cfg.RowsFile == "" {
		logger.Error("the watch command requires a rows-file")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otlpTracerProvider, otlpMeterProvider, err := initTelemetry(
		ctx,
		logger,
		cfg.OtlpEndpoint,
		!cfg.DisableOtlpTraces,
		!cfg.DisableOtlpMetrics)
	if err != nil {
		logger.Error("failed to initialize opentelemetry tracing", zap.Error(err))
		os.Exit(1)
	}

	if otlpTracerProvider != nil {
		otel.SetTracerProvider(otlpTracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}
	if otlpMeterProvider != nil {
		otel.SetMeterProvider(otlpMeterProvider)
	}

	translator, closeTranslator, err := cfg.BuildTranslator(ctx, logger)
	if err != nil {
		logger.Error("failed to build address translator", zap.Error(err))
		os.Exit(1)
	}
	defer closeTranslator()

	manager, err := peerresolver.NewManager(cfg.ResolverOptions(translator, logger.Named("resolver")))
	if err != nil {
		logger.Error("failed to create resolver", zap.Error(err))
		os.Exit(1)
	}

	watcher := topology.NewWatcher(topology.WatcherOptions{
		Source:   &peerrows.FileSource{Path: cfg.RowsFile},
		Resolver: manager,
		Interval: cfg.RefreshInterval,
		Logger:   logger.Named("topology"),
		Metrics:  metrics.GetResolverMetrics(),
	})

	var webServer *webapi.WebServer
	if cfg.WebEnabled() {
		webServer = webapi.NewWebServer(webapi.WebServerOptions{
			Logger:        logger.Named("webapi"),
			LogLevel:      &logLevel,
			ListenAddress: cfg.WebListenAddress(),
			Topology:      watcher,
		})

		go func() {
			logger.Info("starting web server", zap.String("address", cfg.WebListenAddress()))
			if err := webServer.ListenAndServe(); err != nil {
				logger.Error("web server failed", zap.Error(err))
				cancel()
			}
		}()
	} else {
		logger.Info("web server disabled")
	}

	snapshots, err := watcher.Watch(ctx)
	if err != nil {
		logger.Error("failed to start topology watcher", zap.Error(err))
		os.Exit(1)
	}

	// the config the running translator was built from
	translatorCfg := cfg

	var configLock sync.Mutex
	reloadConfiguration := func() {
		configLock.Lock()
		defer configLock.Unlock()

		if cfgFile != "" {
			if err := globalViper.ReadInConfig(); err != nil {
				logger.Warn("failed to reload config file", zap.Error(err))
				return
			}
		}

		newConfig := config.Read(globalViper)
		if err := newConfig.Validate(); err != nil {
			logger.Warn("ignoring invalid configuration change", zap.Error(err))
			return
		}

		if changed := cfg.RestartRequired(newConfig); len(changed) > 0 {
			logger.Warn("config changes for " + strings.Join(changed, ", ") + " require a restart")
		}

		if newConfig.LogLevel != cfg.LogLevel {
			newParsedLogLevel, err := zapcore.ParseLevel(newConfig.LogLevel)
			if err != nil {
				logger.Warn("invalid log level specified, using INFO instead")
				newParsedLogLevel = zapcore.InfoLevel
			}

			logLevel.SetLevel(newParsedLogLevel)

			logger.Info("updated log level",
				zap.String("newLevel", newParsedLogLevel.String()))
		}

		// the etcd translator follows its own watch, only static mappings
		// are rebuilt here.
		newTranslator := translator
		newTranslatorCfg := translatorCfg
		if translatorCfg.CanSwapTranslator(newConfig) {
			rebuilt, _, err := newConfig.BuildTranslator(ctx, logger)
			if err != nil {
				logger.Warn("failed to rebuild address translator", zap.Error(err))
				return
			}
			newTranslator = rebuilt
			newTranslatorCfg = newConfig
		}

		err := manager.Reconfigure(newConfig.ResolverOptions(newTranslator, logger.Named("resolver")))
		if err != nil {
			logger.Warn("failed to reconfigure resolver", zap.Error(err))
			return
		}

		translator = newTranslator
		translatorCfg = newTranslatorCfg
		cfg = newConfig
	}

	if watchCfgFile {
		globalViper.OnConfigChange(func(in fsnotify.Event) {
			logger.Info("configuration file change detected",
				zap.String("file", in.Name))
			reloadConfiguration()
		})

		go globalViper.WatchConfig()
	}

	go func() {
		sigCh := make(chan os.Signal, 10)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		hasReceivedSigInt := false
		for sig := range sigCh {
			if sig == syscall.SIGINT {
				if hasReceivedSigInt {
					logger.Info("Received SIGINT a second time, terminating...")
					os.Exit(1)
				} else {
					logger.Info("Received SIGINT, attempting graceful shutdown...")
					hasReceivedSigInt = true
					cancel()
				}
			} else if sig == syscall.SIGTERM {
				logger.Info("Received SIGTERM, attempting graceful shutdown...")
				cancel()
			} else if sig == syscall.SIGHUP {
				logger.Info("Received SIGHUP, reloading configuration...")
				reloadConfiguration()
			}
		}
	}()

	for snapshot := range snapshots {
		logger.Info("serving topology",
			zap.Uint64("revision", snapshot.Revision),
			zap.Int("nodes", len(snapshot.Nodes)),
			zap.Int("skipped", snapshot.Skipped),
			zap.String("minReleaseVersion", snapshot.MinReleaseVersion()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if webServer != nil {
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown web server", zap.Error(err))
		}
	}

	if otlpMeterProvider != nil {
		_ = otlpMeterProvider.Shutdown(shutdownCtx)
	}
	if otlpTracerProvider != nil {
		_ = otlpTracerProvider.Shutdown(shutdownCtx)
	}

	logger.Info("watcher shutdown gracefully")
}
