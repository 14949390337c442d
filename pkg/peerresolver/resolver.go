/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package peerresolver turns rows of a cluster's node listing tables into
// the endpoints the driver connects to.
//
// The layout of those tables changed across server versions, so every row
// is matched against a fixed, ordered list of schema epochs (see
// DefaultExtractors) and the first epoch whose marker column is defined
// decides how the address and port are read.  The resulting address is then
// passed through the configured address translator.
//
// A Resolver holds no mutable state and is safe for concurrent use.
package peerresolver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/addrtranslation"
	"github.com/couchbase/peer-endpoints/pkg/endpoint"
	"github.com/couchbase/peer-endpoints/pkg/metrics"
)

// DefaultNativePort is the port used for legacy rows when none is configured.
const DefaultNativePort = 9042

var (
	ErrMissingTranslator = errors.New("an address translator must be specified")
	ErrMissingSecurity   = errors.New("a security configuration must be specified")
	ErrNoExtractors      = errors.New("at least one extractor must be specified")
	ErrInvalidPort       = errors.New("invalid native port")
)

type Options struct {
	Translator addrtranslation.Translator
	Security   SecurityConfig
	Logger     *zap.Logger
	Metrics    *metrics.ResolverMetrics

	// DefaultPort is the native port of the cluster, 0 means DefaultNativePort.
	DefaultPort int

	// Extractors overrides DefaultExtractors when non-nil.
	Extractors []Extractor
}

type Resolver struct {
	translator addrtranslation.Translator
	logger     *zap.Logger
	metrics    *metrics.ResolverMetrics
	extractors []Extractor
	env        ExtractEnv
}

func NewResolver(opts Options) (*Resolver, error) {
	if opts.Translator == nil {
		return nil, ErrMissingTranslator
	}
	if opts.Security == nil {
		return nil, ErrMissingSecurity
	}

	defaultPort := opts.DefaultPort
	if defaultPort == 0 {
		defaultPort = DefaultNativePort
	}
	if defaultPort < 0 || defaultPort > 65535 {
		return nil, ErrInvalidPort
	}

	extractors := opts.Extractors
	if extractors == nil {
		extractors = DefaultExtractors()
	}
	if len(extractors) == 0 {
		return nil, ErrNoExtractors
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resolverMetrics := opts.Metrics
	if resolverMetrics == nil {
		resolverMetrics = metrics.GetResolverMetrics()
	}

	return &Resolver{
		translator: opts.Translator,
		logger:     logger,
		metrics:    resolverMetrics,
		extractors: extractors,
		env: ExtractEnv{
			Security:    opts.Security,
			DefaultPort: defaultPort,
		},
	}, nil
}

// Resolve returns the translated endpoint described by row.  It returns false
// when the row does not describe a connectable peer, in which case the caller
// is expected to skip it.
func (r *Resolver) Resolve(row peerrows.Row) (endpoint.Endpoint, bool) {
	if row == nil {
		return endpoint.Endpoint{}, false
	}

	for _, extractor := range r.extractors {
		if !extractor.Applies(row) {
			continue
		}

		addr, ok := extractor.Extract(row, r.env)
		if !ok {
			r.logger.Debug("row does not describe a usable peer",
				zap.String("epoch", extractor.Name()))
			r.metrics.RecordUndeterminable(extractor.Name())
			return endpoint.Endpoint{}, false
		}

		if addr.BroadcastFallback {
			r.logger.Warn("found host with 0.0.0.0 as rpc_address, using broadcast_address to contact it instead. "+
				"If this is incorrect you should avoid the use of 0.0.0.0 server side.",
				zap.String("broadcastAddress", addr.IP.String()))
			r.metrics.RecordBindAllSubstitution()
		}

		translatedIP, translatedPort := r.translator.Translate(addr.IP, addr.Port)
		ep := endpoint.New(translatedIP, translatedPort)
		if !ep.IsValid() {
			r.logger.Warn("address translation produced an invalid endpoint",
				zap.String("epoch", extractor.Name()),
				zap.String("address", addr.IP.String()),
				zap.Int("port", addr.Port),
				zap.String("translatedAddress", translatedIP.String()),
				zap.Int("translatedPort", translatedPort))
			r.metrics.RecordUndeterminable(extractor.Name())
			return endpoint.Endpoint{}, false
		}

		r.metrics.RecordResolved(extractor.Name())
		return ep, true
	}

	// only reachable with custom extractor lists lacking a catch-all
	r.metrics.RecordUndeterminable("none")
	return endpoint.Endpoint{}, false
}
