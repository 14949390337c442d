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
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/contrib/peerrows"
	"github.com/couchbase/peer-endpoints/pkg/endpoint"
	"github.com/couchbase/peer-endpoints/pkg/peerresolver"
)

type resolvedRow struct {
	Index    int                `json:"index"`
	Resolved bool               `json:"resolved"`
	Endpoint *endpoint.Endpoint `json:"endpoint,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolves every row of the rows file once and prints the result",
	Run: func(cmd *cobra.Command, args []string) {
		logLevel, logger := getLogger()
		cfg := loadConfig(logLevel, logger)

		if cfg.RowsFile == "" {
			logger.Error("the resolve command requires a rows-file")
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		translator, closeTranslator, err := cfg.BuildTranslator(ctx, logger)
		if err != nil {
			logger.Error("failed to build address translator", zap.Error(err))
			os.Exit(1)
		}
		defer closeTranslator()

		resolver, err := peerresolver.NewResolver(cfg.ResolverOptions(translator, logger.Named("resolver")))
		if err != nil {
			logger.Error("failed to create resolver", zap.Error(err))
			os.Exit(1)
		}

		source := &peerrows.FileSource{Path: cfg.RowsFile}
		rows, err := source.FetchPeers(ctx)
		if err != nil {
			logger.Error("failed to read rows",
				zap.Error(err),
				zap.String("rowsFile", cfg.RowsFile))
			os.Exit(1)
		}

		results := make([]resolvedRow, 0, len(rows))
		for i, row := range rows {
			result := resolvedRow{Index: i}
			if ep, ok := resolver.Resolve(row); ok {
				result.Resolved = true
				result.Endpoint = &ep
			}
			results = append(results, result)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Error("failed to write results", zap.Error(err))
			os.Exit(1)
		}
	},
}
