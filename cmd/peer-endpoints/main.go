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
	"github.com/spf13/cobra"

	"github.com/couchbase/peer-endpoints/pkg/config"
	"github.com/couchbase/peer-endpoints/pkg/version"
)

var rootCmd = &cobra.Command{
	Version: version.Version(),

	Use:   version.Application,
	Short: "Resolves cluster node listing rows into connectable endpoints",
}

var cfgFile string
var watchCfgFile bool

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "specifies a config file to load")

	configFlags := config.Flags()
	rootCmd.PersistentFlags().AddFlagSet(configFlags)

	watchCmd.Flags().BoolVar(&watchCfgFile, "watch-config", false, "indicates whether to watch the config file for changes")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(watchCmd)

	_ = config.BindViper(globalViper, configFlags)
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
