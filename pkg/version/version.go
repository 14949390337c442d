/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package version

import (
	"runtime/debug"
	"sync"

	"golang.org/x/mod/semver"
)

const (
	Application = "peer-endpoints"
	modulePath  = "github.com/couchbase/peer-endpoints"
	devVersion  = "v0.0.0-dev"
)

var (
	buildVersion     string
	buildVersionOnce sync.Once
)

// Version returns the module version embedded in the running binary, or a
// development placeholder when built from a working tree.
func Version() string {
	buildVersionOnce.Do(func() {
		buildVersion = readVersion()
	})
	return buildVersion
}

func readVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return devVersion
	}

	if info.Main.Path == modulePath {
		return canonicalOrDev(info.Main.Version)
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return canonicalOrDev(dep.Version)
		}
	}

	return devVersion
}

func canonicalOrDev(v string) string {
	// go reports "(devel)" for binaries built from a checkout
	if !semver.IsValid(v) {
		return devVersion
	}
	return v
}
