// Package version holds build metadata stamped in with ldflags:
//
//	go build -ldflags "-X github.com/TWChennai/gocd-git-path-material-plugin/internal/version.Version=v1.2.0" ./cmd/gitpath
package version

import (
	"fmt"
	"runtime"
)

// Version is the release of the gitpath binary.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by "gitpath version".
func String() string {
	return fmt.Sprintf("gitpath %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, runtime.Version())
}
