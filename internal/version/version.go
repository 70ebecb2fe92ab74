// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the long form printed by `rehearse version`.
func String() string {
	return fmt.Sprintf("rehearse %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent identifies rehearse to the analysis backend.
func UserAgent() string {
	return fmt.Sprintf("rehearse/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
