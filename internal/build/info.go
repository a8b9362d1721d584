// Package build exposes build-time metadata injected via ldflags.
package build

import "fmt"

// Version, Commit, and Branch are set at build time by:
//
//	-ldflags "-X github.com/joestump/recipe-sync/internal/build.Version=... ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Branch  = "unknown"
)

// String renders the build metadata for `recipe-sync version`.
func String() string {
	return fmt.Sprintf("recipe-sync %s (commit %s, branch %s)", Version, Commit, Branch)
}
