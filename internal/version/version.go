// Package version holds build metadata stamped at link time.
package version

// Overridden via -ldflags "-X ..." in release builds.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
