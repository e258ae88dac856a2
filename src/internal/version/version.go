// FILE: src/internal/version/version.go
package version

import "fmt"

const appName = "rsslogfeed"

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Returns the application name with a formatted version string
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", appName, Version, GitCommit, BuildTime)
}

// Returns just the version tag
func Short() string {
	return Version
}
