// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String is the one-line form shown by the CLI and the About dialog.
func String() string {
	return fmt.Sprintf("flow-mask %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
